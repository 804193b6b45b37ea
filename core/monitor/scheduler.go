package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/adalundhe/dirsentry/core/tree"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidInterval indicates the scan interval is invalid.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("scheduler is already running")

	// ErrMissingDependency indicates a required collaborator was not set.
	ErrMissingDependency = errors.New("scheduler dependency is missing")
)

// =============================================================================
// Collaborators
// =============================================================================

// Enumerator lists the files to hash in a cycle.
type Enumerator interface {
	Enumerate(ctx context.Context) (tree.Listing, error)
}

// Publisher receives the events of a cycle. Publish must not block.
type Publisher interface {
	Publish(event change.Event) bool
}

// CycleObserver is notified after every completed cycle.
type CycleObserver interface {
	ObserveCycle(duration time.Duration, files, hashFailures int, storeFailed bool)
}

// =============================================================================
// Configuration
// =============================================================================

// DefaultInterval is the time between the end of one cycle and the next.
const DefaultInterval = 60 * time.Second

// DefaultCheckGranularity bounds how long the sleep phase can go without
// observing cancellation.
const DefaultCheckGranularity = time.Second

// Config configures a Scheduler.
type Config struct {
	// Interval is the sleep between cycles (required, must be positive).
	Interval time.Duration

	// CheckGranularity is how often cancellation is checked while sleeping.
	// Default: 1 second.
	CheckGranularity time.Duration

	// Workers is the number of concurrent hash workers.
	Workers int

	// Policy governs files that fail to hash.
	Policy FailurePolicy

	// Enumerator, Hasher and Store are required.
	Enumerator Enumerator
	Hasher     fingerprint.FileHasher
	Store      snapshot.Store

	// Publisher receives change events; nil discards them.
	Publisher Publisher

	// Observer is notified of cycle outcomes; optional.
	Observer CycleObserver

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time

	// OnState is called on every state transition; optional.
	OnState func(State)

	// OnHashFailure is called for every file that could not be read;
	// optional.
	OnHashFailure func(path string, err error)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.Enumerator == nil || c.Hasher == nil || c.Store == nil {
		return ErrMissingDependency
	}
	return nil
}

// =============================================================================
// Report
// =============================================================================

// HashFailure records a file that could not be read in a cycle.
type HashFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes one completed cycle.
type Report struct {
	ID           string         `json:"id"`
	Started      time.Time      `json:"started"`
	Duration     time.Duration  `json:"duration"`
	Files        int            `json:"files"`
	Added        int            `json:"added"`
	Modified     int            `json:"modified"`
	Deleted      int            `json:"deleted"`
	Events       []change.Event `json:"events"`
	HashFailures []HashFailure  `json:"hash_failures,omitempty"`
	WalkErrors   int            `json:"walk_errors"`
	Malformed    string         `json:"malformed_store,omitempty"`
	StoreError   string         `json:"store_error,omitempty"`
	Interrupted  string         `json:"interrupted,omitempty"`
}

// =============================================================================
// Scheduler
// =============================================================================

// Scheduler runs scan cycles on a fixed interval. Cancellation is the
// context passed to Run: it is checked before each cycle and throughout the
// sleep phase. A cycle that has started always runs to completion.
type Scheduler struct {
	config Config
	logger *slog.Logger
	clock  func() time.Time

	state   atomic.Int32
	running atomic.Bool
	cycles  atomic.Uint64

	mu   sync.RWMutex
	last *Report

	// unsaved holds the last snapshot whose save failed. It is only touched
	// by the goroutine running cycles.
	unsaved snapshot.Snapshot
}

// New validates config and returns a scheduler in StateIdle.
func New(config Config) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.CheckGranularity <= 0 {
		config.CheckGranularity = DefaultCheckGranularity
	}
	if config.Workers <= 0 {
		config.Workers = fingerprint.DefaultWorkers
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Scheduler{config: config, logger: logger, clock: clock}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Cycles returns the number of completed cycles.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// LastReport returns a copy of the most recent cycle report, or nil.
func (s *Scheduler) LastReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	r.Events = append([]change.Event(nil), s.last.Events...)
	r.HashFailures = append([]HashFailure(nil), s.last.HashFailures...)
	return &r
}

func (s *Scheduler) setState(state State) {
	s.state.Store(int32(state))
	if s.config.OnState != nil {
		s.config.OnState(state)
	}
}

// Run executes cycles until ctx is cancelled, then moves to StateStopped and
// returns nil. Cycle-level failures are logged and reported, never returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.setState(StateStopped)

	for ctx.Err() == nil {
		s.setState(StateScanning)
		s.runCycle(context.WithoutCancel(ctx))

		s.setState(StateSleeping)
		if !s.sleep(ctx) {
			break
		}
	}

	s.logger.Info("monitoring stopped", "cycles", s.Cycles())
	return nil
}

// RunOnce executes a single cycle outside the Run loop. Like a cycle started
// by Run, it completes even if ctx is cancelled while it is in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.setState(StateScanning)
	report := s.runCycle(context.WithoutCancel(ctx))
	s.setState(StateIdle)
	return report, nil
}

// sleep waits for the interval, waking at least every CheckGranularity to
// observe cancellation. It returns false if ctx was cancelled.
func (s *Scheduler) sleep(ctx context.Context) bool {
	deadline := time.Now().Add(s.config.Interval)

	for {
		if ctx.Err() != nil {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}

		timer := time.NewTimer(min(remaining, s.config.CheckGranularity))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
