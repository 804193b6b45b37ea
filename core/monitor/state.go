// Package monitor drives repeated scan cycles: enumerate, hash, diff, publish
// and persist, sleeping between cycles until cancelled.
package monitor

// =============================================================================
// State
// =============================================================================

// State is the scheduler lifecycle state.
type State int32

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota

	// StateScanning indicates a cycle is in progress.
	StateScanning

	// StateSleeping indicates the scheduler is waiting for the next cycle.
	StateSleeping

	// StateStopped is terminal: cancellation was observed.
	StateStopped
)

var stateNames = map[State]string{
	StateIdle:     "idle",
	StateScanning: "scanning",
	StateSleeping: "sleeping",
	StateStopped:  "stopped",
}

// String returns a lowercase name for the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// FailurePolicy
// =============================================================================

// FailurePolicy decides what happens to a previously known file that could
// not be hashed in the current cycle.
type FailurePolicy int

const (
	// ReportDeleted leaves the file out of the current snapshot, so it is
	// reported as Deleted until it becomes readable again.
	ReportDeleted FailurePolicy = iota

	// CarryForward keeps the file's previous digest, so a transient read
	// failure produces no event.
	CarryForward
)

// String returns the configuration name for the policy.
func (p FailurePolicy) String() string {
	switch p {
	case CarryForward:
		return "carry-forward"
	default:
		return "report-deleted"
	}
}

// ParseFailurePolicy resolves a policy by configuration name.
func ParseFailurePolicy(name string) (FailurePolicy, bool) {
	switch name {
	case "", "report-deleted":
		return ReportDeleted, true
	case "carry-forward":
		return CarryForward, true
	default:
		return ReportDeleted, false
	}
}
