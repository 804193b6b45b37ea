package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/google/uuid"
)

// runCycle performs load, enumerate, hash, diff, publish and save. All
// digests are joined before the diff runs, so the comparison only ever sees
// a fully built current snapshot. A cycle whose listing or hashing was cut
// short by ctx neither diffs nor saves.
func (s *Scheduler) runCycle(ctx context.Context) Report {
	started := s.clock()
	report := Report{ID: uuid.NewString(), Started: started}
	logger := s.logger.With("cycle", report.ID)

	previous := s.loadPrevious(&report, logger)

	current, err := s.buildCurrent(ctx, &report, logger)
	if err != nil {
		report.Interrupted = err.Error()
		report.Duration = s.clock().Sub(started)
		logger.Warn("scan cycle interrupted, snapshot left unchanged", "error", err)
		s.mu.Lock()
		stored := report
		s.last = &stored
		s.mu.Unlock()
		return report
	}
	s.applyPolicy(previous, current, &report)

	result := change.Diff(previous, current, s.clock())
	s.publish(result.Events)

	if err := s.config.Store.Save(result.Snapshot); err != nil {
		// The on-disk snapshot stays stale until the next successful save;
		// the next cycle compares against the unsaved result instead.
		report.StoreError = err.Error()
		s.unsaved = result.Snapshot
		logger.Error("failed to save snapshot", "error", err)
	} else {
		s.unsaved = nil
	}

	s.finishReport(&report, result, started)
	logger.Debug("scan cycle complete",
		"files", report.Files,
		"added", report.Added,
		"modified", report.Modified,
		"deleted", report.Deleted,
		"hash_failures", len(report.HashFailures),
		"duration", report.Duration,
	)
	return report
}

// loadPrevious returns the snapshot to compare against: the last unsaved
// result if a save failed, otherwise whatever the store holds.
func (s *Scheduler) loadPrevious(report *Report, logger *slog.Logger) snapshot.Snapshot {
	if s.unsaved != nil {
		return s.unsaved
	}

	previous, err := s.config.Store.Load()
	if err != nil {
		// Every existing file will be reported as new this cycle.
		report.Malformed = err.Error()
		logger.Warn("snapshot unreadable, treating as empty", "error", err)
		return snapshot.Snapshot{}
	}
	return previous
}

// buildCurrent enumerates and hashes every file, skipping unreadable ones.
// It returns an error only when ctx ended the listing or the hashing early,
// in which case the snapshot is incomplete and must not be compared.
func (s *Scheduler) buildCurrent(ctx context.Context, report *Report, logger *slog.Logger) (snapshot.Snapshot, error) {
	current := snapshot.Snapshot{}

	listing, err := s.config.Enumerator.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	for _, werr := range listing.Errors {
		logger.Warn("could not read directory entry", "path", werr.Path, "error", werr.Err)
	}
	report.WalkErrors = len(listing.Errors)

	outcomes := fingerprint.HashAll(ctx, s.config.Hasher, listing.Files, s.config.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, out := range outcomes {
		if out.Err != nil {
			logger.Warn("could not access file", "path", out.Path, "error", out.Err)
			report.HashFailures = append(report.HashFailures, HashFailure{
				Path:  out.Path,
				Error: out.Err.Error(),
			})
			if s.config.OnHashFailure != nil {
				s.config.OnHashFailure(out.Path, out.Err)
			}
			continue
		}
		current[out.Path] = out.Digest
	}

	return current, nil
}

// applyPolicy carries previous digests forward for unreadable files when the
// policy asks for it.
func (s *Scheduler) applyPolicy(previous, current snapshot.Snapshot, report *Report) {
	if s.config.Policy != CarryForward {
		return
	}
	for _, failure := range report.HashFailures {
		if digest, ok := previous[failure.Path]; ok {
			current[failure.Path] = digest
		}
	}
}

// publish hands events to the publisher without waiting on consumers.
func (s *Scheduler) publish(events []change.Event) {
	if s.config.Publisher == nil {
		return
	}
	for _, e := range events {
		s.config.Publisher.Publish(e)
	}
}

// finishReport fills in totals, records the report and notifies the observer.
func (s *Scheduler) finishReport(report *Report, result change.Result, started time.Time) {
	counts := result.Counts()
	report.Files = len(result.Snapshot)
	report.Added = counts[change.Added]
	report.Modified = counts[change.Modified]
	report.Deleted = counts[change.Deleted]
	report.Events = result.Events
	report.Duration = s.clock().Sub(started)

	s.cycles.Add(1)

	s.mu.Lock()
	stored := *report
	s.last = &stored
	s.mu.Unlock()

	if s.config.Observer != nil {
		s.config.Observer.ObserveCycle(report.Duration, report.Files, len(report.HashFailures), report.StoreError != "")
	}
}
