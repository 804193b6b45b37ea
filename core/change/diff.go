package change

import (
	"sort"
	"time"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/google/uuid"
)

// Diff compares current against previous. Paths only in current are Added,
// paths in both with different digests are Modified, and paths only in
// previous are Deleted. Equal digests produce no event. The returned
// snapshot is a copy of current; neither input is modified.
//
// Events are ordered by path so output is stable, but callers must not rely
// on ordering for meaning.
func Diff(previous, current snapshot.Snapshot, now time.Time) Result {
	var events []Event

	for path, digest := range current {
		prev, existed := previous[path]
		switch {
		case !existed:
			events = append(events, newEvent(path, Added, "", digest, now))
		case prev != digest:
			events = append(events, newEvent(path, Modified, prev, digest, now))
		}
	}

	for path, prev := range previous {
		if _, exists := current[path]; !exists {
			events = append(events, newEvent(path, Deleted, prev, "", now))
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Path < events[j].Path
	})

	return Result{Events: events, Snapshot: current.Clone()}
}

func newEvent(path string, kind Kind, prev, cur fingerprint.Digest, now time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Path:     path,
		Kind:     kind,
		Previous: prev,
		Current:  cur,
		Time:     now,
	}
}
