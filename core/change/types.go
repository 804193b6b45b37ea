// Package change classifies differences between two snapshots into change
// events.
package change

import (
	"time"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/snapshot"
)

// =============================================================================
// Kind
// =============================================================================

// Kind is the classification of a changed path.
type Kind int

const (
	// Added indicates a path present now but absent from the previous snapshot.
	Added Kind = iota

	// Modified indicates a path whose digest differs from the previous snapshot.
	Modified

	// Deleted indicates a path present previously but absent now.
	Deleted
)

// String returns a lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Message returns the change-log message for path.
func (k Kind) Message(path string) string {
	switch k {
	case Added:
		return "New file detected: " + path
	case Modified:
		return "File modified: " + path
	case Deleted:
		return "File deleted: " + path
	default:
		return "Unknown change: " + path
	}
}

// =============================================================================
// Event
// =============================================================================

// Event is one classified change. Events are values and are never mutated
// after Diff returns them.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Path is the absolute path of the file.
	Path string `json:"path"`

	// Kind is the classification.
	Kind Kind `json:"kind"`

	// Previous is the digest before the change; empty for Added.
	Previous fingerprint.Digest `json:"previous,omitempty"`

	// Current is the digest after the change; empty for Deleted.
	Current fingerprint.Digest `json:"current,omitempty"`

	// Time is when the change was detected.
	Time time.Time `json:"time"`
}

// Message returns the change-log message for the event.
func (e Event) Message() string {
	return e.Kind.Message(e.Path)
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of one comparison: the events to publish and the
// snapshot to persist.
type Result struct {
	Events   []Event
	Snapshot snapshot.Snapshot
}

// Counts returns the number of events of each kind.
func (r Result) Counts() map[Kind]int {
	counts := make(map[Kind]int, 3)
	for _, e := range r.Events {
		counts[e.Kind]++
	}
	return counts
}

// Empty reports whether the comparison found no changes.
func (r Result) Empty() bool {
	return len(r.Events) == 0
}
