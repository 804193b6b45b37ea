package change

import (
	"fmt"
	"testing"
	"time"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func h(content string) fingerprint.Digest {
	return fingerprint.NewHasher(fingerprint.SHA256).HashBytes([]byte(content))
}

func kindsByPath(events []Event) map[string]Kind {
	out := make(map[string]Kind, len(events))
	for _, e := range events {
		out[e.Path] = e.Kind
	}
	return out
}

// =============================================================================
// Kind Tests
// =============================================================================

func TestKind_String(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestKind_Message(t *testing.T) {
	assert.Equal(t, "New file detected: /x/a.txt", Added.Message("/x/a.txt"))
	assert.Equal(t, "File modified: /x/a.txt", Modified.Message("/x/a.txt"))
	assert.Equal(t, "File deleted: /x/a.txt", Deleted.Message("/x/a.txt"))
}

// =============================================================================
// Scenario Tests
// =============================================================================

func TestDiff_EmptyPreviousReportsAdded(t *testing.T) {
	current := snapshot.Snapshot{"a.txt": h("hello")}

	result := Diff(snapshot.Snapshot{}, current, testTime)

	require.Len(t, result.Events, 1)
	ev := result.Events[0]
	assert.Equal(t, "a.txt", ev.Path)
	assert.Equal(t, Added, ev.Kind)
	assert.Equal(t, h("hello"), ev.Current)
	assert.Empty(t, ev.Previous)
	assert.Equal(t, testTime, ev.Time)
	assert.NotEmpty(t, ev.ID)
	assert.True(t, result.Snapshot.Equal(snapshot.Snapshot{"a.txt": h("hello")}))
}

func TestDiff_ChangedDigestReportsModified(t *testing.T) {
	previous := snapshot.Snapshot{"a.txt": h("v1")}
	current := snapshot.Snapshot{"a.txt": h("v2")}

	result := Diff(previous, current, testTime)

	require.Len(t, result.Events, 1)
	assert.Equal(t, Modified, result.Events[0].Kind)
	assert.Equal(t, h("v1"), result.Events[0].Previous)
	assert.Equal(t, h("v2"), result.Events[0].Current)
}

func TestDiff_MissingPathReportsDeleted(t *testing.T) {
	previous := snapshot.Snapshot{"a.txt": h("a"), "b.txt": h("b")}
	current := snapshot.Snapshot{"a.txt": h("a")}

	result := Diff(previous, current, testTime)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "b.txt", result.Events[0].Path)
	assert.Equal(t, Deleted, result.Events[0].Kind)
	assert.Equal(t, h("b"), result.Events[0].Previous)
	assert.True(t, result.Snapshot.Equal(snapshot.Snapshot{"a.txt": h("a")}))
}

// =============================================================================
// Property Tests
// =============================================================================

func TestDiff_Idempotent(t *testing.T) {
	s := snapshot.Snapshot{"a": h("a"), "b": h("b"), "empty": h("")}

	result := Diff(s, s.Clone(), testTime)

	assert.True(t, result.Empty())
	assert.True(t, result.Snapshot.Equal(s))
}

func TestDiff_NilInputs(t *testing.T) {
	result := Diff(nil, nil, testTime)
	assert.True(t, result.Empty())
	assert.NotNil(t, result.Snapshot)
	assert.Empty(t, result.Snapshot)
}

func TestDiff_CompleteClassification(t *testing.T) {
	previous := snapshot.Snapshot{}
	current := snapshot.Snapshot{}
	want := map[string]Kind{}

	for i := 0; i < 25; i++ {
		unchanged := fmt.Sprintf("unchanged-%d", i)
		previous[unchanged] = h(unchanged)
		current[unchanged] = h(unchanged)

		added := fmt.Sprintf("added-%d", i)
		current[added] = h(added)
		want[added] = Added

		modified := fmt.Sprintf("modified-%d", i)
		previous[modified] = h(modified + "-old")
		current[modified] = h(modified + "-new")
		want[modified] = Modified

		deleted := fmt.Sprintf("deleted-%d", i)
		previous[deleted] = h(deleted)
		want[deleted] = Deleted
	}

	result := Diff(previous, current, testTime)

	assert.Len(t, result.Events, len(want), "no duplicates or omissions")
	assert.Equal(t, want, kindsByPath(result.Events))

	counts := result.Counts()
	assert.Equal(t, 25, counts[Added])
	assert.Equal(t, 25, counts[Modified])
	assert.Equal(t, 25, counts[Deleted])
}

func TestDiff_DoesNotMutateInputs(t *testing.T) {
	previous := snapshot.Snapshot{"a": h("a"), "gone": h("gone")}
	current := snapshot.Snapshot{"a": h("a2"), "new": h("new")}
	prevCopy := previous.Clone()
	curCopy := current.Clone()

	result := Diff(previous, current, testTime)
	result.Snapshot["extra"] = h("extra")

	assert.True(t, previous.Equal(prevCopy))
	assert.True(t, current.Equal(curCopy))
}

func TestDiff_EventsSortedByPath(t *testing.T) {
	previous := snapshot.Snapshot{"c": h("c")}
	current := snapshot.Snapshot{"b": h("b"), "a": h("a")}

	result := Diff(previous, current, testTime)

	require.Len(t, result.Events, 3)
	assert.Equal(t, "a", result.Events[0].Path)
	assert.Equal(t, "b", result.Events[1].Path)
	assert.Equal(t, "c", result.Events[2].Path)
}

func TestDiff_UniqueEventIDs(t *testing.T) {
	current := snapshot.Snapshot{"a": h("a"), "b": h("b"), "c": h("c")}

	result := Diff(nil, current, testTime)

	ids := map[string]struct{}{}
	for _, e := range result.Events {
		ids[e.ID] = struct{}{}
	}
	assert.Len(t, ids, 3)
}

func TestEvent_Message(t *testing.T) {
	ev := Event{Path: "/srv/site/index.html", Kind: Modified}
	assert.Equal(t, "File modified: /srv/site/index.html", ev.Message())
}
