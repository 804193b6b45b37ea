package sink

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testTime = time.Date(2026, 10, 19, 9, 30, 15, 250*int(time.Millisecond), time.Local)

func event(path string, kind change.Kind) change.Event {
	return change.Event{ID: path + kind.String(), Path: path, Kind: kind, Time: testTime}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink collects events, optionally blocking until released.
type recordingSink struct {
	mu      sync.Mutex
	events  []change.Event
	release chan struct{}
	closed  bool
}

func (r *recordingSink) Emit(e change.Event) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// panicSink fails every delivery.
type panicSink struct{}

func (panicSink) Emit(change.Event) { panic("boom") }

func (r *recordingSink) snapshot() []change.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]change.Event(nil), r.events...)
}

// =============================================================================
// Bus Tests
// =============================================================================

func TestBus_DeliversToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	bus := NewBus(BusConfig{BufferSize: 8, Logger: quietLogger(), Lossy: []Sink{a, b}})

	bus.Publish(event("/x/1", change.Added))
	bus.Publish(event("/x/2", change.Deleted))
	require.NoError(t, bus.Close())

	assert.Len(t, a.snapshot(), 2)
	assert.Len(t, b.snapshot(), 2)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, uint64(2), bus.Delivered())
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	slow := &recordingSink{release: make(chan struct{})}
	bus := NewBus(BusConfig{BufferSize: 2, Logger: quietLogger(), Lossy: []Sink{slow}})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(event(fmt.Sprintf("/x/%d", i), change.Added))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled sink")
	}

	assert.Greater(t, bus.Dropped(), uint64(0))

	close(slow.release)
	require.NoError(t, bus.Close())
	assert.Equal(t, uint64(50), bus.Dropped()+bus.Delivered())
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(BusConfig{BufferSize: 4, Logger: quietLogger()})
	require.NoError(t, bus.Close())

	assert.False(t, bus.Publish(event("/x", change.Added)))
	assert.Equal(t, uint64(1), bus.Dropped())
	assert.NoError(t, bus.Close())
}

func TestBus_PanickingSinkIsolated(t *testing.T) {
	good := &recordingSink{}
	bus := NewBus(BusConfig{
		BufferSize: 4,
		Logger:     quietLogger(),
		Durable:    []Sink{panicSink{}, good},
		Lossy:      []Sink{panicSink{}},
	})

	bus.Publish(event("/x", change.Modified))
	require.NoError(t, bus.Close())

	assert.Len(t, good.snapshot(), 1)
}

func TestBus_DurableSinksReceiveEveryEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_monitor.log")
	changeLog, err := OpenChangeLog(path, quietLogger())
	require.NoError(t, err)

	stalled := &recordingSink{release: make(chan struct{})}
	bus := NewBus(BusConfig{
		BufferSize: DefaultBufferSize,
		Logger:     quietLogger(),
		Durable:    []Sink{changeLog},
		Lossy:      []Sink{stalled},
	})

	total := DefaultBufferSize*3 + 17
	for i := 0; i < total; i++ {
		bus.Publish(event(fmt.Sprintf("/x/%d", i), change.Added))
	}
	assert.Greater(t, bus.Dropped(), uint64(0), "lossy sinks overflow")

	close(stalled.release)
	require.NoError(t, bus.Close())

	lines, err := ReadLines(path)
	require.NoError(t, err)
	require.Len(t, lines, total)
	assert.True(t, strings.HasSuffix(lines[0], "New file detected: /x/0"))
	assert.True(t, strings.HasSuffix(lines[total-1], fmt.Sprintf("New file detected: /x/%d", total-1)))
}

func TestBus_DurableSinkDoesNotBlockPublish(t *testing.T) {
	slow := &recordingSink{release: make(chan struct{})}
	bus := NewBus(BusConfig{BufferSize: 2, Logger: quietLogger(), Durable: []Sink{slow}})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(event(fmt.Sprintf("/x/%d", i), change.Added))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled durable sink")
	}

	close(slow.release)
	require.NoError(t, bus.Close())
	assert.Len(t, slow.snapshot(), 50)
	assert.True(t, slow.closed)
}

// =============================================================================
// Console Tests
// =============================================================================

func TestConsole_Lines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.Emit(event("/srv/a", change.Added))
	c.Emit(event("/srv/b", change.Modified))
	c.Emit(event("/srv/c", change.Deleted))

	assert.Equal(t,
		"New file detected: /srv/a\n"+
			"ALERT: /srv/b has been modified!\n"+
			"ALERT: /srv/c has been deleted!\n",
		buf.String())
}

func TestConsole_Color(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, true).Emit(event("/srv/a", change.Deleted))

	assert.True(t, strings.HasPrefix(buf.String(), colorRed))
	assert.Contains(t, buf.String(), colorReset)
}

// =============================================================================
// ChangeLog Tests
// =============================================================================

func TestChangeLog_AppendsFormattedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "file_monitor.log")
	log, err := OpenChangeLog(path, quietLogger())
	require.NoError(t, err)

	log.Emit(event("/srv/a", change.Added))
	log.Emit(event("/srv/b", change.Modified))
	log.Emit(event("/srv/c", change.Deleted))

	lines, err := log.Lines()
	require.NoError(t, err)
	require.NoError(t, log.Close())

	assert.Equal(t, []string{
		"2026-10-19 09:30:15,250 - New file detected: /srv/a",
		"2026-10-19 09:30:15,250 - File modified: /srv/b",
		"2026-10-19 09:30:15,250 - File deleted: /srv/c",
	}, lines)
}

func TestChangeLog_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_monitor.log")

	first, err := OpenChangeLog(path, quietLogger())
	require.NoError(t, err)
	first.Emit(event("/a", change.Added))
	require.NoError(t, first.Close())

	second, err := OpenChangeLog(path, quietLogger())
	require.NoError(t, err)
	second.Emit(event("/a", change.Deleted))
	require.NoError(t, second.Close())

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestChangeLog_EmitAfterCloseIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_monitor.log")
	log, err := OpenChangeLog(path, quietLogger())
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log.Emit(event("/a", change.Added))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadLines_MissingFile(t *testing.T) {
	lines, err := ReadLines(filepath.Join(t.TempDir(), "absent.log"))
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestTail(t *testing.T) {
	lines := []string{"a", "b", "c"}
	assert.Equal(t, []string{"b", "c"}, Tail(lines, 2))
	assert.Equal(t, lines, Tail(lines, 0))
	assert.Equal(t, lines, Tail(lines, 10))
}

func TestParseLine(t *testing.T) {
	ts, msg, err := ParseLine(FormatLine(event("/srv/a", change.Modified)))
	require.NoError(t, err)
	assert.True(t, ts.Equal(testTime))
	assert.Equal(t, "File modified: /srv/a", msg)

	_, _, err = ParseLine("garbage")
	assert.Error(t, err)
}

// =============================================================================
// Ring Tests
// =============================================================================

func TestRing_KeepsNewestOldestFirst(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Emit(event(fmt.Sprintf("/%d", i), change.Added))
	}

	recent := r.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "/2", recent[0].Path)
	assert.Equal(t, "/3", recent[1].Path)
	assert.Equal(t, "/4", recent[2].Path)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, uint64(5), r.Total())
}

func TestRing_Limit(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 4; i++ {
		r.Emit(event(fmt.Sprintf("/%d", i), change.Added))
	}

	recent := r.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "/2", recent[0].Path)
	assert.Equal(t, "/3", recent[1].Path)
}

func TestRing_Empty(t *testing.T) {
	assert.Empty(t, NewRing(0).Recent(5))
}

func TestRing_RecentIsCopy(t *testing.T) {
	r := NewRing(2)
	r.Emit(event("/a", change.Added))

	got := r.Recent(0)
	got[0].Path = "/mutated"

	assert.Equal(t, "/a", r.Recent(0)[0].Path)
}

// =============================================================================
// Metrics Tests
// =============================================================================

func TestMetrics_CountsByKind(t *testing.T) {
	m := NewMetrics()
	m.Emit(event("/a", change.Added))
	m.Emit(event("/b", change.Added))
	m.Emit(event("/c", change.Deleted))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("deleted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.changes.WithLabelValues("modified")))
}

func TestMetrics_ObserveCycle(t *testing.T) {
	m := NewMetrics()
	m.ObserveCycle(150*time.Millisecond, 42, 2, true)
	m.ObserveCycle(100*time.Millisecond, 40, 0, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.hashFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.trackedFiles))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Emit(event("/a", change.Modified))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `dirsentry_changes_total{kind="modified"} 1`)
}
