// Package sink delivers change events to their consumers: the console, an
// append-only change log, an in-memory ring for the dashboard, and metrics.
// The scan cycle publishes through a Bus and never waits on a consumer.
package sink

import (
	"github.com/adalundhe/dirsentry/core/change"
)

// Sink consumes change events. Emit is called from a bus dispatch
// goroutine, one event at a time.
type Sink interface {
	Emit(event change.Event)
}
