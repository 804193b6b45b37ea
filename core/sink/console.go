package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/adalundhe/dirsentry/core/change"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Console prints one alert line per event.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{w: w, color: color}
}

// Emit writes the alert line for event.
func (c *Console) Emit(event change.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := ConsoleLine(event)
	if c.color {
		line = colorFor(event.Kind) + line + colorReset
	}
	fmt.Fprintln(c.w, line)
}

// ConsoleLine formats the operator-facing alert for event.
func ConsoleLine(event change.Event) string {
	switch event.Kind {
	case change.Added:
		return "New file detected: " + event.Path
	case change.Modified:
		return "ALERT: " + event.Path + " has been modified!"
	case change.Deleted:
		return "ALERT: " + event.Path + " has been deleted!"
	default:
		return event.Message()
	}
}

func colorFor(kind change.Kind) string {
	switch kind {
	case change.Added:
		return colorGreen
	case change.Modified:
		return colorYellow
	default:
		return colorRed
	}
}
