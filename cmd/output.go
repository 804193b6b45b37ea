package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"
)

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// useColor decides whether to colour output written to w.
func useColor(enabled bool, w io.Writer) bool {
	return enabled && isTerminal(w)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func paint(enabled bool, color, text string) string {
	if !enabled {
		return text
	}
	return color + text + colorReset
}

// syncWriter serializes writes from the sink dispatcher and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
