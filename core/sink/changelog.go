package sink

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/adalundhe/dirsentry/core/storage"
)

// TimestampLayout is the timestamp format of change-log lines.
const TimestampLayout = "2006-01-02 15:04:05,000"

// ChangeLog appends one "<timestamp> - <message>" line per event to a file.
// The file is only ever appended to.
type ChangeLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
}

// OpenChangeLog opens (creating if needed) the change log at path.
func OpenChangeLog(path string, logger *slog.Logger) (*ChangeLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := storage.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create change log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}

	return &ChangeLog{path: path, file: f, logger: logger}, nil
}

// Path returns the change log location.
func (l *ChangeLog) Path() string {
	return l.path
}

// FormatLine renders the change-log line for event, without newline.
func FormatLine(event change.Event) string {
	return event.Time.Format(TimestampLayout) + " - " + event.Message()
}

// Emit appends the line for event. Write failures are logged, not returned.
func (l *ChangeLog) Emit(event change.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	if _, err := l.file.WriteString(FormatLine(event) + "\n"); err != nil {
		l.logger.Error("failed to append change log",
			"path", l.path,
			"error", err,
		)
	}
}

// Lines reads every line currently in the log.
func (l *ChangeLog) Lines() ([]string, error) {
	return ReadLines(l.path)
}

// Close closes the underlying file.
func (l *ChangeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLines returns the lines of the change log at path. A missing log reads
// as empty.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// Tail returns the last n lines, or all of them when n <= 0.
func Tail(lines []string, n int) []string {
	if n <= 0 || n >= len(lines) {
		return lines
	}
	return lines[len(lines)-n:]
}

// ParseLine splits a change-log line into its timestamp and message.
func ParseLine(line string) (time.Time, string, error) {
	const sep = " - "
	if len(line) < len(TimestampLayout)+len(sep) {
		return time.Time{}, "", fmt.Errorf("short change log line: %q", line)
	}
	ts, err := time.ParseInLocation(TimestampLayout, line[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, "", err
	}
	rest := line[len(TimestampLayout):]
	if rest[:len(sep)] != sep {
		return time.Time{}, "", fmt.Errorf("missing separator: %q", line)
	}
	return ts, rest[len(sep):], nil
}
