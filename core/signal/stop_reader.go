package signal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// StopCommand is the line that requests a stop.
const StopCommand = "stop"

// StopMessage is printed when a stop command is read.
const StopMessage = "Stopping monitoring..."

// StopReader cancels when a "stop" line arrives on its input.
type StopReader struct {
	in     io.Reader
	out    io.Writer
	cancel context.CancelFunc
}

// NewStopReader reads commands from in and reports to out.
func NewStopReader(in io.Reader, out io.Writer, cancel context.CancelFunc) *StopReader {
	return &StopReader{in: in, out: out, cancel: cancel}
}

// Run reads lines until a stop command, end of input, or ctx is done. It
// returns true if a stop command was read. Other lines are ignored.
func (r *StopReader) Run(ctx context.Context) bool {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			if IsStopCommand(line) {
				fmt.Fprintln(r.out, StopMessage)
				r.cancel()
				return true
			}
		}
	}
}

// IsStopCommand reports whether line asks the monitor to stop.
func IsStopCommand(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), StopCommand)
}
