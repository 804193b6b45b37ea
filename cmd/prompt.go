package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/adalundhe/dirsentry/core/tree"
)

const (
	promptText      = "Enter a directory to monitor (or press Enter to finish): "
	noRootsMessage  = "No directories provided for monitoring. Exiting..."
	invalidDirText  = "Error: %s is not a valid directory.\n"
	accessErrorText = "Error: Could not access %s.\n"
	monitoringText  = "Monitoring directories: %s\n"
	stoppedMessage  = "Monitoring has been stopped."
	stopHintMessage = "Type 'stop' and press Enter to stop monitoring."
)

// promptDirectories asks for directories one per line until an empty line
// or end of input. Invalid entries are reported and skipped.
func promptDirectories(in *bufio.Reader, out io.Writer) []string {
	var dirs []string
	for {
		fmt.Fprint(out, promptText)
		line, err := in.ReadString('\n')
		entry := strings.TrimSpace(line)
		if entry == "" {
			if err != nil {
				fmt.Fprintln(out)
			}
			return dirs
		}

		if validateErr := tree.ValidateRoot(entry); validateErr != nil {
			fmt.Fprintf(out, invalidDirText, entry)
		} else {
			dirs = append(dirs, entry)
		}

		if err != nil {
			fmt.Fprintln(out)
			return dirs
		}
	}
}

// filterDirectories drops and reports candidates that are not directories.
func filterDirectories(candidates []string, out io.Writer) []string {
	var dirs []string
	for _, d := range candidates {
		if err := tree.ValidateRoot(d); err != nil {
			fmt.Fprintf(out, invalidDirText, d)
			continue
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// formatRoots renders roots the way the monitoring banner shows them.
func formatRoots(roots []string) string {
	quoted := make([]string, len(roots))
	for i, r := range roots {
		quoted[i] = "'" + r + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
