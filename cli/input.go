package cli

import (
	"bufio"
	"io"
	"os"

	"github.com/peterh/liner"
)

// Terminal is a LineReader backed by liner, with history kept in a file.
type Terminal struct {
	*liner.State
	histPath string
}

// OpenTerminal starts line editing on the controlling terminal. Ctrl-C
// aborts the prompt. History is read from histPath if it exists.
func OpenTerminal(histPath string) *Terminal {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &Terminal{State: ln, histPath: histPath}
}

// Close writes the history file and restores the terminal.
func (t *Terminal) Close() error {
	if t.histPath != "" {
		if f, err := os.Create(t.histPath); err == nil {
			_, _ = t.WriteHistory(f)
			_ = f.Close()
		}
	}
	return t.State.Close()
}

// Script is a LineReader over a fixed input, for replaying command files.
type Script struct {
	scanner *bufio.Scanner
}

// NewScript reads lines from r.
func NewScript(r io.Reader) *Script {
	return &Script{scanner: bufio.NewScanner(r)}
}

// Prompt returns the next line, or io.EOF when the script is done.
func (s *Script) Prompt(string) (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
