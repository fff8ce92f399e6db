// Package textio defines the blocking text interface the interpreter talks
// to, and the capture buffer the engine uses to collect a turn's output.
package textio

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nathoo/agtcore/types"
)

// IO is the interactive text surface seen by the interpreter. All calls
// block from the interpreter's point of view.
type IO interface {
	Write(text string)
	WriteLine(text string)
	ReadLine() (string, error)
	ReadChar() (rune, error)
	AskYesNo(prompt string) bool
}

// Prompter answers a blocking read. pending holds output produced since the
// last prompt, which the front-end shows before asking.
type Prompter interface {
	Prompt(pending []string, prompt string) (string, error)
}

// Marker is implemented by outputs that keep a kind per line. Mark sets the
// kind of the line being written.
type Marker interface {
	Mark(kind types.LineKind)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(pending []string, prompt string) (string, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(pending []string, prompt string) (string, error) {
	return f(pending, prompt)
}

// ErrNoInput is returned by reads when no Prompter is attached.
var ErrNoInput = errors.New("no input available")

// Capture collects output lines for the current turn and forwards blocking
// reads to a Prompter.
type Capture struct {
	In Prompter

	lines   []string
	kinds   []types.LineKind
	kind    types.LineKind
	partial strings.Builder
	open    bool
}

// NewCapture returns a capture that reads from in, which may be nil.
func NewCapture(in Prompter) *Capture {
	return &Capture{In: in}
}

// Write appends text to the current line. Embedded newlines split lines.
func (c *Capture) Write(text string) {
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		c.partial.WriteString(text[:i])
		c.endLine()
		text = text[i+1:]
	}
	if text != "" {
		c.partial.WriteString(text)
		c.open = true
	}
}

// WriteLine appends text and ends the line.
func (c *Capture) WriteLine(text string) {
	c.Write(text)
	c.endLine()
}

// Mark implements Marker. The kind applies until the line ends.
func (c *Capture) Mark(kind types.LineKind) { c.kind = kind }

func (c *Capture) endLine() {
	c.lines = append(c.lines, c.partial.String())
	c.kinds = append(c.kinds, c.kind)
	c.partial.Reset()
	c.open = false
	c.kind = types.LineText
}

// Drain returns the lines written since the last Drain or prompt. An
// unterminated line is included.
func (c *Capture) Drain() []string {
	lines, _ := c.DrainKinds()
	return lines
}

// DrainKinds is Drain that also returns the kind of each line.
func (c *Capture) DrainKinds() ([]string, []types.LineKind) {
	if c.open {
		c.endLine()
	}
	lines, kinds := c.lines, c.kinds
	c.lines, c.kinds = nil, nil
	return lines, kinds
}

// ReadLine flushes pending output to the prompter and returns its answer.
func (c *Capture) ReadLine() (string, error) {
	return c.prompt("")
}

func (c *Capture) prompt(p string) (string, error) {
	if c.In == nil {
		return "", ErrNoInput
	}
	return c.In.Prompt(c.Drain(), p)
}

// ReadChar reads a line and returns its first non-blank rune. An empty
// answer reads as a newline.
func (c *Capture) ReadChar() (rune, error) {
	line, err := c.ReadLine()
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return '\n', nil
	}
	r, _ := utf8.DecodeRuneInString(line)
	return r, nil
}

// AskYesNo asks until the answer starts with y or n. A read error counts
// as no.
func (c *Capture) AskYesNo(prompt string) bool {
	for i := 0; i < 5; i++ {
		ans, err := c.prompt(prompt)
		if err != nil {
			return false
		}
		ans = strings.ToLower(strings.TrimSpace(ans))
		switch {
		case strings.HasPrefix(ans, "y"):
			return true
		case strings.HasPrefix(ans, "n"):
			return false
		}
		prompt = "Please answer yes or no."
	}
	return false
}

// Script is a Prompter that replays fixed answers. Output handed to it is
// kept in Shown.
type Script struct {
	Answers []string
	Prompts []string
	Shown   []string
}

// NewScript returns a Script answering with answers in order.
func NewScript(answers ...string) *Script {
	return &Script{Answers: answers}
}

// Prompt implements Prompter. It returns io.EOF when out of answers.
func (s *Script) Prompt(pending []string, prompt string) (string, error) {
	s.Shown = append(s.Shown, pending...)
	s.Prompts = append(s.Prompts, prompt)
	if len(s.Answers) == 0 {
		return "", io.EOF
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}
