package vm

import (
	"fmt"

	"github.com/nathoo/agtcore/types"
)

// Frame is a suspended caller: the command and instruction to resume at,
// its fail address, its grammar and the remainder of its scan.
type Frame struct {
	Cmd     int
	IP      int
	Fail    int
	Grammar types.Grammar
	Start   int
	End     int
	Next    int
	Wild    bool
}

// Stack is the bounded subroutine control stack.
type Stack struct {
	frames []Frame
	max    int
}

// NewStack returns an empty stack holding at most max frames.
func NewStack(max int) *Stack {
	return &Stack{max: max}
}

// Push saves a caller. Exceeding the bound is a GameError.
func (s *Stack) Push(f Frame) error {
	if s.max > 0 && len(s.frames) >= s.max {
		return &GameError{Cmd: f.Cmd, Op: "DoSubroutine", Msg: fmt.Sprintf("subroutine stack overflow (depth %d)", s.max)}
	}
	s.frames = append(s.frames, f)
	return nil
}

// Pop removes the most recent caller.
func (s *Stack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// Bottom returns the outermost caller.
func (s *Stack) Bottom() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[0], true
}

// Len returns the current depth.
func (s *Stack) Len() int { return len(s.frames) }

// Reset empties the stack.
func (s *Stack) Reset() { s.frames = s.frames[:0] }
