package vm

import (
	"fmt"

	"github.com/nathoo/agtcore/types"
)

// Word packs an opcode and its two argument modes into an instruction word.
func Word(op types.Opcode, m1, m2 types.ArgMode) int32 {
	return int32(op) | int32(m1)<<mode1Shift | int32(m2)<<mode2Shift
}

// Decode turns an encoded command body into instructions. A NOT marker is
// folded into the conditional that follows it; that instruction keeps the
// marker's offset so jumps to either word land on it.
func Decode(code []int32) ([]types.Instruction, error) {
	var out []types.Instruction
	negate, notAt := false, 0
	for i := 0; i < len(code); {
		w := code[i]
		op := types.Opcode(w & opMask)
		if op == OpNot {
			if negate {
				return nil, fmt.Errorf("offset %d: repeated NOT", i)
			}
			negate, notAt = true, i
			i++
			continue
		}
		info, ok := opTable[op]
		if !ok {
			return nil, fmt.Errorf("offset %d: unknown opcode %d", i, op)
		}
		n := len(info.Args)
		if i+1+n > len(code) {
			return nil, fmt.Errorf("offset %d: %s needs %d arguments", i, info.Name, n)
		}
		ins := types.Instruction{
			Op:      op,
			NArgs:   n,
			ErrOnly: info.ErrOnly,
			Offset:  i,
		}
		ins.Modes[0] = types.ArgMode(w >> mode1Shift & 3)
		ins.Modes[1] = types.ArgMode(w >> mode2Shift & 3)
		for j := 0; j < n; j++ {
			ins.Args[j] = code[i+1+j]
		}
		if negate {
			if !IsCond(op) || op == OpOr {
				return nil, fmt.Errorf("offset %d: NOT before %s", notAt, info.Name)
			}
			ins.Negate = true
			ins.Offset = notAt
			negate = false
		}
		out = append(out, ins)
		i += 1 + n
	}
	if negate {
		return nil, fmt.Errorf("offset %d: trailing NOT", notAt)
	}
	return out, nil
}

// Encode is the inverse of Decode. Offsets are ignored.
func Encode(code []types.Instruction) []int32 {
	var out []int32
	for _, ins := range code {
		if ins.Negate {
			out = append(out, int32(OpNot))
		}
		out = append(out, Word(ins.Op, ins.Modes[0], ins.Modes[1]))
		out = append(out, ins.Args[:ins.NArgs]...)
	}
	return out
}

// Arg is an instruction argument for the assembler.
type Arg struct {
	Mode types.ArgMode
	Val  int32
}

// Lit is a literal argument.
func Lit(v int) Arg { return Arg{Mode: types.ModeLiteral, Val: int32(v)} }

// Var reads variable n.
func Var(n int) Arg { return Arg{Mode: types.ModeVariable, Val: int32(n)} }

// Noun and Object read the current grammar slots.
var (
	Noun   = Arg{Mode: types.ModeNoun}
	Object = Arg{Mode: types.ModeObject}
)

type fixup struct {
	at    int
	label string
}

// Asm assembles a command body. Jump targets are named marks resolved by
// Code. The first error sticks and is returned by Code.
type Asm struct {
	code   []int32
	marks  map[string]int
	fixups []fixup
	err    error
}

// NewAsm returns an empty assembler.
func NewAsm() *Asm {
	return &Asm{marks: map[string]int{}}
}

// Emit appends op with args. The argument count must match the opcode.
func (a *Asm) Emit(op types.Opcode, args ...Arg) *Asm {
	info, ok := opTable[op]
	if !ok || op == OpNot {
		a.fail(fmt.Errorf("unknown opcode %d", op))
		return a
	}
	if len(args) != len(info.Args) {
		a.fail(fmt.Errorf("%s takes %d arguments, got %d", info.Name, len(info.Args), len(args)))
		return a
	}
	var modes [2]types.ArgMode
	for i, arg := range args {
		modes[i] = arg.Mode
	}
	a.code = append(a.code, Word(op, modes[0], modes[1]))
	for _, arg := range args {
		a.code = append(a.code, arg.Val)
	}
	return a
}

// Not negates the next conditional.
func (a *Asm) Not() *Asm {
	a.code = append(a.code, int32(OpNot))
	return a
}

// Or separates alternatives of a conditional group.
func (a *Asm) Or() *Asm { return a.Emit(OpOr) }

// Mark names the current offset as a jump target.
func (a *Asm) Mark(name string) *Asm {
	if _, dup := a.marks[name]; dup {
		a.fail(fmt.Errorf("duplicate mark %q", name))
	}
	a.marks[name] = len(a.code)
	return a
}

// Goto jumps to a mark.
func (a *Asm) Goto(name string) *Asm { return a.jump(OpGoto, name) }

// OnFailGoto makes the next failing conditional jump to a mark.
func (a *Asm) OnFailGoto(name string) *Asm { return a.jump(OpOnFailGoto, name) }

func (a *Asm) jump(op types.Opcode, name string) *Asm {
	a.code = append(a.code, Word(op, 0, 0), 0)
	a.fixups = append(a.fixups, fixup{at: len(a.code) - 1, label: name})
	return a
}

func (a *Asm) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

// Code resolves jumps and returns the encoded body.
func (a *Asm) Code() ([]int32, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, f := range a.fixups {
		at, ok := a.marks[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined mark %q", f.label)
		}
		a.code[f.at] = int32(at)
	}
	return a.code, nil
}
