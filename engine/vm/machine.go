// Package vm executes metacommands: the trigger headers and bytecode bodies
// a game attaches to verbs. A scan walks every command of the verb's range
// whose header matches the grammar tuple. Subroutine calls and returns use
// an explicit control stack, so a scan never recurses.
package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/textio"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.vm")

// Defaults for Context limits.
const (
	DefaultMaxDepth        = 20
	DefaultRedirectCeiling = 100
	DefaultStepLimit       = 100000
)

// Outcome is how a command body finished.
type Outcome int

const (
	Continue Outcome = iota // try the next matching command
	StopAll                 // stop scanning; built-ins may still run
	EndTurn                 // stop scanning; the turn is complete
	Redirect                // rescan under a rewritten grammar
	Call                    // enter a subroutine
	Return                  // leave a subroutine
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case StopAll:
		return "stop"
	case EndTurn:
		return "end-turn"
	case Redirect:
		return "redirect"
	case Call:
		return "call"
	case Return:
		return "return"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Roller is the random source. Roll returns a value in [1, sides].
type Roller interface {
	Roll(sides int) int
}

// Request is a top-level action raised by a command and honoured by the
// engine once the current command finishes.
type Request int

const (
	RequestNone Request = iota
	RequestQuit
	RequestRestart
	RequestSave
	RequestRestore
)

// Host provides the interpreter services commands can invoke.
type Host interface {
	DescribeRoom()
	ListInventory()
	DescribeThing(r types.Ref)
	Emit(ev types.Event)
	Request(r Request)
}

// Context is the per-engine state a scan runs against.
type Context struct {
	World *state.World
	IO    textio.IO
	RNG   Roller
	Host  Host

	MaxDepth        int
	RedirectCeiling int
	StepLimit       int

	// Trace echoes every executed token to IO.
	Trace bool
}

func (c *Context) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}

func (c *Context) redirectCeiling() int {
	if c.RedirectCeiling > 0 {
		return c.RedirectCeiling
	}
	return DefaultRedirectCeiling
}

func (c *Context) stepLimit() int {
	if c.StepLimit > 0 {
		return c.StepLimit
	}
	return DefaultStepLimit
}

// GameError is a data error in a command body. It aborts the top-level
// command.
type GameError struct {
	Cmd    int
	Offset int
	Op     string
	Msg    string
}

func (e *GameError) Error() string {
	if e.Op == "" {
		return "GAME ERROR: " + e.Msg
	}
	return fmt.Sprintf("GAME ERROR: %s: %s (command %d, offset %d)", e.Op, e.Msg, e.Cmd, e.Offset)
}

// program is a decoded command body.
type program struct {
	code []types.Instruction
	at   map[int]int
	size int
}

// target maps a word offset to an instruction index. The end of the body
// is a valid target.
func (p *program) target(off int) (int, bool) {
	if off == p.size {
		return len(p.code), true
	}
	i, ok := p.at[off]
	return i, ok
}

// Machine decodes and runs the commands of one game database.
type Machine struct {
	defs  *state.Defs
	progs []*program
}

// New creates a Machine for defs, which must be finished.
func New(defs *state.Defs) *Machine {
	return &Machine{defs: defs, progs: make([]*program, len(defs.Commands))}
}

// Defs returns the database the machine runs.
func (m *Machine) Defs() *state.Defs { return m.defs }

func (m *Machine) program(idx int) (*program, error) {
	if p := m.progs[idx]; p != nil {
		return p, nil
	}
	code := m.defs.Commands[idx].Code
	ins, err := Decode(code)
	if err != nil {
		return nil, &GameError{Cmd: idx, Msg: err.Error()}
	}
	p := &program{code: ins, at: make(map[int]int, len(ins)), size: len(code)}
	for i, in := range ins {
		p.at[in.Offset] = i
		if in.Negate {
			p.at[in.Offset+1] = i
		}
	}
	m.progs[idx] = p
	return p, nil
}

// Verify decodes every command body and checks static references: jump
// targets, subroutine numbers and redirect labels.
func (m *Machine) Verify() error {
	d := m.defs
	for idx := range d.Commands {
		p, err := m.program(idx)
		if err != nil {
			return err
		}
		for _, ins := range p.code {
			if ins.Modes[0] != types.ModeLiteral {
				continue
			}
			arg := int(ins.Args[0])
			switch ins.Op {
			case OpGoto, OpOnFailGoto:
				if _, ok := p.target(arg); !ok {
					return &GameError{Cmd: idx, Offset: ins.Offset, Op: Name(ins.Op), Msg: fmt.Sprintf("bad jump target %d", arg)}
				}
			case OpDoSubroutine:
				if arg < 1 || arg > len(d.Subroutines) {
					return &GameError{Cmd: idx, Offset: ins.Offset, Op: Name(ins.Op), Msg: fmt.Sprintf("no subroutine %d", arg)}
				}
			case OpRedirectTo:
				if _, ok := d.LabelTarget(arg); !ok {
					return &GameError{Cmd: idx, Offset: ins.Offset, Op: Name(ins.Op), Msg: fmt.Sprintf("no label %d", arg)}
				}
			}
		}
	}
	return nil
}

// Report summarizes a scan.
type Report struct {
	Outcome   Outcome // Continue, StopAll or EndTurn
	Matched   bool    // some header matched
	Ran       bool    // an action token executed
	Grammar   types.Grammar
	Redirects int
}

// level is one scan over a verb range.
type level struct {
	g          types.Grammar
	start, end int
	next       int
	skip       int
	wild       bool
}

// exec is the execution state of one command body.
type exec struct {
	cmd  int
	prog *program
	ip   int
	fail int
}

type scanner struct {
	m       *Machine
	ctx     *Context
	stack   Stack
	ran     bool
	steps   int
	probing bool
}

func (m *Machine) levelFor(g types.Grammar, wild bool) level {
	r := m.defs.Ranges[g.Verb]
	return level{g: g, start: r.Start, end: r.End, next: r.Start, skip: -1, wild: wild}
}

// Scan runs every command matching g in order until one ends the scan.
// World changes made before a GameError are kept.
func (m *Machine) Scan(ctx *Context, g types.Grammar) (Report, error) {
	st := &scanner{m: m, ctx: ctx, stack: Stack{max: ctx.maxDepth()}}
	rep := Report{}
	lv := m.levelFor(g, false)
	var cur *exec

	finish := func(out Outcome) (Report, error) {
		rep.Outcome = out
		rep.Ran = st.ran
		rep.Grammar = lv.g
		if bottom, ok := st.stack.Bottom(); ok {
			rep.Grammar = bottom.Grammar
		}
		log.Debug("scan finished", "verb", m.defs.Dict.Word(g.Verb), "outcome", out, "ran", st.ran)
		return rep, nil
	}
	fail := func(err error) (Report, error) {
		rep.Ran = st.ran
		rep.Grammar = lv.g
		st.stack.Reset()
		return rep, err
	}
	resume := func(f Frame) error {
		lv = level{g: f.Grammar, start: f.Start, end: f.End, next: f.Next, skip: -1, wild: f.Wild}
		p, err := m.program(f.Cmd)
		if err != nil {
			return err
		}
		cur = &exec{cmd: f.Cmd, prog: p, ip: f.IP, fail: f.Fail}
		return nil
	}

	for {
		if cur == nil {
			idx := st.nextMatch(&lv)
			if idx < 0 {
				f, ok := st.stack.Pop()
				if !ok {
					return finish(Continue)
				}
				if err := resume(f); err != nil {
					return fail(err)
				}
				continue
			}
			rep.Matched = true
			p, err := m.program(idx)
			if err != nil {
				return fail(err)
			}
			cur = &exec{cmd: idx, prog: p, fail: -1}
		}

		out, arg, err := st.run(cur, &lv.g)
		if err != nil {
			return fail(err)
		}
		switch out {
		case Continue:
			cur = nil
		case StopAll, Return:
			f, ok := st.stack.Pop()
			if !ok {
				if out == StopAll {
					return finish(StopAll)
				}
				cur = nil
				continue
			}
			if err := resume(f); err != nil {
				return fail(err)
			}
		case EndTurn:
			return finish(EndTurn)
		case Redirect:
			rep.Redirects++
			if rep.Redirects > ctx.redirectCeiling() {
				return fail(&GameError{Cmd: cur.cmd, Op: "RedirectTo", Msg: "redirect loop"})
			}
			target := &m.defs.Commands[arg]
			lv = m.levelFor(m.rewrite(ctx.World, lv.g, target), false)
			lv.skip = arg
			p, err := m.program(arg)
			if err != nil {
				return fail(err)
			}
			log.Debug("redirect", "from", cur.cmd, "to", arg, "verb", m.defs.Dict.Word(lv.g.Verb))
			cur = &exec{cmd: arg, prog: p, fail: -1}
		case Call:
			err := st.stack.Push(Frame{
				Cmd:     cur.cmd,
				IP:      cur.ip,
				Fail:    cur.fail,
				Grammar: lv.g,
				Start:   lv.start,
				End:     lv.end,
				Next:    lv.next,
				Wild:    lv.wild,
			})
			if err != nil {
				return fail(err)
			}
			verb := m.defs.Subroutines[arg-1]
			lv = m.levelFor(types.Grammar{Verb: verb}, true)
			cur = nil
		}
	}
}

// nextMatch advances lv to the next command whose header matches.
func (st *scanner) nextMatch(lv *level) int {
	cmds := st.m.defs.Commands
	for lv.next < lv.end {
		i := lv.next
		lv.next++
		if i == lv.skip || cmds[i].Redirect {
			continue
		}
		if lv.wild || st.m.Matches(&cmds[i], lv.g) {
			return i
		}
	}
	return -1
}

// run executes cur until the body ends or transfers control. The int
// result is the redirect target or subroutine number.
func (st *scanner) run(cur *exec, g *types.Grammar) (Outcome, int, error) {
	code := cur.prog.code
	for cur.ip < len(code) {
		st.steps++
		if st.steps > st.ctx.stepLimit() {
			return 0, 0, &GameError{Cmd: cur.cmd, Offset: code[cur.ip].Offset, Msg: "runaway command"}
		}
		ins := code[cur.ip]

		if IsCond(ins.Op) {
			end := cur.ip
			for end < len(code) && IsCond(code[end].Op) {
				end++
			}
			ok := st.group(cur.cmd, code[cur.ip:end], g)
			cur.ip = end
			if ok {
				continue
			}
			for cur.ip < len(code) && code[cur.ip].ErrOnly {
				st.ran = true
				st.trace(cur.cmd, code[cur.ip])
				if err := st.action(cur.cmd, code[cur.ip], g); err != nil {
					return 0, 0, err
				}
				cur.ip++
			}
			if cur.fail < 0 {
				return Continue, 0, nil
			}
			cur.ip, cur.fail = cur.fail, -1
			continue
		}

		if ins.ErrOnly {
			cur.ip++
			continue
		}
		cur.ip++
		st.trace(cur.cmd, ins)

		switch ins.Op {
		case OpGoto, OpOnFailGoto:
			v, err := st.value(ins, 0, g)
			if err != nil {
				return 0, 0, st.wrap(cur.cmd, ins, err)
			}
			t, ok := cur.prog.target(v)
			if !ok {
				return 0, 0, st.errorf(cur.cmd, ins, "bad jump target %d", v)
			}
			if ins.Op == OpGoto {
				cur.ip = t
			} else {
				cur.fail = t
			}
		case OpDoSubroutine:
			v, err := st.value(ins, 0, g)
			if err != nil {
				return 0, 0, st.wrap(cur.cmd, ins, err)
			}
			if v < 1 || v > len(st.m.defs.Subroutines) {
				return 0, 0, st.errorf(cur.cmd, ins, "no subroutine %d", v)
			}
			return Call, v, nil
		case OpReturn:
			return Return, 0, nil
		case OpRedirectTo:
			v, err := st.value(ins, 0, g)
			if err != nil {
				return 0, 0, st.wrap(cur.cmd, ins, err)
			}
			idx, ok := st.m.defs.LabelTarget(v)
			if !ok {
				return 0, 0, st.errorf(cur.cmd, ins, "no label %d", v)
			}
			return Redirect, idx, nil
		case OpNextCommand:
			return Continue, 0, nil
		case OpStopScan:
			return StopAll, 0, nil
		case OpDoneWithTurn:
			return EndTurn, 0, nil
		default:
			st.ran = true
			if err := st.action(cur.cmd, ins, g); err != nil {
				return 0, 0, err
			}
			if st.ctx.World.Status != types.Playing {
				return EndTurn, 0, nil
			}
		}
	}
	return Continue, 0, nil
}

// group evaluates a conditional run: alternatives separated by OR, each a
// conjunction. Evaluation stops at the first alternative that passes, and
// the instruction pointer always lands after the whole run.
func (st *scanner) group(cmd int, code []types.Instruction, g *types.Grammar) bool {
	i := 0
	for i <= len(code) {
		ok, n := true, 0
		for ; i < len(code) && code[i].Op != OpOr; i++ {
			n++
			if ok {
				st.trace(cmd, code[i])
				ok = st.cond(code[i], g)
			}
		}
		if ok && n > 0 {
			return true
		}
		i++
	}
	return false
}

func (st *scanner) trace(cmd int, ins types.Instruction) {
	if !st.ctx.Trace || st.probing || st.ctx.IO == nil {
		return
	}
	neg := ""
	if ins.Negate {
		neg = "NOT "
	}
	if mk, ok := st.ctx.IO.(textio.Marker); ok {
		mk.Mark(types.LineTrace)
	}
	st.ctx.IO.WriteLine(fmt.Sprintf("[%d:%d %s%s %v]", cmd, ins.Offset, neg, Name(ins.Op), ins.Args[:ins.NArgs]))
}

// Matches reports whether command c's header accepts g.
func (m *Machine) Matches(c *types.Command, g types.Grammar) bool {
	if c.Verb != g.Verb {
		return false
	}
	if !c.AnyActor {
		if c.Actor == 0 {
			if g.Actor != 0 {
				return false
			}
		} else if !m.slotMatches(g.Actor, g.ActorWord, 0, c.Actor, 0, 0) {
			return false
		}
	}
	if !m.slotMatches(g.Noun, g.NounWord, g.NounAdj, c.Noun, c.NounAdj, c.NounRef) {
		return false
	}
	if c.Prep != 0 && c.Prep != g.Prep {
		return false
	}
	return m.slotMatches(g.Object, g.ObjWord, g.ObjAdj, c.Obj, c.ObjAdj, c.ObjRef)
}

func (m *Machine) slotMatches(ref types.Ref, word, adj, want, wantAdj types.WordID, wantRef types.Ref) bool {
	d := m.defs
	if wantRef != 0 {
		return ref == wantRef
	}
	if want == d.W.Noun || want == d.W.Object {
		want = 0
	}
	if want != 0 {
		if ref > 0 {
			if !d.HasName(ref, want) {
				return false
			}
		} else if word != want {
			return false
		}
	}
	if wantAdj != 0 {
		if ref > 0 {
			if _, a, _ := d.ObjectWords(ref); a != wantAdj {
				return false
			}
		} else if adj != wantAdj {
			return false
		}
	}
	return true
}

// rewrite builds the grammar a redirect target stands for. The words
// "noun" and "object" copy the corresponding slot of g; ANY keeps the
// current slot; other words bind to the entity named by them.
func (m *Machine) rewrite(w *state.World, g types.Grammar, c *types.Command) types.Grammar {
	d := m.defs
	out := g
	out.Verb = c.Verb
	if !c.AnyActor && c.Actor != 0 {
		out.Actor, out.ActorWord = m.bind(w, g.Actor, c.Actor, 0), c.Actor
	}

	type slot struct {
		ref       types.Ref
		word, adj types.WordID
		num       int
	}
	noun := slot{g.Noun, g.NounWord, g.NounAdj, g.Num}
	obj := slot{g.Object, g.ObjWord, g.ObjAdj, g.ObjNum}
	pick := func(cur slot, want, adj types.WordID, ref types.Ref) slot {
		switch {
		case ref != 0:
			name, a, _ := d.ObjectWords(ref)
			return slot{ref: ref, word: name, adj: a}
		case want == 0:
			return cur
		case want == d.W.Noun:
			return noun
		case want == d.W.Object:
			return obj
		}
		return slot{ref: m.bind(w, cur.ref, want, adj), word: want, adj: adj}
	}
	n := pick(noun, c.Noun, c.NounAdj, c.NounRef)
	o := pick(obj, c.Obj, c.ObjAdj, c.ObjRef)
	out.Noun, out.NounWord, out.NounAdj, out.Num = n.ref, n.word, n.adj, n.num
	out.Object, out.ObjWord, out.ObjAdj, out.ObjNum = o.ref, o.word, o.adj, o.num
	if c.Prep != 0 {
		out.Prep = c.Prep
	}
	return out
}

// bind finds the entity a word names: the current referent if it fits,
// then the first in-scope object, then the first object at all. Words that
// name no object bind to 0.
func (m *Machine) bind(w *state.World, cur types.Ref, word, adj types.WordID) types.Ref {
	d := m.defs
	fits := func(r types.Ref) bool {
		if !d.HasName(r, word) {
			return false
		}
		if adj == 0 {
			return true
		}
		_, a, _ := d.ObjectWords(r)
		return a == adj
	}
	if d.IsObject(cur) && fits(cur) {
		return cur
	}
	for r := d.FirstNoun(); r < d.End(); r++ {
		if w.InScope(r) && fits(r) {
			return r
		}
	}
	for r := d.FirstNoun(); r < d.End(); r++ {
		if fits(r) {
			return r
		}
	}
	return 0
}
