// Package engine provides the Step() orchestrator that wires together
// tokenizing, parsing, disambiguation, the metacommand VM and the built-in
// verbs into a single turn. It also owns the clarifying-question state,
// the undo ring and the restart snapshot.
package engine

import (
	"errors"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/events"
	"github.com/nathoo/agtcore/engine/match"
	"github.com/nathoo/agtcore/engine/parser"
	"github.com/nathoo/agtcore/engine/resolve"
	"github.com/nathoo/agtcore/engine/save"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/textio"
	"github.com/nathoo/agtcore/engine/token"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.engine")

// DefaultUndoDepth is the number of turns UNDO can step back.
const DefaultUndoDepth = 8

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	MaxWords        int
	MaxStackDepth   int
	RedirectCeiling int
	UndoDepth       int // negative disables UNDO
	Strict          bool
	Trace           bool
	Seed            int64
}

func (o Options) withDefaults() Options {
	if o.MaxWords <= 0 {
		o.MaxWords = token.DefaultMaxWords
	}
	if o.MaxStackDepth <= 0 {
		o.MaxStackDepth = vm.DefaultMaxDepth
	}
	if o.RedirectCeiling <= 0 {
		o.RedirectCeiling = vm.DefaultRedirectCeiling
	}
	if o.UndoDepth == 0 {
		o.UndoDepth = DefaultUndoDepth
	}
	return o
}

// Saver stores the block written by an in-game SAVE and supplies the one
// read back by RESTORE.
type Saver interface {
	SaveBlock(block []byte) error
	LoadBlock() ([]byte, error)
}

// Engine holds the game definitions, the world and the interpreter state
// that survives between steps.
type Engine struct {
	Defs   *state.Defs
	World  *state.World
	RNG    *RNG
	Events *events.Bus
	Saver  Saver

	opts     Options
	out      *textio.Capture
	machine  *vm.Machine
	matcher  *match.Matcher
	parser   *parser.Parser
	resolver *resolve.Resolver
	codec    *save.Codec

	initial  []byte
	undo     [][]byte
	lineSnap []byte // state before the current line, pushed when a turn runs
	asking   *awaiting
	oops     *oopsPoint
	requests []vm.Request
	emitted  []types.Event
}

// awaiting is a sentence suspended on a clarifying question. A nil
// *awaiting means the engine is idle.
type awaiting struct {
	pending  resolve.Pending
	sentence types.Sentence
	rest     [][]token.Token
	line     string
}

// oopsPoint remembers the unknown word of the last failed line.
type oopsPoint struct {
	line string
	tok  token.Token
}

// New creates an engine for finished definitions.
func New(defs *state.Defs, opts Options) *Engine {
	opts = opts.withDefaults()
	w := state.NewWorld(defs)
	e := &Engine{
		Defs:    defs,
		World:   w,
		RNG:     NewRNG(opts.Seed),
		Events:  events.NewBus(),
		opts:    opts,
		out:     textio.NewCapture(nil),
		machine: vm.New(defs),
		codec:   save.NewCodec(defs),
	}
	e.matcher = match.New(defs, w)
	e.parser = parser.New(defs, w, e.matcher)
	e.resolver = resolve.New(defs, w, resolve.ProberFunc(e.probe))
	e.resolver.Strict = opts.Strict
	e.RNG.Store(w)
	e.initial = e.codec.Encode(w)
	return e
}

// SetPrompter sets where blocking reads (yes/no questions, input actions)
// are answered. Nil makes every read fail.
func (e *Engine) SetPrompter(p textio.Prompter) { e.out.In = p }

// SetTrace turns instruction tracing on or off.
func (e *Engine) SetTrace(on bool) { e.opts.Trace = on }

// Trace reports whether instruction tracing is on.
func (e *Engine) Trace() bool { return e.opts.Trace }

// Asking reports whether a clarifying question is pending.
func (e *Engine) Asking() bool { return e.asking != nil }

// Over reports whether the game has ended.
func (e *Engine) Over() bool { return e.World.Status != types.Playing }

// Intro returns the opening text: title, introduction and first room.
func (e *Engine) Intro() types.Result {
	e.emitted = nil
	if t := e.Defs.Game.Title; t != "" {
		e.say(t)
	}
	if in := e.Defs.Game.Intro; in != "" {
		e.say(in)
	}
	e.describeRoom()
	e.World.ClearFirstVisit()
	return e.result()
}

// Look describes the current room without spending a turn. Front ends
// call it after restoring from a slot, which also delivers the restore
// event.
func (e *Engine) Look() types.Result {
	e.describeRoom()
	return e.result()
}

// Step processes one line of player input and returns the result.
func (e *Engine) Step(input string) types.Result {
	e.emitted = nil
	e.line(strings.TrimSpace(input))
	return e.result()
}

func (e *Engine) result() types.Result {
	lines, kinds := e.out.DrainKinds()
	r := types.Result{
		Output: lines,
		Kinds:  kinds,
		Events: e.emitted,
		Asking: e.asking != nil,
	}
	e.Events.Dispatch(e.emitted)
	e.emitted = nil
	return r
}

func (e *Engine) line(input string) {
	// 0. Game over: only UNDO and RESTART remain.
	if e.Over() {
		switch strings.ToLower(input) {
		case "undo":
			e.undoLast()
		case "restart":
			e.restart()
		default:
			e.say("The game is over. Type RESTART or UNDO, or restore a saved game.")
		}
		return
	}

	res := token.Tokenize(e.Defs, input, e.opts.MaxWords)
	words := res.Words()
	if res.Truncated {
		log.Debug("input truncated", "max", e.opts.MaxWords)
	}

	// 1. Pre-parse special forms.
	if len(words) == 0 {
		e.say("I beg your pardon?")
		return
	}
	if len(words) == 1 && words[0].ID == e.Defs.W.Undo {
		e.asking = nil
		e.undoLast()
		return
	}
	if words[0].ID == e.Defs.W.Oops {
		e.correct(words[1:])
		return
	}

	// 2. An answer to a clarifying question resumes the suspended sentence.
	if a := e.asking; a != nil {
		e.asking = nil
		if merged := e.answer(a, words); merged != nil {
			e.resume(a, merged)
			return
		}
		log.Debug("answer did not narrow the choice, treating as a command")
	}

	// 3. A new command.
	e.oops = nil
	e.armUndo()
	e.sentences(res.Sentences, input)
}

// sentences runs each sentence in turn, stopping at the first failure.
func (e *Engine) sentences(sents [][]token.Token, line string) {
	for i, toks := range sents {
		s, err := e.parser.Parse(toks)
		if err != nil {
			var pe *parser.Error
			if errors.As(err, &pe) && pe.Code == parser.UnknownWord && pe.Pos >= 0 && pe.Pos < len(toks) {
				e.oops = &oopsPoint{line: line, tok: toks[pe.Pos]}
			}
			e.sayAs(types.LineError, err.Error())
			return
		}
		if !e.sentence(s, sents[i+1:], line) || e.Over() {
			return
		}
	}
}

// sentence resolves and executes one parsed sentence. It returns false
// when the remaining sentences must not run.
func (e *Engine) sentence(s types.Sentence, rest [][]token.Token, line string) bool {
	gs, err := e.resolveSentence(s)
	if err != nil {
		var amb *resolve.AmbiguityError
		if errors.As(err, &amb) {
			e.asking = &awaiting{pending: resolve.PendingFrom(amb), sentence: s, rest: rest, line: line}
			e.sayAs(types.LineQuestion, amb.Question)
			return false
		}
		e.sayAs(types.LineError, sentenceCase(err.Error()))
		return false
	}
	return e.turn(gs)
}

// resolveSentence resolves the actor, then the object, then the noun. A
// noun list with several groups or ALL yields one grammar per noun.
func (e *Engine) resolveSentence(s types.Sentence) ([]types.Grammar, error) {
	g := types.Grammar{Verb: s.Verb, Prep: s.Prep}
	for _, slot := range []types.Slot{types.SlotActor, types.SlotObject} {
		list := slotList(&s, slot)
		if isEmpty(*list) {
			continue
		}
		res, err := e.resolver.Resolve(resolve.Request{Slot: slot, List: *list, Grammar: g})
		if err != nil {
			return nil, err
		}
		if len(res.Chosen) > 0 {
			resolve.Apply(&g, slot, res.Chosen[0])
		}
	}
	if isEmpty(s.Noun) {
		return []types.Grammar{g}, nil
	}
	res, err := e.resolver.Resolve(resolve.Request{Slot: types.SlotNoun, List: s.Noun, Grammar: g})
	if err != nil {
		return nil, err
	}
	out := make([]types.Grammar, 0, len(res.Chosen))
	for _, c := range res.Chosen {
		gn := g
		resolve.Apply(&gn, types.SlotNoun, c)
		out = append(out, gn)
	}
	return out, nil
}

// answer interprets words as a reply to a. It returns nil when the reply
// is not a noun phrase that narrows the pending candidates.
func (e *Engine) answer(a *awaiting, words []token.Token) []types.Candidate {
	pos := 0
	list := e.matcher.List(words, &pos)
	if list == nil || pos != len(words) {
		return nil
	}
	groups, all := match.Groups(list)
	if all || len(groups) != 1 {
		return nil
	}
	merged := a.pending.Merge(groups[0])
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// resume splices the narrowed group into the suspended sentence and
// continues with it and the sentences that followed it.
func (e *Engine) resume(a *awaiting, merged []types.Candidate) {
	s := a.sentence
	list := slotList(&s, a.pending.Slot)
	*list = resolve.Splice(*list, a.pending.Offset, merged)
	log.Debug("resuming after clarification", "slot", a.pending.Slot, "candidates", len(merged))
	if e.sentence(s, a.rest, a.line) && !e.Over() {
		e.sentences(a.rest, a.line)
	}
}

// correct handles OOPS: the unknown word of the last failed line is
// replaced and the line runs again.
func (e *Engine) correct(words []token.Token) {
	if e.oops == nil {
		e.say("There is nothing to correct.")
		return
	}
	if len(words) == 0 {
		e.say("OOPS what?")
		return
	}
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	fixed := token.Replace(e.oops.line, e.oops.tok, strings.Join(texts, " "))
	e.oops = nil
	log.Debug("oops", "line", fixed)
	e.line(fixed)
}

// turn executes the grammars of one sentence and advances the clock once.
// It returns false when a request raised during the turn ends the line.
func (e *Engine) turn(gs []types.Grammar) bool {
	e.pushUndo()
	score := e.World.Score
	multi := len(gs) > 1
	for _, g := range gs {
		if multi {
			e.out.Write(e.Defs.Name(g.Noun) + ": ")
		}
		if e.Defs.IsObject(g.Noun) {
			e.World.SetPronoun(g.Noun)
		}
		e.command(g)
		if e.Over() || len(e.requests) > 0 {
			break
		}
	}
	e.endTurn()
	if e.World.Score != score {
		e.Emit(types.Event{Type: events.ScoreChange, Data: map[string]any{"from": score, "to": e.World.Score}})
	}
	stop := len(e.requests) > 0
	e.honourRequests()
	return !stop
}

// command runs the ANY commands, then the verb's commands, then the
// built-in verb if no action token ran.
func (e *Engine) command(g types.Grammar) {
	ctx := e.context()
	if _, ok := e.Defs.Ranges[e.Defs.W.Any]; ok {
		ag := g
		ag.Verb = e.Defs.W.Any
		rep, err := e.machine.Scan(ctx, ag)
		if err != nil {
			e.gameError(err)
			return
		}
		if rep.Outcome == vm.EndTurn || e.Over() {
			return
		}
	}
	rep, err := e.machine.Scan(ctx, g)
	if err != nil {
		e.gameError(err)
		return
	}
	if rep.Ran || rep.Outcome == vm.EndTurn || e.Over() {
		return
	}
	if rep.Grammar.Verb != 0 {
		g = rep.Grammar
	}
	e.builtin(g, rep.Matched)
}

// endTurn advances the clock and runs the AFTER commands.
func (e *Engine) endTurn() {
	w := e.World
	if !e.Over() {
		w.Turns++
		w.AdvanceCounters()
		if _, ok := e.Defs.Ranges[e.Defs.W.After]; ok {
			if _, err := e.machine.Scan(e.context(), types.Grammar{Verb: e.Defs.W.After}); err != nil {
				e.gameError(err)
			}
		}
	}
	w.ClearFirstVisit()
	e.RNG.Store(w)
}

func (e *Engine) honourRequests() {
	reqs := e.requests
	e.requests = nil
	for _, r := range reqs {
		switch r {
		case vm.RequestQuit:
			e.World.Status = types.Quit
			e.say("Goodbye.")
			return
		case vm.RequestRestart:
			e.restart()
			return
		case vm.RequestSave:
			e.saveGame()
		case vm.RequestRestore:
			e.restoreGame()
		}
	}
}

func (e *Engine) context() *vm.Context {
	return &vm.Context{
		World:           e.World,
		IO:              e.out,
		RNG:             e.RNG,
		Host:            e,
		MaxDepth:        e.opts.MaxStackDepth,
		RedirectCeiling: e.opts.RedirectCeiling,
		Trace:           e.opts.Trace,
	}
}

// probe scores g for the disambiguation engine: the metacommands first,
// then the built-in verb's verify step.
func (e *Engine) probe(g types.Grammar) int {
	s := e.machine.Probe(e.context(), g)
	if s >= types.ScoreSuccess {
		return s
	}
	return max(s, e.verify(g).score())
}

func (e *Engine) gameError(err error) {
	var ge *vm.GameError
	if errors.As(err, &ge) {
		log.Warningf("%s", ge.Error())
	}
	e.sayAs(types.LineError, err.Error())
}

// --- undo, restart, save and restore ---

// armUndo takes the snapshot of a new line. It reaches the undo ring
// only when one of the line's sentences runs a turn, so lines that fail
// to parse or resolve leave nothing to undo.
func (e *Engine) armUndo() {
	if e.opts.UndoDepth < 0 {
		return
	}
	e.RNG.Store(e.World)
	e.lineSnap = e.codec.Encode(e.World)
}

func (e *Engine) pushUndo() {
	if e.lineSnap == nil {
		return
	}
	e.undo = append(e.undo, e.lineSnap)
	e.lineSnap = nil
	if len(e.undo) > e.opts.UndoDepth {
		e.undo = e.undo[len(e.undo)-e.opts.UndoDepth:]
	}
}

func (e *Engine) undoLast() {
	if len(e.undo) == 0 {
		e.say("You can't undo any further.")
		return
	}
	block := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	if err := e.restoreBlock(block, save.Options{}); err != nil {
		e.say("Undo failed: " + err.Error())
		return
	}
	e.say("Previous turn undone.")
}

func (e *Engine) restart() {
	if err := e.restoreBlock(e.initial, save.Options{}); err != nil {
		e.say("Restart failed: " + err.Error())
		return
	}
	e.undo = nil
	e.oops = nil
	e.say("Restarting.")
	e.describeRoom()
	e.World.ClearFirstVisit()
}

func (e *Engine) restoreBlock(block []byte, opts save.Options) error {
	if err := e.codec.Decode(block, e.World, opts); err != nil {
		return err
	}
	e.RNG = RestoreFrom(e.World)
	e.asking = nil
	e.lineSnap = nil
	e.requests = nil
	return nil
}

// SaveState returns the state block of the current world.
func (e *Engine) SaveState() []byte {
	e.RNG.Store(e.World)
	return e.codec.Encode(e.World)
}

// RestoreState replaces the world with block. On error the world is
// unchanged.
func (e *Engine) RestoreState(block []byte, opts save.Options) error {
	if err := e.restoreBlock(block, opts); err != nil {
		return err
	}
	e.undo = nil
	e.Emit(types.Event{Type: events.Restored, Data: map[string]any{"turns": e.World.Turns}})
	return nil
}

// Signature returns the game signature stored in save blocks.
func (e *Engine) Signature() uint16 { return e.Defs.Signature }

func (e *Engine) saveGame() {
	if e.Saver == nil {
		e.say("Saving is not available.")
		return
	}
	if err := e.Saver.SaveBlock(e.SaveState()); err != nil {
		e.say("Save failed: " + err.Error())
		return
	}
	e.say("Game saved.")
}

func (e *Engine) restoreGame() {
	if e.Saver == nil {
		e.say("Restoring is not available.")
		return
	}
	block, err := e.Saver.LoadBlock()
	if err != nil {
		e.say("Restore failed: " + err.Error())
		return
	}
	if err := e.RestoreState(block, save.Options{}); err != nil {
		var se *save.SignatureError
		if !errors.As(err, &se) {
			e.say("Restore failed: " + err.Error())
			return
		}
		e.say("That saved game belongs to a different version of this game.")
		if !e.out.AskYesNo("Restore it anyway, keeping the current positions of things?") {
			e.say("Nothing restored.")
			return
		}
		if err := e.RestoreState(block, save.Options{IgnoreStale: true}); err != nil {
			e.say("Restore failed: " + err.Error())
			return
		}
	}
	e.say("Game restored.")
	e.describeRoom()
}

// --- vm.Host ---

// DescribeRoom implements vm.Host.
func (e *Engine) DescribeRoom() { e.describeRoom() }

// ListInventory implements vm.Host.
func (e *Engine) ListInventory() { e.listInventory() }

// DescribeThing implements vm.Host.
func (e *Engine) DescribeThing(r types.Ref) { e.describeThing(r) }

// Emit implements vm.Host. Events are dispatched when the step ends.
func (e *Engine) Emit(ev types.Event) { e.emitted = append(e.emitted, ev) }

// Request implements vm.Host. Requests are honoured at the end of the turn.
func (e *Engine) Request(r vm.Request) { e.requests = append(e.requests, r) }

// --- helpers ---

func (e *Engine) say(text string) { e.out.WriteLine(text) }

func (e *Engine) sayAs(kind types.LineKind, text string) {
	e.out.Mark(kind)
	e.out.WriteLine(text)
}

func slotList(s *types.Sentence, slot types.Slot) *types.CandidateList {
	switch slot {
	case types.SlotActor:
		return &s.Actor
	case types.SlotObject:
		return &s.Object
	}
	return &s.Noun
}

func isEmpty(l types.CandidateList) bool {
	return len(l) == 0 || l[0].Kind == types.CandEnd
}

// sentenceCase capitalizes an error message for the player.
func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	s = capitalize(s)
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "?") && !strings.HasSuffix(s, "!") {
		s += "."
	}
	return s
}
