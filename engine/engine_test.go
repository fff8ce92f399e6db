package engine

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/agtcore/engine/events"
	"github.com/nathoo/agtcore/engine/save"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/textio"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/types"
)

const (
	hall   types.Ref = 3
	cellar types.Ref = 4
)

// testGame builds a small game: a hall holding a brass lamp, an oil lamp,
// a box, a coin and a cloak, and a cellar to the north holding a rusty
// lamp and a troll. Metacommands cover RUB, XYZZY, PLUGH and ZAP, plus
// ANY and AFTER commands.
func testGame(t *testing.T) (*state.Defs, map[string]types.Ref) {
	t.Helper()
	d := state.NewDefs()
	d.Game = types.GameDef{Title: "Test Game", Intro: "Welcome."}
	d.AddRoom(types.RoomDef{ID: "hall", Name: "Hall", Description: "A grand hall.",
		Exits: [types.NumDirections]types.Ref{types.North: cellar}})
	d.AddRoom(types.RoomDef{ID: "cellar", Name: "Cellar", Description: "A damp cellar.", Points: 10,
		Exits: [types.NumDirections]types.Ref{types.South: hall}})
	lamp := d.Dict.Add("lamp")
	d.AddNoun(types.NounDef{ID: "brass_lamp", Name: lamp, Adj: d.Dict.Add("brass"), Location: hall, Movable: true})
	d.AddNoun(types.NounDef{ID: "oil_lamp", Name: lamp, Adj: d.Dict.Add("oil"), Location: hall, Movable: true})
	d.AddNoun(types.NounDef{ID: "box", Name: d.Dict.Add("box"), Location: hall, Container: true, Closable: true})
	d.AddNoun(types.NounDef{ID: "coin", Name: d.Dict.Add("coin"), Location: hall, Movable: true, Weight: 1})
	d.AddNoun(types.NounDef{ID: "cloak", Name: d.Dict.Add("cloak"), Location: hall, Movable: true, Wearable: true})
	d.AddNoun(types.NounDef{ID: "rusty_lamp", Name: lamp, Adj: d.Dict.Add("rusty"), Location: cellar, Movable: true})
	d.AddCreature(types.CreatureDef{ID: "troll", Name: d.Dict.Add("troll"), Location: cellar})
	d.NumFlags, d.NumVars, d.NumCounters = 2, 1, 1
	d.Signature = 0x1234

	add := func(c types.Command, a *vm.Asm) {
		code, err := a.Code()
		if err != nil {
			t.Fatal(err)
		}
		c.Code = code
		d.AddCommand(c)
	}
	msg := func(s string) vm.Arg { return vm.Lit(d.AddMessage(s)) }

	add(types.Command{Verb: d.AddVerb("rub"), Noun: d.Dict.Lookup("coin")}, vm.NewAsm().
		Emit(vm.ActPrintMessage, msg("The coin gleams.")).
		Emit(vm.ActAddScore, vm.Lit(1)))
	add(types.Command{Verb: d.AddVerb("xyzzy")}, vm.NewAsm().
		Emit(vm.ActPrintMessage, msg("You die.")).
		Emit(vm.ActKillPlayer))
	add(types.Command{Verb: d.AddVerb("plugh")}, vm.NewAsm().
		Emit(vm.ActEndGame))
	add(types.Command{Verb: d.AddVerb("zap")}, vm.NewAsm().
		Emit(vm.ActGoToRoom, vm.Lit(99)))
	add(types.Command{Verb: d.W.Any}, vm.NewAsm().
		Emit(vm.CondFlagOn, vm.Lit(0)).
		Emit(vm.ActPrintMessage, msg("A voice booms.")).
		Emit(vm.OpDoneWithTurn))
	add(types.Command{Verb: d.W.After}, vm.NewAsm().
		Emit(vm.ActAddVar, vm.Lit(0), vm.Lit(1)))

	if err := d.Finish(); err != nil {
		t.Fatal(err)
	}
	refs := map[string]types.Ref{}
	for _, id := range []string{"brass_lamp", "oil_lamp", "box", "coin", "cloak", "rusty_lamp", "troll"} {
		refs[id], _ = d.RefByID(id)
	}
	return d, refs
}

func newEngine(t *testing.T) (*Engine, map[string]types.Ref) {
	t.Helper()
	d, refs := testGame(t)
	return New(d, Options{Seed: 1}), refs
}

func joined(r types.Result) string {
	return strings.Join(r.Output, "\n")
}

func TestIntro(t *testing.T) {
	e, _ := newEngine(t)
	r := e.Intro()
	if len(r.Output) < 3 || r.Output[0] != "Test Game" || r.Output[1] != "Welcome." || r.Output[2] != "Hall" {
		t.Fatalf("intro = %q", r.Output)
	}
	if !strings.Contains(joined(r), "Exits: north.") {
		t.Errorf("intro does not list exits: %q", r.Output)
	}
}

func TestStep_ClarifyingQuestion(t *testing.T) {
	e, refs := newEngine(t)

	r := e.Step("get lamp")
	if !r.Asking || len(r.Output) != 1 || r.Output[0] != "Do you mean the brass lamp or the oil lamp?" {
		t.Fatalf("get lamp = %q (asking %v)", r.Output, r.Asking)
	}
	if e.World.Turns != 0 {
		t.Errorf("turn advanced while asking")
	}

	r = e.Step("oil")
	if r.Asking || joined(r) != "Taken." {
		t.Fatalf("answer = %q (asking %v)", r.Output, r.Asking)
	}
	if e.World.Location(refs["oil_lamp"]) != types.Self {
		t.Error("oil lamp not taken")
	}
	if e.World.Location(refs["brass_lamp"]) != hall {
		t.Error("brass lamp moved")
	}
	if e.World.Turns != 1 {
		t.Errorf("Turns = %d, want 1", e.World.Turns)
	}

	// The answer set the pronoun.
	if r := e.Step("drop it"); joined(r) != "Dropped." {
		t.Errorf("drop it = %q", r.Output)
	}
	if e.World.Location(refs["oil_lamp"]) != hall {
		t.Error("oil lamp not dropped")
	}
}

func TestStep_LineKinds(t *testing.T) {
	tests := []struct {
		input string
		want  types.LineKind
	}{
		{"get lamp", types.LineQuestion},
		{"get coyn", types.LineError},
		{"get troll", types.LineError},
		{"rub coin", types.LineText},
		{"inventory", types.LineText},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, _ := newEngine(t)
			r := e.Step(tt.input)
			if len(r.Kinds) != len(r.Output) || len(r.Kinds) == 0 {
				t.Fatalf("kinds %v for output %q", r.Kinds, r.Output)
			}
			if r.Kinds[0] != tt.want {
				t.Errorf("kind of %q = %v, want %v", r.Output[0], r.Kinds[0], tt.want)
			}
		})
	}

	e, _ := newEngine(t)
	r := e.Intro()
	for i, line := range r.Output {
		if strings.HasPrefix(line, "Exits:") && r.Kinds[i] != types.LineExits {
			t.Errorf("exits line kind = %v", r.Kinds[i])
		}
	}
}

func TestStep_UnrelatedAnswerIsANewCommand(t *testing.T) {
	e, _ := newEngine(t)
	e.Step("get lamp")
	r := e.Step("look")
	if r.Asking || len(r.Output) == 0 || r.Output[0] != "Hall" {
		t.Fatalf("look after question = %q", r.Output)
	}
	if e.Asking() {
		t.Error("question still pending")
	}
}

func TestStep_Oops(t *testing.T) {
	e, refs := newEngine(t)

	if r := e.Step("oops coin"); joined(r) != "There is nothing to correct." {
		t.Errorf("oops without error = %q", r.Output)
	}

	r := e.Step("get coyn")
	if joined(r) != `I don't know the word "coyn".` {
		t.Fatalf("get coyn = %q", r.Output)
	}
	r = e.Step("oops coin")
	if joined(r) != "Taken." {
		t.Fatalf("oops coin = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != types.Self {
		t.Error("coin not taken")
	}
}

func TestStep_Undo(t *testing.T) {
	e, refs := newEngine(t)

	e.Step("get coin")
	if e.World.Location(refs["coin"]) != types.Self {
		t.Fatal("coin not taken")
	}
	r := e.Step("undo")
	if joined(r) != "Previous turn undone." {
		t.Fatalf("undo = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != hall || e.World.Turns != 0 {
		t.Errorf("undo left coin at %d, turns %d", e.World.Location(refs["coin"]), e.World.Turns)
	}
	if r := e.Step("undo"); joined(r) != "You can't undo any further." {
		t.Errorf("second undo = %q", r.Output)
	}
}

func TestStep_UndoSkipsFailedLines(t *testing.T) {
	tests := []struct {
		name   string
		failed string
	}{
		{"unknown word", "get coyn"},
		{"not in sight", "get rusty lamp"},
		{"empty", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, refs := newEngine(t)
			e.Step("get coin")
			e.Step(tt.failed)
			if r := e.Step("undo"); joined(r) != "Previous turn undone." {
				t.Fatalf("undo = %q", r.Output)
			}
			if e.World.Location(refs["coin"]) != hall || e.World.Turns != 0 {
				t.Errorf("undo left coin at %d, turns %d", e.World.Location(refs["coin"]), e.World.Turns)
			}
		})
	}
}

func TestStep_UndoAfterClarifyingQuestion(t *testing.T) {
	e, refs := newEngine(t)
	e.Step("get coin")
	e.Step("get lamp")
	e.Step("brass")
	if e.World.Location(refs["brass_lamp"]) != types.Self {
		t.Fatal("brass lamp not taken")
	}
	e.Step("undo")
	if e.World.Location(refs["brass_lamp"]) != hall || e.World.Location(refs["coin"]) != types.Self {
		t.Errorf("undo reverted the wrong turn: lamp at %d, coin at %d",
			e.World.Location(refs["brass_lamp"]), e.World.Location(refs["coin"]))
	}
}

func TestStep_UndoDepth(t *testing.T) {
	d, _ := testGame(t)
	e := New(d, Options{UndoDepth: 2})
	for i := 0; i < 4; i++ {
		e.Step("wait")
	}
	e.Step("undo")
	e.Step("undo")
	if r := e.Step("undo"); joined(r) != "You can't undo any further." {
		t.Errorf("third undo = %q", r.Output)
	}
	if e.World.Turns != 2 {
		t.Errorf("Turns = %d, want 2", e.World.Turns)
	}
}

func TestStep_MultipleSentences(t *testing.T) {
	e, refs := newEngine(t)
	r := e.Step("get coin then drop coin. get cloak")
	want := []string{"Taken.", "Dropped.", "Taken."}
	if strings.Join(r.Output, "|") != strings.Join(want, "|") {
		t.Fatalf("output = %q, want %q", r.Output, want)
	}
	if e.World.Turns != 3 {
		t.Errorf("Turns = %d, want 3", e.World.Turns)
	}
	if e.World.Vars[0] != 3 {
		t.Errorf("AFTER ran %d times, want 3", e.World.Vars[0])
	}
	if e.World.Location(refs["coin"]) != hall || e.World.Location(refs["cloak"]) != types.Self {
		t.Error("wrong final locations")
	}
}

func TestStep_StopsAfterFailedSentence(t *testing.T) {
	e, refs := newEngine(t)
	r := e.Step("drop coin. get coin")
	if joined(r) != "You aren't carrying that." {
		t.Fatalf("output = %q", r.Output)
	}
	// A refused built-in still uses the turn; the next sentence still runs.
	if e.World.Location(refs["coin"]) != types.Self {
		t.Error("second sentence did not run")
	}

	r = e.Step("get flurb. drop coin")
	if !strings.Contains(joined(r), "flurb") {
		t.Fatalf("output = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != types.Self {
		t.Error("sentence after a parse error ran")
	}
}

func TestStep_GetAll(t *testing.T) {
	e, refs := newEngine(t)
	r := e.Step("get all")
	out := joined(r)
	for _, want := range []string{"brass lamp: Taken.", "oil lamp: Taken.", "coin: Taken.", "cloak: Taken."} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "box") {
		t.Errorf("immovable box offered: %q", out)
	}
	if e.World.Location(refs["box"]) != hall || e.World.Location(refs["rusty_lamp"]) != cellar {
		t.Error("GET ALL took something out of reach")
	}
	if e.World.Turns != 1 {
		t.Errorf("Turns = %d, want 1", e.World.Turns)
	}
}

func TestStep_Metacommands(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Step("rub coin")
	if joined(r) != "The coin gleams." {
		t.Fatalf("rub coin = %q", r.Output)
	}
	if e.World.Score != 1 {
		t.Errorf("Score = %d, want 1", e.World.Score)
	}
	if len(r.Events) != 1 || r.Events[0].Type != events.ScoreChange {
		t.Errorf("events = %+v", r.Events)
	}

	if r := e.Step("rub box"); joined(r) != "You can't do that." {
		t.Errorf("rub box = %q", r.Output)
	}

	r = e.Step("zap")
	if !strings.HasPrefix(joined(r), "GAME ERROR") {
		t.Errorf("zap = %q", r.Output)
	}
}

func TestStep_AnyCommandsRunFirst(t *testing.T) {
	e, refs := newEngine(t)
	e.World.Flags[0] = true
	r := e.Step("get coin")
	if joined(r) != "A voice booms." {
		t.Fatalf("output = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != hall {
		t.Error("built-in ran after DoneWithTurn")
	}
	if e.World.Turns != 1 {
		t.Errorf("Turns = %d, want 1", e.World.Turns)
	}
}

func TestStep_GoAndRoomPoints(t *testing.T) {
	e, _ := newEngine(t)
	var entered []int
	e.Events.On(events.RoomEntered, func(ev types.Event) {
		r, _ := events.Int(ev, "room")
		entered = append(entered, r)
	})

	r := e.Step("n")
	if len(r.Output) < 2 || r.Output[0] != "Cellar" || r.Output[1] != "A damp cellar." {
		t.Fatalf("n = %q", r.Output)
	}
	if !strings.Contains(joined(r), "You see: rusty lamp, troll.") {
		t.Errorf("cellar contents missing: %q", r.Output)
	}
	if e.World.Score != 10 {
		t.Errorf("Score = %d, want 10", e.World.Score)
	}
	e.Step("go south")
	e.Step("north")
	if e.World.Score != 10 {
		t.Errorf("Score = %d after revisit, want 10", e.World.Score)
	}
	if len(entered) != 3 || entered[0] != int(cellar) || entered[1] != int(hall) {
		t.Errorf("entered = %v", entered)
	}
	if r := e.Step("e"); joined(r) != "You can't go that way." {
		t.Errorf("e = %q", r.Output)
	}
}

func TestStep_BuiltinRefusals(t *testing.T) {
	e, _ := newEngine(t)
	tests := []struct {
		input string
		want  string
	}{
		{"get box", "You can't take that."},
		{"wear coin", "You can't wear that."},
		{"open coin", "You can't open that."},
		{"close box", "It's already closed."},
		{"put coin in box", "Box is closed."},
		{"turn coin", "Do you want to turn it on or off?"},
		{"remove cloak", "You aren't wearing that."},
		{"inventory", "You are carrying nothing."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if r := e.Step(tt.input); joined(r) != tt.want {
				t.Errorf("%s = %q, want %q", tt.input, r.Output, tt.want)
			}
		})
	}
}

func TestStep_Containers(t *testing.T) {
	e, refs := newEngine(t)
	if r := e.Step("open box"); joined(r) != "Opened." {
		t.Fatalf("open box = %q", r.Output)
	}
	e.Step("get coin")
	if r := e.Step("put coin in box"); joined(r) != "Done." {
		t.Fatalf("put = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != refs["box"] {
		t.Error("coin not in box")
	}
	r := e.Step("examine box")
	if !strings.Contains(joined(r), "Box contains: coin.") {
		t.Errorf("examine box = %q", r.Output)
	}
	e.Step("close box")
	if e.World.InScope(refs["coin"]) {
		t.Error("coin visible inside closed box")
	}
}

func TestStep_WearAndInventory(t *testing.T) {
	e, refs := newEngine(t)
	e.Step("wear cloak")
	if e.World.Location(refs["cloak"]) != types.Worn {
		t.Fatal("cloak not worn")
	}
	e.Step("get coin")
	r := e.Step("i")
	if joined(r) != "You are carrying: coin.\nYou are wearing: cloak." {
		t.Errorf("inventory = %q", r.Output)
	}
}

func TestStep_DeathAndUndo(t *testing.T) {
	e, _ := newEngine(t)
	r := e.Step("xyzzy")
	if !strings.Contains(joined(r), "You die.") || !e.Over() {
		t.Fatalf("xyzzy = %q, over %v", r.Output, e.Over())
	}
	if len(r.Events) == 0 || r.Events[0].Type != events.PlayerDied {
		t.Errorf("events = %+v", r.Events)
	}
	if r := e.Step("look"); !strings.HasPrefix(joined(r), "The game is over.") {
		t.Errorf("look after death = %q", r.Output)
	}
	if r := e.Step("undo"); joined(r) != "Previous turn undone." || e.Over() {
		t.Errorf("undo after death = %q, over %v", r.Output, e.Over())
	}
}

func TestStep_Quit(t *testing.T) {
	e, _ := newEngine(t)
	r := e.Step("plugh. get coin")
	if joined(r) != "Goodbye." {
		t.Fatalf("plugh = %q", r.Output)
	}
	if e.World.Status != types.Quit {
		t.Errorf("Status = %v, want Quit", e.World.Status)
	}
}

func TestStep_Restart(t *testing.T) {
	e, refs := newEngine(t)
	e.Step("get coin")
	e.Step("n")
	r := e.Step("restart")
	if len(r.Output) < 2 || r.Output[0] != "Restarting." || r.Output[1] != "Hall" {
		t.Fatalf("restart = %q", r.Output)
	}
	if e.World.Loc != hall || e.World.Location(refs["coin"]) != hall || e.World.Turns != 0 || e.World.Score != 0 {
		t.Error("restart did not reset the world")
	}
	if r := e.Step("undo"); joined(r) != "You can't undo any further." {
		t.Errorf("undo after restart = %q", r.Output)
	}
}

type memSaver struct {
	block []byte
	err   error
}

func (m *memSaver) SaveBlock(b []byte) error {
	if m.err != nil {
		return m.err
	}
	m.block = append([]byte(nil), b...)
	return nil
}

func (m *memSaver) LoadBlock() ([]byte, error) {
	if m.block == nil {
		return nil, errors.New("no saved game")
	}
	return m.block, nil
}

func TestStep_SaveAndRestore(t *testing.T) {
	e, refs := newEngine(t)
	if r := e.Step("save"); joined(r) != "Saving is not available." {
		t.Errorf("save without saver = %q", r.Output)
	}

	s := &memSaver{}
	e.Saver = s
	e.Step("get coin")
	if r := e.Step("save"); joined(r) != "Game saved." {
		t.Fatalf("save = %q", r.Output)
	}
	e.Step("drop coin")
	e.Step("n")

	r := e.Step("restore")
	if len(r.Output) < 2 || r.Output[0] != "Game restored." || r.Output[1] != "Hall" {
		t.Fatalf("restore = %q", r.Output)
	}
	if e.World.Location(refs["coin"]) != types.Self || e.World.Loc != hall {
		t.Error("restore did not bring back the saved world")
	}
}

func TestRestoreState_Signature(t *testing.T) {
	e, refs := newEngine(t)
	e.Step("get coin")
	block := e.SaveState()
	binary.LittleEndian.PutUint16(block[4:], 0x9999)

	e.Step("drop coin")
	var se *save.SignatureError
	if err := e.RestoreState(block, save.Options{}); !errors.As(err, &se) {
		t.Fatalf("err = %v, want *save.SignatureError", err)
	}
	if e.World.Location(refs["coin"]) != hall {
		t.Error("world changed on failed restore")
	}

	if err := e.RestoreState(block, save.Options{IgnoreStale: true}); err != nil {
		t.Fatal(err)
	}
	// Positions are kept from the current game.
	if e.World.Location(refs["coin"]) != hall {
		t.Error("stale restore moved the coin")
	}
	if e.World.Turns != 1 {
		t.Errorf("Turns = %d, want 1", e.World.Turns)
	}
}

func TestStep_RestoreOtherVersion(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
		turns  int
	}{
		{"accepted", "yes", "Game restored.", 1},
		{"declined", "no", "Nothing restored.", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, refs := newEngine(t)
			e.Step("get coin")
			block := e.SaveState()
			binary.LittleEndian.PutUint16(block[4:], 0x9999)
			e.Saver = &memSaver{block: block}
			e.Step("drop coin")

			script := textio.NewScript(tt.answer)
			e.SetPrompter(script)
			r := e.Step("restore")
			if len(r.Output) == 0 || r.Output[0] != tt.want {
				t.Fatalf("restore = %q", r.Output)
			}
			if len(script.Prompts) != 1 {
				t.Fatalf("asked %d times, want 1", len(script.Prompts))
			}
			if len(script.Shown) == 0 || !strings.Contains(script.Shown[0], "different version") {
				t.Errorf("shown before asking = %q", script.Shown)
			}
			if e.World.Turns != tt.turns {
				t.Errorf("Turns = %d, want %d", e.World.Turns, tt.turns)
			}
			// Positions are never taken from the other version.
			if e.World.Location(refs["coin"]) != hall {
				t.Error("coin moved")
			}
		})
	}
}

func TestRestoreState_RNGContinues(t *testing.T) {
	e, _ := newEngine(t)
	e.RNG.Roll(6)
	block := e.SaveState()
	want := []int{e.RNG.Roll(1000), e.RNG.Roll(1000)}

	if err := e.RestoreState(block, save.Options{}); err != nil {
		t.Fatal(err)
	}
	got := []int{e.RNG.Roll(1000), e.RNG.Roll(1000)}
	if got[0] != want[0] || got[1] != want[1] {
		t.Errorf("rolls after restore = %v, want %v", got, want)
	}
}

func TestProbe(t *testing.T) {
	e, refs := newEngine(t)
	rub := e.Defs.Dict.Lookup("rub")
	get := e.Defs.Dict.Lookup("get")
	coin := types.Grammar{Verb: rub, Noun: refs["coin"], NounWord: e.Defs.Dict.Lookup("coin")}
	if got := e.probe(coin); got != types.ScoreSuccess {
		t.Errorf("probe rub coin = %d", got)
	}
	if got := e.probe(types.Grammar{Verb: get, Noun: refs["coin"]}); got != types.ScoreBuiltin {
		t.Errorf("probe get coin = %d", got)
	}
	if got := e.probe(types.Grammar{Verb: get, Noun: refs["box"]}); got != types.ScoreRefused {
		t.Errorf("probe get box = %d", got)
	}
	if got := e.probe(types.Grammar{Verb: rub, Noun: refs["box"]}); got != types.ScoreNone {
		t.Errorf("probe rub box = %d", got)
	}
}
