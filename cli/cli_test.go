package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/savestore"
	"github.com/nathoo/agtcore/types"
)

const (
	hall   = state.FirstRoom
	garden = state.FirstRoom + 1
)

// testDefs returns a two-room game with a key and a JUMP command that
// asks for confirmation.
func testDefs(t *testing.T) *state.Defs {
	t.Helper()
	d := state.NewDefs()
	d.Game = types.GameDef{Title: "Test Game", Author: "Test", Version: "1.0", Intro: "Welcome to the test."}
	d.AddRoom(types.RoomDef{ID: "hall", Name: "Hall", Description: "A grand hall.",
		Exits: [types.NumDirections]types.Ref{types.North: garden}})
	d.AddRoom(types.RoomDef{ID: "garden", Name: "Garden", Description: "A peaceful garden.",
		Exits: [types.NumDirections]types.Ref{types.South: hall}})
	d.AddNoun(types.NounDef{ID: "key", Name: d.Dict.Add("key"), Adj: d.Dict.Add("rusty"), Location: hall, Movable: true})

	code, err := vm.NewAsm().
		Emit(vm.CondYesNo, vm.Lit(d.AddMessage("Really jump?"))).
		Emit(vm.ActPrintMessage, vm.Lit(d.AddMessage("Wheee!"))).
		Code()
	if err != nil {
		t.Fatal(err)
	}
	d.AddCommand(types.Command{Verb: d.AddVerb("jump"), Code: code})
	if err := d.Finish(); err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	eng := engine.New(testDefs(t), engine.Options{Seed: 1})
	var out bytes.Buffer
	c := New(eng, nil)
	c.In = NewScript(strings.NewReader(input))
	c.Out = &out
	return c, &out
}

func withSlots(t *testing.T, c *CLI, path string) {
	t.Helper()
	store, err := savestore.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	c.Slots = savestore.NewSlot(store, c.Engine)
	c.Engine.Saver = c.Slots
}

func TestCLI_IntroAndStartingRoom(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "Welcome to the test.") {
		t.Error("expected intro text in output")
	}
	if !strings.Contains(output, "A grand hall.") {
		t.Error("expected starting room description in output")
	}
}

func TestCLI_Navigation(t *testing.T) {
	c, out := newTestCLI(t, "go north\n/quit\n")
	c.Run()

	if !strings.Contains(out.String(), "A peaceful garden.") {
		t.Error("expected garden description after going north")
	}
}

func TestCLI_EndOfInput(t *testing.T) {
	c, out := newTestCLI(t, "look\n")
	c.Run() // returns at EOF

	if strings.Count(out.String(), "A grand hall.") < 2 {
		t.Errorf("output = %q", out.String())
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	c.Run()

	output := out.String()
	for _, want := range []string{"/save", "/load", "/slots", "/quit", "undo"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_YesNoQuestion(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"n", false},
	}
	for _, tt := range tests {
		c, out := newTestCLI(t, "jump\n"+tt.answer+"\n/quit\n")
		c.Run()
		if got := strings.Contains(out.String(), "Wheee!"); got != tt.want {
			t.Errorf("answer %q: jumped = %v, want %v (output %q)", tt.answer, got, tt.want, out.String())
		}
		if !strings.Contains(out.String(), "Really jump?") {
			t.Errorf("question not shown: %q", out.String())
		}
	}
}

func TestCLI_QuitVerbEndsSession(t *testing.T) {
	c, out := newTestCLI(t, "quit\nlook\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "Goodbye.") {
		t.Errorf("output = %q", output)
	}
	// The look after quit is never read.
	if strings.Count(output, "A grand hall.") != 1 {
		t.Errorf("session continued after QUIT: %q", output)
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	db := filepath.Join(t.TempDir(), "saves.db")

	// Play a bit and save.
	c, out := newTestCLI(t, "go north\n/save test\n/slots\n/quit\n")
	withSlots(t, c, db)
	c.Run()
	c.Slots.Store.Close()

	output := out.String()
	if !strings.Contains(output, "Game saved to test.") {
		t.Errorf("expected save confirmation: %q", output)
	}
	if !strings.Contains(output, "test") || !strings.Contains(output, "Garden") {
		t.Errorf("expected slot listing: %q", output)
	}

	// Start fresh and load.
	c2, out2 := newTestCLI(t, "/load test\n/quit\n")
	withSlots(t, c2, db)
	c2.Run()

	loadOutput := out2.String()
	if !strings.Contains(loadOutput, "Game loaded from test (turn 1)") {
		t.Errorf("expected load confirmation: %q", loadOutput)
	}
	if c2.Engine.World.Loc != garden {
		t.Errorf("location after load = %d, want garden", c2.Engine.World.Loc)
	}
	if c2.Engine.World.Turns != 1 {
		t.Errorf("turns after load = %d, want 1", c2.Engine.World.Turns)
	}
}

func TestCLI_InGameSaveUsesSelectedSlot(t *testing.T) {
	c, out := newTestCLI(t, "/save first\nnorth\nsave\n/slots\n/quit\n")
	withSlots(t, c, filepath.Join(t.TempDir(), "saves.db"))
	c.Run()

	slots, err := c.Slots.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0].Name != "first" || slots[0].Location != "Garden" {
		t.Errorf("slots = %+v (output %q)", slots, out.String())
	}
}

func TestCLI_NoSaveDatabase(t *testing.T) {
	c, out := newTestCLI(t, "/save x\n/load x\n/slots\n/quit\n")
	c.Run()

	if n := strings.Count(out.String(), "No save database is open."); n != 3 {
		t.Errorf("got %d refusals, want 3: %q", n, out.String())
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, "/load nonexistent\n/quit\n")
	withSlots(t, c, filepath.Join(t.TempDir(), "saves.db"))
	c.Run()

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_DeleteSlot(t *testing.T) {
	c, out := newTestCLI(t, "/save gone\n/delete gone\n/slots\n/delete gone\n/quit\n")
	withSlots(t, c, filepath.Join(t.TempDir(), "saves.db"))
	c.Run()

	output := out.String()
	for _, want := range []string{"Deleted gone.", "No saved games.", "Delete failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in %q", want, output)
		}
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n")
	c.Run()

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\njump\ny\n/trace\n/quit\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "YesNo") {
		t.Errorf("expected traced instructions: %q", output)
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
	if c.Engine.Trace() {
		t.Error("trace still on")
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n/quit\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "Location: Hall") {
		t.Error("expected location in state output")
	}
	if !strings.Contains(output, "Turns: 0") {
		t.Error("expected turn count in state output")
	}
}

func TestCLI_CommentsAndBlankLines(t *testing.T) {
	c, out := newTestCLI(t, "\n# a comment\n\n/quit\n")
	c.EchoInput = true
	c.Run()

	output := out.String()
	if strings.Contains(output, "I beg your pardon?") {
		t.Error("blank lines should be skipped by the CLI")
	}
	if strings.Contains(output, "a comment") {
		t.Error("comment lines should not be echoed")
	}
}

func TestCLI_Again(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		count int
	}{
		{"again", "look\nagain\n/quit\n", "A grand hall.", 3},
		{"g", "look\ng\n/quit\n", "A grand hall.", 3},
		{"nothing", "again\n/quit\n", "Nothing to repeat.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestCLI(t, tt.input)
			c.Run()
			if got := strings.Count(out.String(), tt.want); got < tt.count {
				t.Errorf("%q appears %d times, want at least %d", tt.want, got, tt.count)
			}
		})
	}
}
