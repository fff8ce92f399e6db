package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

func TestLoad_MinimalGame(t *testing.T) {
	defs, err := Load("testdata/minimal")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if defs.Game.Title != "Minimal Test Game" {
		t.Errorf("Title = %q, want %q", defs.Game.Title, "Minimal Test Game")
	}
	if defs.Game.Start != state.FirstRoom {
		t.Errorf("Start = %d, want %d", defs.Game.Start, state.FirstRoom)
	}
	if len(defs.Rooms) != 1 || defs.Rooms[0].Description != "A grand hall." {
		t.Errorf("rooms = %+v", defs.Rooms)
	}
	if defs.Signature == 0 {
		t.Error("signature not set")
	}
}

func mustRef(t *testing.T, defs *state.Defs, id string) types.Ref {
	t.Helper()
	r, ok := defs.RefByID(id)
	if !ok {
		t.Fatalf("entity %q not found", id)
	}
	return r
}

func TestLoad_FullGame(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	d := defs.Dict

	// Game metadata and tables.
	if defs.Game.Title != "Full Test Game" || defs.Game.Author != "Tester" {
		t.Errorf("Game = %+v", defs.Game)
	}
	entrance := mustRef(t, defs, "entrance")
	if defs.Game.Start != entrance {
		t.Errorf("Start = %d, want %d", defs.Game.Start, entrance)
	}
	tables := []struct {
		name      string
		got, want int
	}{
		{"flags", defs.NumFlags, 3},
		{"counters", defs.NumCounters, 2},
		{"variables", defs.NumVars, 2},
		{"strings", defs.NumStrings, 1},
		{"object flags", defs.NumObjFlags, 1},
		{"object props", defs.NumObjProps, 1},
		{"max weight", defs.MaxWeight, 20},
		{"max size", defs.MaxSize, 100},
	}
	for _, tt := range tables {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
	if len(defs.InitStrings) != 1 || defs.InitStrings[0] != "stranger" {
		t.Errorf("InitStrings = %q", defs.InitStrings)
	}

	// Rooms, in declaration order after game.lua.
	if len(defs.Rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(defs.Rooms))
	}
	throne, cellar := mustRef(t, defs, "throne_room"), mustRef(t, defs, "cellar")
	room := defs.Room(entrance)
	if room.Exits[types.North] != throne || room.Exits[types.Down] != cellar {
		t.Errorf("entrance exits = %v", room.Exits)
	}
	if defs.Room(throne).Exits[types.South] != entrance {
		t.Error("abbreviated exit direction not resolved")
	}
	if !defs.Room(cellar).Dark || defs.Room(throne).Points != 5 {
		t.Error("room attributes not compiled")
	}
	if room.Flags != 1 || len(room.FlagNouns) != 1 || room.FlagNouns[0].Word != d.Lookup("rope") {
		t.Errorf("room flags = %b, flag nouns = %+v", room.Flags, room.FlagNouns)
	}
	if len(room.GlobalNouns) != 2 || room.GlobalNouns[0] != d.Lookup("wall") {
		t.Errorf("globals = %v", room.GlobalNouns)
	}
	if len(room.Pictures) != 1 || room.Pictures[0] != 0 || defs.Pictures[0].Name != "map" {
		t.Errorf("pictures = %v / %+v", room.Pictures, defs.Pictures)
	}
	rub := d.Lookup("rub")
	if room.VerbSyns[d.Lookup("shine")] != rub {
		t.Error("room verb synonym not compiled")
	}

	// Nouns.
	lamp := defs.Noun(mustRef(t, defs, "brass_lamp"))
	if lamp.Name != d.Lookup("lamp") || lamp.Adj != d.Lookup("brass") || len(lamp.Synonyms) != 1 {
		t.Errorf("lamp words = %+v", lamp)
	}
	if !lamp.Movable || !lamp.Light || !lamp.Switchable || lamp.Weight != 2 || lamp.Location != entrance {
		t.Errorf("lamp = %+v", lamp)
	}
	chestRef := mustRef(t, defs, "chest")
	chest := defs.Noun(chestRef)
	if chest.Movable || !chest.Locked || chest.Key != mustRef(t, defs, "rusty_key") {
		t.Errorf("chest = %+v", chest)
	}
	if defs.Noun(mustRef(t, defs, "rusty_key")).Location != types.Self {
		t.Error("key should start in the player's inventory")
	}
	if defs.Noun(mustRef(t, defs, "coin")).Location != chestRef {
		t.Error("coin should start inside the chest")
	}

	// Creatures.
	troll := defs.Creature(mustRef(t, defs, "troll"))
	if troll.Gender != types.Male || !troll.Hostile || troll.Location != cellar {
		t.Errorf("troll = %+v", troll)
	}

	// Verbs and messages.
	if defs.Syns[d.Lookup("polish")] != rub || defs.Syns[d.Lookup("buff")] != rub {
		t.Error("verb synonyms not compiled")
	}
	if defs.Message(1) != "You feel a sudden chill and die." {
		t.Errorf("message 1 = %q", defs.Message(1))
	}
	if len(defs.Subroutines) != 1 {
		t.Errorf("subroutines = %d, want 1", len(defs.Subroutines))
	}

	// Commands: the polish command is filed under its canonical verb, the
	// redirect target too.
	r := defs.Ranges[rub]
	if n := r.End - r.Start; n != 4 {
		t.Errorf("rub commands = %d, want 4", n)
	}
	var redirects int
	for _, c := range defs.Commands {
		if c.Redirect {
			redirects++
			if c.Label != "rub_lamp" {
				t.Errorf("redirect label = %q", c.Label)
			}
		}
	}
	if redirects != 1 {
		t.Errorf("redirect targets = %d, want 1", redirects)
	}
	for _, v := range []types.WordID{defs.W.Any, defs.W.After, defs.Subroutines[0]} {
		if _, ok := defs.Ranges[v]; !ok {
			t.Errorf("no commands for %q", d.Word(v))
		}
	}
}

func TestLoad_FullGamePlays(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e := engine.New(defs, engine.Options{Seed: 3})

	steps := []struct {
		input string
		want  string
	}{
		{"rub lamp", "The lamp glows warmly."},
		{"shine the brass lamp", "The lamp glows warmly."},
		{"xyzzy", "Nothing happens."},
	}
	for _, s := range steps {
		r := e.Step(s.input)
		if strings.Join(r.Output, "\n") != s.want {
			t.Fatalf("%q = %q, want %q", s.input, r.Output, s.want)
		}
	}
	w := e.World
	if !w.Flags[0] {
		t.Error("lamp_lit not set")
	}
	if w.Vars[0] != 2 || w.Vars[1] != 2 {
		t.Errorf("vars = %v, want [2 2]", w.Vars)
	}
	// AFTER bumps the counter each turn once the lamp is lit, and a
	// running counter also advances on its own.
	if w.Counters[0] != 5 {
		t.Errorf("counter 0 = %d, want 5", w.Counters[0])
	}
	if w.Strings[0] != "stranger" {
		t.Errorf("string 0 = %q", w.Strings[0])
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	_, err := Load("testdata/broken")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	for _, want := range []string{
		"not a container",
		"flag 3 out of range",
		"99 is not a room",
	} {
		found := false
		for _, e := range ve.Errors {
			if strings.Contains(e, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing error containing %q in %q", want, ve.Errors)
		}
	}
}

func TestLoad_NoFiles(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil || !strings.Contains(err.Error(), "no .lua files") {
		t.Errorf("err = %v", err)
	}
	if _, err := Load("testdata/does-not-exist"); err == nil {
		t.Error("expected error for missing directory")
	}
}

const header = `Game { title = "T", flags = { "a" } }
Room "hall" { name = "Hall" }
`

func TestLoadString_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"no game", `Room "hall" {}`, "no Game{} definition"},
		{"no rooms", `Game { title = "T" }`, "no rooms defined"},
		{"duplicate id", header + `Noun "hall" { name = "x" }`, `duplicate entity id "hall"`},
		{"reserved id", header + `Noun "player" { name = "x" }`, `invalid entity id "player"`},
		{"bad exit", header + `Room "yard" { exits = { north = "nowhere_land" } }`, "undefined room"},
		{"bad direction", header + `Room "yard" { exits = { sideways = "hall" } }`, "unknown direction"},
		{"noun without name", header + `Noun "x" {}`, "name is required"},
		{"bad location", header + `Noun "x" { name = "x", location = "void" }`, `undefined entity "void"`},
		{"bad gender", header + `Creature "c" { name = "c", gender = "robot" }`, "unknown gender"},
		{"missing verb", header + `Command { PrintMessage("hi") }`, "verb is required"},
		{"unknown flag", header + `Command { verb = "jump", FlagOn("b") }`, `unknown flags entry "b"`},
		{"unknown subroutine", header + `Command { verb = "jump", DoSubroutine("nope") }`, `unknown subroutine "nope"`},
		{"undefined mark", header + `Command { verb = "jump", Goto("nope") }`, `undefined mark "nope"`},
		{"dangling label", header + `Command { verb = "jump", RedirectTo("nope") }`, `label "nope" has no command`},
		{"argument count", header + `Command { verb = "jump", FlagOn() }`, "takes 1 argument"},
		{"not a conditional", header + `Command { verb = "jump", Not(SetFlag("a")) }`, "Not expects a single conditional"},
		{"sandboxed", header + `dofile("x.lua")`, "executing"},
		{"lua syntax", header + `Room "x" {`, "parsing"},
		{"second game", header + `Game { title = "again" }`, "already defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString("test.lua", tt.code)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadString_InstructionArguments(t *testing.T) {
	defs, err := LoadString("test.lua", header+`
Noun "lamp" { name = "lamp", location = "hall" }
Command { verb = "jump",
    Not(FlagOn("a")),
    Present("lamp"),
    PrintMessage("Boing."),
    PrintMessage("Boing."),
    DescribeThing(NOUN),
    ChangePassage("ne", 0),
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs.Messages) != 2 {
		t.Errorf("messages = %q, want one deduplicated message", defs.Messages[1:])
	}
	lamp := mustRef(t, defs, "lamp")
	code := defs.Commands[0].Code
	// NOT, FlagOn 0, Present lamp, PrintMessage 1 (twice), DescribeThing NOUN, ChangePassage NE 0.
	if len(code) != 1+2+2+2+2+2+3 {
		t.Fatalf("code = %v", code)
	}
	if code[4] != int32(lamp) {
		t.Errorf("Present argument = %d, want %d", code[4], lamp)
	}
	if code[6] != 1 || code[8] != 1 {
		t.Errorf("PrintMessage arguments = %d, %d", code[6], code[8])
	}
	if code[12] != int32(types.NorthEast) {
		t.Errorf("ChangePassage direction = %d", code[12])
	}
}

func TestSignature(t *testing.T) {
	a, err := LoadString("a.lua", header)
	if err != nil {
		t.Fatal(err)
	}
	b, err := LoadString("b.lua", header)
	if err != nil {
		t.Fatal(err)
	}
	if a.Signature != b.Signature {
		t.Error("same game, different signatures")
	}
	c, err := LoadString("c.lua", header+`Noun "lamp" { name = "lamp" }`)
	if err != nil {
		t.Fatal(err)
	}
	if c.Signature == a.Signature {
		t.Error("adding a noun kept the signature")
	}
	d, err := LoadString("d.lua", `Game { title = "T", signature = 4242 }
Room "hall" {}`)
	if err != nil {
		t.Fatal(err)
	}
	if d.Signature != 4242 {
		t.Errorf("explicit signature = %d", d.Signature)
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"rooms.lua", "game.lua", "items.lua"})
	want := []string{"game.lua", "items.lua", "rooms.lua"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sortedLuaFiles = %v, want %v", got, want)
	}
}
