package savestore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock returns a clock that advances a minute per call.
func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Minute)
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	info, err := s.Put("Game", "slot1", SlotInfo{Turns: 7, Score: 3, Location: "Hall"}, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.ID == "" || info.Size != 3 || info.Game != "Game" || info.Name != "slot1" {
		t.Errorf("Put info = %+v", info)
	}

	got, block, err := s.Get("Game", "slot1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(block) != "\x01\x02\x03" {
		t.Errorf("block = %v", block)
	}
	if got.ID != info.ID || got.Turns != 7 || got.Score != 3 || got.Location != "Hall" {
		t.Errorf("Get info = %+v, want %+v", got, info)
	}
}

func TestPut_ReplacesSlot(t *testing.T) {
	s := openTestStore(t)
	first, _ := s.Put("Game", "a", SlotInfo{}, []byte("old"))
	second, err := s.Put("Game", "a", SlotInfo{}, []byte("new"))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Error("rewritten slot kept its id")
	}
	_, block, _ := s.Get("Game", "a")
	if string(block) != "new" {
		t.Errorf("block = %q, want new", block)
	}
	// The old block is gone.
	err = s.bolt.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketBlocks).Get([]byte(first.ID)) != nil {
			t.Error("old block still stored")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPut_EmptyName(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Put("Game", "", SlotInfo{}, nil); err == nil {
		t.Error("expected error for empty slot name")
	}
}

func TestGet_Missing(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Get("Game", "nope")
	if !errors.Is(err, ErrNoSlot) {
		t.Errorf("err = %v, want ErrNoSlot", err)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock()
	for _, name := range []string{"b", "a", "c"} {
		if _, err := s.Put("Game", name, SlotInfo{}, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	s.Put("Other Game", "x", SlotInfo{}, []byte("x"))
	s.Put("Game 2", "y", SlotInfo{}, []byte("y"))

	slots, err := s.List("Game")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, si := range slots {
		names = append(names, si.Name)
	}
	if got := strings.Join(names, ","); got != "c,a,b" {
		t.Errorf("List = %s, want c,a,b (newest first)", got)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	s.Put("Game", "a", SlotInfo{}, []byte("a"))
	if err := s.Delete("Game", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Get("Game", "a"); !errors.Is(err, ErrNoSlot) {
		t.Errorf("Get after Delete: %v", err)
	}
	if err := s.Delete("Game", "a"); !errors.Is(err, ErrNoSlot) {
		t.Errorf("second Delete: %v, want ErrNoSlot", err)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Put("Game", "keep", SlotInfo{Turns: 4}, []byte("state"))
	if s.Path() != path {
		t.Errorf("Path() = %q", s.Path())
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	info, block, err := s.Get("Game", "keep")
	if err != nil || string(block) != "state" || info.Turns != 4 {
		t.Errorf("after reopen: %+v %q %v", info, block, err)
	}
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	d := state.NewDefs()
	d.Game = types.GameDef{Title: "Slot Game"}
	d.AddRoom(types.RoomDef{ID: "hall", Name: "Hall", Description: "A hall.",
		Exits: [types.NumDirections]types.Ref{types.North: state.FirstRoom + 1}})
	d.AddRoom(types.RoomDef{ID: "garden", Name: "Garden", Description: "A garden.",
		Exits: [types.NumDirections]types.Ref{types.South: state.FirstRoom}})
	if err := d.Finish(); err != nil {
		t.Fatal(err)
	}
	return engine.New(d, engine.Options{Seed: 1})
}

func TestSlot_SaveRestoreThroughEngine(t *testing.T) {
	s := openTestStore(t)
	e := testEngine(t)
	slot := NewSlot(s, e)
	e.Saver = slot

	e.Step("north")
	if r := e.Step("save"); !strings.Contains(strings.Join(r.Output, "\n"), "Game saved.") {
		t.Fatalf("save = %q", r.Output)
	}
	infos, err := slot.List()
	if err != nil || len(infos) != 1 {
		t.Fatalf("List = %v, %v", infos, err)
	}
	if infos[0].Name != DefaultSlot || infos[0].Location != "Garden" || infos[0].Game != "Slot Game" {
		t.Errorf("slot info = %+v", infos[0])
	}
	if infos[0].Signature != e.Signature() {
		t.Errorf("signature = %#x, want %#x", infos[0].Signature, e.Signature())
	}

	e.Step("south")
	if e.World.Loc != state.FirstRoom {
		t.Fatal("did not move back south")
	}
	if r := e.Step("restore"); !strings.Contains(strings.Join(r.Output, "\n"), "Game restored.") {
		t.Fatalf("restore = %q", r.Output)
	}
	if e.World.Loc != state.FirstRoom+1 {
		t.Errorf("location after restore = %d, want garden", e.World.Loc)
	}
}

func TestSlot_RestoreMissing(t *testing.T) {
	s := openTestStore(t)
	e := testEngine(t)
	slot := NewSlot(s, e)
	slot.Name = "never"
	e.Saver = slot
	r := e.Step("restore")
	if !strings.Contains(strings.Join(r.Output, "\n"), "Restore failed") {
		t.Errorf("restore = %q", r.Output)
	}
}
