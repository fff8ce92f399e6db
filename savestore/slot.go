package savestore

import (
	"github.com/nathoo/agtcore/engine"
)

// DefaultSlot is the slot used by the in-game SAVE and RESTORE verbs until
// the player picks another.
const DefaultSlot = "default"

// Slot binds one named slot of a store to an engine. It implements
// engine.Saver, so the in-game SAVE and RESTORE verbs write to whichever
// slot is selected.
type Slot struct {
	Store  *Store
	Engine *engine.Engine
	Name   string
}

// NewSlot returns a Slot for the default slot.
func NewSlot(store *Store, e *engine.Engine) *Slot {
	return &Slot{Store: store, Engine: e, Name: DefaultSlot}
}

func (s *Slot) game() string { return s.Engine.Defs.Game.Title }

// SaveBlock implements engine.Saver.
func (s *Slot) SaveBlock(block []byte) error {
	_, err := s.Store.Put(s.game(), s.Name, s.describe(), block)
	return err
}

// LoadBlock implements engine.Saver.
func (s *Slot) LoadBlock() ([]byte, error) {
	_, block, err := s.Store.Get(s.game(), s.Name)
	return block, err
}

// List returns the slots saved for the engine's game.
func (s *Slot) List() ([]SlotInfo, error) {
	return s.Store.List(s.game())
}

func (s *Slot) describe() SlotInfo {
	d, w := s.Engine.Defs, s.Engine.World
	info := SlotInfo{
		Signature: s.Engine.Signature(),
		Turns:     w.Turns,
		Score:     w.Score,
	}
	if d.IsRoom(w.Loc) {
		info.Location = d.Room(w.Loc).Name
	}
	return info
}
