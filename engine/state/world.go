package state

import (
	"errors"
	"fmt"

	"github.com/nathoo/agtcore/types"
)

// ErrBadMove is returned when a move would break the containment tree.
var ErrBadMove = errors.New("invalid move")

// World is the mutable working set of a loaded game. Containment is kept in
// an arena of intrusive lists indexed by Ref: head[loc] is the first object
// at loc and next[obj] the following one. Ref 0 terminates a list.
type World struct {
	defs *Defs

	Loc    types.Ref
	Turns  int
	Score  int
	Status types.Status

	It, Him, Her, Them types.Ref

	Rooms     []types.RoomState
	Nouns     []types.NounState
	Creatures []types.CreatureState

	Flags    []bool
	Counters []int
	Vars     []int
	Strings  []string
	ObjFlags [][]bool
	ObjProps [][]int

	RNGSeed int64
	RNGPos  int64

	// Derived, recomputed by Rebuild and ComputeScope.
	Weight   int
	Size     int
	MaxScore int

	head  []types.Ref
	next  []types.Ref
	scope []bool
	fresh types.Ref
}

// NewWorld creates the initial world for defs. defs must be finished.
func NewWorld(defs *Defs) *World {
	w := &World{
		defs:      defs,
		Loc:       defs.Game.Start,
		Rooms:     make([]types.RoomState, len(defs.Rooms)),
		Nouns:     make([]types.NounState, len(defs.Nouns)),
		Creatures: make([]types.CreatureState, len(defs.Creatures)),
		Flags:     make([]bool, defs.NumFlags),
		Counters:  make([]int, defs.NumCounters),
		Vars:      make([]int, defs.NumVars),
		Strings:   make([]string, defs.NumStrings),
		ObjFlags:  make([][]bool, defs.NumObjects()),
		ObjProps:  make([][]int, defs.NumObjects()),
	}
	for i, r := range defs.Rooms {
		w.Rooms[i] = types.RoomState{Flags: r.Flags, Exits: r.Exits}
	}
	for i, n := range defs.Nouns {
		w.Nouns[i] = types.NounState{
			Location: n.Location,
			Open:     n.Open,
			Locked:   n.Locked,
			On:       n.On,
			Movable:  n.Movable,
			Light:    n.Light,
		}
	}
	for i, c := range defs.Creatures {
		w.Creatures[i] = types.CreatureState{
			Location: c.Location,
			Hostile:  c.Hostile,
			Group:    c.GroupMember,
		}
	}
	for i, s := range defs.InitStrings {
		if i < len(w.Strings) {
			w.Strings[i] = ClipString(s)
		}
	}
	for i := range w.ObjFlags {
		w.ObjFlags[i] = make([]bool, defs.NumObjFlags)
		w.ObjProps[i] = make([]int, defs.NumObjProps)
	}
	w.Rebuild()
	w.ComputeScope()
	return w
}

// Defs returns the definitions this world was built from.
func (w *World) Defs() *Defs { return w.defs }

// Location returns where object r is, or Nowhere for non-objects.
func (w *World) Location(r types.Ref) types.Ref {
	d := w.defs
	switch {
	case d.IsNoun(r):
		return w.Nouns[r-d.FirstNoun()].Location
	case d.IsCreature(r):
		return w.Creatures[r-d.FirstCreature()].Location
	}
	return types.Nowhere
}

// setLocation writes the location field only; callers maintain the lists.
func (w *World) setLocation(r, loc types.Ref) {
	d := w.defs
	if d.IsNoun(r) {
		w.Nouns[r-d.FirstNoun()].Location = loc
	} else {
		w.Creatures[r-d.FirstCreature()].Location = loc
	}
}

// Noun returns the mutable state of noun r.
func (w *World) Noun(r types.Ref) *types.NounState { return &w.Nouns[r-w.defs.FirstNoun()] }

// Creature returns the mutable state of creature r.
func (w *World) Creature(r types.Ref) *types.CreatureState {
	return &w.Creatures[r-w.defs.FirstCreature()]
}

// Room returns the mutable state of room r.
func (w *World) Room(r types.Ref) *types.RoomState { return &w.Rooms[r-FirstRoom] }

// Move relocates object r to dest. All checks happen before the object is
// unlinked, so a failed move leaves the containment lists untouched.
func (w *World) Move(r, dest types.Ref) error {
	d := w.defs
	if !d.IsObject(r) {
		return fmt.Errorf("%w: %d is not an object", ErrBadMove, r)
	}
	if !d.IsLocation(dest) {
		return fmt.Errorf("%w: %d is not a location", ErrBadMove, dest)
	}
	if dest == r || w.Within(dest, r) {
		return fmt.Errorf("%w: %s would contain itself", ErrBadMove, d.Name(r))
	}
	w.unlink(r)
	w.setLocation(r, dest)
	w.link(r)
	w.totals()
	return nil
}

// Within reports whether r is inside container c at any depth.
func (w *World) Within(r, c types.Ref) bool {
	d := w.defs
	for p, n := w.Location(r), 0; d.IsObject(p) && n <= d.NumObjects(); p, n = w.Location(p), n+1 {
		if p == c {
			return true
		}
	}
	return false
}

func (w *World) unlink(r types.Ref) {
	loc := w.Location(r)
	p := &w.head[loc]
	for *p != 0 {
		if *p == r {
			*p = w.next[r]
			w.next[r] = 0
			return
		}
		p = &w.next[*p]
	}
}

func (w *World) link(r types.Ref) {
	loc := w.Location(r)
	p := &w.head[loc]
	for *p != 0 {
		p = &w.next[*p]
	}
	*p = r
	w.next[r] = 0
}

// Contents returns the objects directly at loc in list order.
func (w *World) Contents(loc types.Ref) []types.Ref {
	if loc < 0 || int(loc) >= len(w.head) {
		return nil
	}
	var out []types.Ref
	for r := w.head[loc]; r != 0; r = w.next[r] {
		out = append(out, r)
	}
	return out
}

// First returns the first object at loc, or 0.
func (w *World) First(loc types.Ref) types.Ref {
	if loc < 0 || int(loc) >= len(w.head) {
		return 0
	}
	return w.head[loc]
}

// Next returns the object after r in its containment list, or 0.
func (w *World) Next(r types.Ref) types.Ref { return w.next[r] }

// Outermost follows containers up to the first non-object location.
func (w *World) Outermost(r types.Ref) types.Ref {
	loc := w.Location(r)
	for n := 0; w.defs.IsObject(loc) && n < len(w.next); n++ {
		loc = w.Location(loc)
	}
	return loc
}

// Carried reports whether r is held or worn by the player, at any depth.
func (w *World) Carried(r types.Ref) bool {
	o := w.Outermost(r)
	return o == types.Self || o == types.Worn
}

// Present reports whether r is carried or in the player's room.
func (w *World) Present(r types.Ref) bool {
	o := w.Outermost(r)
	return o == types.Self || o == types.Worn || o == w.Loc
}

// Rebuild recomputes the containment lists and totals from the location
// fields. Objects are linked in ascending Ref order.
func (w *World) Rebuild() {
	n := int(w.defs.End())
	w.head = make([]types.Ref, n)
	w.next = make([]types.Ref, n)
	tail := make([]types.Ref, n)
	for r := w.defs.FirstNoun(); r < w.defs.End(); r++ {
		loc := w.Location(r)
		if !w.defs.IsLocation(loc) || loc == r {
			log.Warningf("object %d has invalid location %d, moved to nowhere", r, loc)
			loc = types.Nowhere
			w.setLocation(r, loc)
		}
		if tail[loc] == 0 {
			w.head[loc] = r
		} else {
			w.next[tail[loc]] = r
		}
		tail[loc] = r
	}
	w.breakCycles()
	w.totals()
	w.MaxScore = w.maxScore()
}

// breakCycles moves objects whose container chain loops back to themselves
// to nowhere. Only reachable through corrupt location data.
func (w *World) breakCycles() {
	d := w.defs
	for r := d.FirstNoun(); r < d.End(); r++ {
		p := w.Location(r)
		for steps := 0; d.IsObject(p); steps++ {
			if p == r || steps > d.NumObjects() {
				log.Warningf("containment cycle at %d, moved to nowhere", r)
				w.unlink(r)
				w.setLocation(r, types.Nowhere)
				w.link(r)
				break
			}
			p = w.Location(p)
		}
	}
}

func (w *World) totals() {
	d := w.defs
	w.Weight, w.Size = 0, 0
	for i, n := range d.Nouns {
		r := d.FirstNoun() + types.Ref(i)
		if !w.Carried(r) {
			continue
		}
		w.Weight += n.Weight
		if w.Nouns[i].Location == types.Self {
			w.Size += n.Size
		}
	}
}

func (w *World) maxScore() int {
	total := 0
	for _, r := range w.defs.Rooms {
		total += r.Points
	}
	for _, n := range w.defs.Nouns {
		total += n.Points
	}
	for _, c := range w.defs.Creatures {
		total += c.Points
	}
	return total
}

// SetPronoun records r as the referent of the pronoun matching its gender.
func (w *World) SetPronoun(r types.Ref) {
	if !w.defs.IsObject(r) {
		return
	}
	switch w.defs.Gender(r) {
	case types.Male:
		w.Him = r
	case types.Female:
		w.Her = r
	case types.Plural:
		w.Them = r
	default:
		w.It = r
	}
}

// AdvanceCounters increments every counter that is already running.
func (w *World) AdvanceCounters() {
	for i, c := range w.Counters {
		if c > 0 {
			w.Counters[i] = c + 1
		}
	}
}

// Clone returns a deep copy of w sharing the same definitions.
func (w *World) Clone() *World {
	c := *w
	c.Rooms = append([]types.RoomState(nil), w.Rooms...)
	c.Nouns = append([]types.NounState(nil), w.Nouns...)
	c.Creatures = append([]types.CreatureState(nil), w.Creatures...)
	c.Flags = append([]bool(nil), w.Flags...)
	c.Counters = append([]int(nil), w.Counters...)
	c.Vars = append([]int(nil), w.Vars...)
	c.Strings = append([]string(nil), w.Strings...)
	c.ObjFlags = make([][]bool, len(w.ObjFlags))
	c.ObjProps = make([][]int, len(w.ObjProps))
	for i := range w.ObjFlags {
		c.ObjFlags[i] = append([]bool(nil), w.ObjFlags[i]...)
		c.ObjProps[i] = append([]int(nil), w.ObjProps[i]...)
	}
	c.head = append([]types.Ref(nil), w.head...)
	c.next = append([]types.Ref(nil), w.next...)
	c.scope = append([]bool(nil), w.scope...)
	return &c
}
