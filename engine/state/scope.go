package state

import "github.com/nathoo/agtcore/types"

// Lit reports whether the player's room can be seen: it is not dark, or a
// lit light source is present.
func (w *World) Lit() bool {
	d := w.defs
	if !d.IsRoom(w.Loc) || !d.Room(w.Loc).Dark {
		return true
	}
	for i := range d.Nouns {
		r := d.FirstNoun() + types.Ref(i)
		if w.IsLit(r) && w.Present(r) && w.visibleChain(r) {
			return true
		}
	}
	return false
}

// IsLit reports whether noun r is a light source that is giving light.
func (w *World) IsLit(r types.Ref) bool {
	if !w.defs.IsNoun(r) {
		return false
	}
	n := w.Noun(r)
	if !n.Light {
		return false
	}
	return !w.defs.Noun(r).Switchable || n.On
}

// Transparent reports whether the contents of r can be seen.
func (w *World) Transparent(r types.Ref) bool {
	d := w.defs
	switch {
	case d.IsCreature(r):
		return true
	case d.IsNoun(r):
		return !d.Noun(r).Closable || w.Noun(r).Open
	}
	return true
}

// visibleChain reports whether every container between r and its outermost
// location is transparent.
func (w *World) visibleChain(r types.Ref) bool {
	for p, n := w.Location(r), 0; w.defs.IsObject(p) && n <= w.defs.NumObjects(); p, n = w.Location(p), n+1 {
		if !w.Transparent(p) {
			return false
		}
	}
	return true
}

// ComputeScope recomputes the set of perceivable objects and marks newly
// seen rooms and objects.
func (w *World) ComputeScope() {
	d := w.defs
	w.scope = make([]bool, d.End())
	w.walkScope(types.Self)
	w.walkScope(types.Worn)
	if d.IsRoom(w.Loc) {
		if !w.Room(w.Loc).Seen {
			w.fresh = w.Loc
		}
		w.Room(w.Loc).Seen = true
		if w.Lit() {
			w.walkScope(w.Loc)
		}
	}
	for r := d.FirstNoun(); r < d.End(); r++ {
		if !w.scope[r] {
			continue
		}
		if d.IsNoun(r) {
			w.Noun(r).Seen = true
		} else {
			w.Creature(r).Seen = true
		}
	}
}

func (w *World) walkScope(loc types.Ref) {
	for r := w.First(loc); r != 0; r = w.next[r] {
		if w.scope[r] {
			continue
		}
		w.scope[r] = true
		if w.Transparent(r) {
			w.walkScope(r)
		}
	}
}

// FirstVisit reports whether the player's room was entered for the first
// time since the last ClearFirstVisit.
func (w *World) FirstVisit() bool { return w.fresh != 0 && w.fresh == w.Loc }

// ClearFirstVisit ends the first-visit window, normally at the end of a turn.
func (w *World) ClearFirstVisit() { w.fresh = 0 }

// InScope reports whether r was perceivable at the last ComputeScope. Rooms
// are in scope only when they are the player's location.
func (w *World) InScope(r types.Ref) bool {
	if r == w.Loc {
		return true
	}
	if r < 0 || int(r) >= len(w.scope) {
		return false
	}
	return w.scope[r]
}

// Reachable reports whether r is in scope and not held by a creature.
func (w *World) Reachable(r types.Ref) bool {
	if !w.InScope(r) {
		return false
	}
	for p, n := w.Location(r), 0; w.defs.IsObject(p) && n <= w.defs.NumObjects(); p, n = w.Location(p), n+1 {
		if w.defs.IsCreature(p) {
			return false
		}
	}
	return true
}

// Visible returns the in-scope objects in Ref order.
func (w *World) Visible() []types.Ref {
	var out []types.Ref
	for r := w.defs.FirstNoun(); r < w.defs.End(); r++ {
		if w.InScope(r) {
			out = append(out, r)
		}
	}
	return out
}
