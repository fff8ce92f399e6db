// Package match turns runs of words into candidate lists: every entity or
// built-in referent a noun phrase could denote.
package match

import (
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/token"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.match")

// Matcher matches noun phrases against the game's entities and the
// built-in referents of the player's current room.
type Matcher struct {
	defs  *state.Defs
	world *state.World
	index map[types.WordID][]types.Ref
}

// New creates a Matcher. The word index is built once from defs.
func New(defs *state.Defs, world *state.World) *Matcher {
	m := &Matcher{defs: defs, world: world, index: map[types.WordID][]types.Ref{}}
	for r := defs.FirstNoun(); r < defs.End(); r++ {
		name, adj, syns := defs.ObjectWords(r)
		seen := map[types.WordID]bool{}
		for _, w := range append([]types.WordID{name, adj}, syns...) {
			if w == 0 || seen[w] {
				continue
			}
			seen[w] = true
			m.index[w] = append(m.index[w], r)
		}
	}
	return m
}

// SetWorld points the matcher at a different world, for restore and undo.
func (m *Matcher) SetWorld(w *state.World) { m.world = w }

type growth struct {
	ref  types.Ref
	adj  types.WordID
	noun types.WordID
}

// Phrase matches the noun phrase starting at toks[*pos] and advances *pos
// past the words consumed. The returned candidates are one group without
// separators; an empty result consumed nothing.
func (m *Matcher) Phrase(toks []token.Token, pos *int) []types.Candidate {
	start := *pos
	if start >= len(toks) || toks[start].Comma {
		return nil
	}

	// Grow entity matches greedily. A noun word ends the phrase.
	var live []growth
	consumed := 0
	for i := start; i < len(toks); i++ {
		w := toks[i].ID
		if w == 0 || toks[i].Comma {
			break
		}
		var next []growth
		if i == start {
			for _, r := range m.index[w] {
				next = append(next, m.extend(growth{ref: r}, w)...)
			}
		} else {
			for _, g := range live {
				if g.noun != 0 {
					continue
				}
				next = append(next, m.extend(g, w)...)
			}
		}
		if len(next) == 0 {
			break
		}
		live = next
		consumed++
	}

	var out []types.Candidate
	for _, g := range live {
		kind := types.CandNoun
		if m.defs.IsCreature(g.ref) {
			kind = types.CandCreature
		}
		out = append(out, types.Candidate{
			Kind:    kind,
			Ref:     g.ref,
			Word:    g.noun,
			Adj:     g.adj,
			AdjOnly: g.noun == 0,
		})
	}

	if consumed <= 1 {
		builtins := m.builtins(toks[start])
		if len(builtins) > 0 && consumed == 0 {
			consumed = 1
		}
		out = append(out, builtins...)
	}
	*pos = start + consumed
	log.Debug("phrase matched", "start", start, "words", consumed, "candidates", len(out))
	return out
}

// extend tries to add word w to a growing match.
func (m *Matcher) extend(g growth, w types.WordID) []growth {
	name, adj, syns := m.defs.ObjectWords(g.ref)
	isName := w == name
	for _, s := range syns {
		if s == w {
			isName = true
		}
	}
	var out []growth
	if isName {
		n := g
		n.noun = w
		out = append(out, n)
	} else if w == adj && g.adj == 0 {
		a := g
		a.adj = w
		out = append(out, a)
	}
	return out
}

// builtins returns the built-in referents of a single word, in priority
// order: door or scene, ALL, pronouns, directions, EVERYONE, integers, room
// global nouns, room flag nouns, then pictures.
func (m *Matcher) builtins(tok token.Token) []types.Candidate {
	d, w := m.defs, m.world
	id := tok.ID
	var out []types.Candidate

	switch id {
	case 0:
	case d.W.Door:
		out = append(out, types.Candidate{Kind: types.CandInternal, Internal: types.InternalDoor, Word: id})
	case d.W.Scene:
		out = append(out, types.Candidate{Kind: types.CandInternal, Internal: types.InternalScene, Word: id})
	}
	if id != 0 && (id == d.W.All || id == d.W.Everything) {
		out = append(out, types.Candidate{Kind: types.CandAll, Word: id})
	}
	if ref := m.pronoun(id); ref != 0 {
		out = append(out, types.Candidate{Kind: types.CandPronoun, Ref: ref, Word: id})
	}
	if dir, ok := d.DirOf[id]; ok && id != 0 {
		out = append(out, types.Candidate{Kind: types.CandInternal, Internal: types.InternalDirection, Word: id, Num: int(dir)})
	}
	if id != 0 && id == d.W.Everyone {
		out = append(out, types.Candidate{Kind: types.CandAll, Word: id, Num: 1})
	}
	if n, err := strconv.Atoi(tok.Text); err == nil {
		out = append(out, types.Candidate{Kind: types.CandNumber, Word: id, Num: n})
	}
	if id == 0 || !d.IsRoom(w.Loc) {
		return out
	}
	room := d.Room(w.Loc)
	for _, g := range room.GlobalNouns {
		if g == id {
			out = append(out, types.Candidate{Kind: types.CandGlobal, Ref: types.Ref(-id), Word: id})
			break
		}
	}
	flags := w.Room(w.Loc).Flags
	for _, fn := range room.FlagNouns {
		if fn.Word == id && fn.Flag >= 0 && fn.Flag < 32 && flags&(1<<uint(fn.Flag)) != 0 {
			out = append(out, types.Candidate{Kind: types.CandGlobal, Ref: types.Ref(-id), Word: id, Num: fn.Flag})
			break
		}
	}
	for _, p := range room.Pictures {
		if p >= 0 && p < len(d.Pictures) && d.Pictures[p].Word == id {
			out = append(out, types.Candidate{Kind: types.CandInternal, Internal: types.InternalPicture, Word: id, Num: p})
		}
	}
	return out
}

func (m *Matcher) pronoun(id types.WordID) types.Ref {
	if id == 0 {
		return 0
	}
	d, w := m.defs, m.world
	switch id {
	case d.W.It:
		return w.It
	case d.W.Him, d.W.He:
		return w.Him
	case d.W.Her, d.W.She:
		return w.Her
	case d.W.Them, d.W.They:
		return w.Them
	}
	return 0
}
