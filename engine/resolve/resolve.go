// Package resolve narrows each noun phrase of a parsed sentence to a single
// candidate. Elimination runs through four schemes at three strictness
// levels; when candidates still remain the player is asked to choose.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/match"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.resolve")

// Schemes and levels bound the number of elimination passes per group.
const (
	Schemes   = 4
	Levels    = 3
	MaxPasses = Schemes * Levels
)

// Prober scores how the interpreter would handle a grammar tuple without
// executing anything. See the types.Score constants.
type Prober interface {
	Probe(g types.Grammar) int
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(g types.Grammar) int

// Probe calls f.
func (f ProberFunc) Probe(g types.Grammar) int { return f(g) }

// ErrNothing is returned when ALL matches nothing the verb applies to.
var ErrNothing = errors.New("there is nothing here to do that with")

// AmbiguityError asks the player to choose between the candidates left in
// a group. Offset is the index in the slot's list where the group starts.
type AmbiguityError struct {
	Slot       types.Slot
	Group      int
	Offset     int
	Candidates []types.Candidate
	Question   string
}

func (e *AmbiguityError) Error() string {
	return e.Question
}

// NotFoundError means no candidate of a phrase is perceivable and none
// would be handled by a command.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return "You don't see that here."
	}
	return fmt.Sprintf("You don't see any %s here.", e.Name)
}

// Request describes one slot to resolve. Grammar holds the already
// resolved slots and is used when probing.
type Request struct {
	Slot    types.Slot
	List    types.CandidateList
	Grammar types.Grammar
}

// Result holds one chosen candidate per group, or the expansion of ALL.
type Result struct {
	Chosen []types.Candidate
	Passes int
}

// Resolver runs the elimination schemes against the current world.
type Resolver struct {
	defs   *state.Defs
	world  *state.World
	prober Prober

	// Strict drops candidates matched on adjectives alone when a full match
	// exists.
	Strict bool
}

// New creates a Resolver.
func New(defs *state.Defs, world *state.World, prober Prober) *Resolver {
	return &Resolver{defs: defs, world: world, prober: prober}
}

// SetWorld points the resolver at a different world.
func (r *Resolver) SetWorld(w *state.World) { r.world = w }

// Resolve resolves every group of req.List. An ALL list expands to every
// in-scope object the verb applies to, minus the excepted groups.
func (r *Resolver) Resolve(req Request) (Result, error) {
	var res Result
	groups, all := match.Groups(req.List)
	var chosen []types.Candidate
	for i, g := range groups {
		c, passes, err := r.group(req, i, g)
		res.Passes += passes
		if err != nil {
			var amb *AmbiguityError
			if errors.As(err, &amb) {
				amb.Group = i
				amb.Offset = match.GroupOffset(req.List, i)
			}
			return res, err
		}
		chosen = append(chosen, c)
	}
	if all {
		exp, err := r.expandAll(req, req.List[0], chosen)
		if err != nil {
			return res, err
		}
		res.Chosen = exp
		return res, nil
	}
	res.Chosen = chosen
	return res, nil
}

// group narrows one conjunctive group to a single candidate.
func (r *Resolver) group(req Request, idx int, group []types.Candidate) (types.Candidate, int, error) {
	pool := make([]types.Candidate, len(group))
	copy(pool, group)
	for i := range pool {
		pool[i].Marked = false
		pool[i].Score = 0
	}

	everInScope := r.anyInScope(pool)

	passes := 0
	scored := false
	for scheme := 0; scheme < Schemes && len(pool) > 1; scheme++ {
		for level := 0; level < Levels && len(pool) > 1; level++ {
			passes++
			switch scheme {
			case 0:
				r.syntaxPre(pool, level)
			case 1:
				r.applicability(req, pool, level)
				scored = true
			case 2:
				syntaxPost(pool, level)
			case 3:
				if level == 0 && everInScope && !r.anyInScope(pool) {
					for i := 1; i < len(pool); i++ {
						pool[i].Marked = true
					}
				}
			}
			pool = purge(pool)
			log.Debug("elimination pass", "slot", req.Slot, "scheme", scheme, "level", level, "left", len(pool))
		}
	}

	if !everInScope {
		if !scored {
			r.score(req, pool)
		}
		best := 0
		for _, c := range pool {
			if c.Score > best {
				best = c.Score
			}
		}
		if best < types.ScoreSuccess {
			return types.Candidate{}, passes, &NotFoundError{Name: r.phraseName(group)}
		}
	}

	if len(pool) == 1 || r.indistinguishable(pool) {
		return pool[0], passes, nil
	}
	return types.Candidate{}, passes, &AmbiguityError{
		Slot:       req.Slot,
		Group:      idx,
		Candidates: pool,
		Question:   r.question(pool),
	}
}

// purge removes marked candidates, unless that would empty the pool, in
// which case the marks are cleared instead.
func purge(pool []types.Candidate) []types.Candidate {
	kept := pool[:0:0]
	for _, c := range pool {
		if !c.Marked {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		for i := range pool {
			pool[i].Marked = false
		}
		return pool
	}
	return kept
}

// syntaxPre is scheme 0: drop scene and door matches, then numbers without
// a dictionary word, then (strict mode) adjective-only matches.
func (r *Resolver) syntaxPre(pool []types.Candidate, level int) {
	for i := range pool {
		c := &pool[i]
		switch level {
		case 0:
			c.Marked = c.Kind == types.CandInternal &&
				(c.Internal == types.InternalScene || c.Internal == types.InternalDoor)
		case 1:
			c.Marked = c.Kind == types.CandNumber && c.Word == 0
		case 2:
			c.Marked = r.Strict && c.AdjOnly
		}
	}
}

// applicability is scheme 1: keep the top probe score, then the in-scope
// ties, then the reachable ones.
func (r *Resolver) applicability(req Request, pool []types.Candidate, level int) {
	switch level {
	case 0:
		r.score(req, pool)
		best := 0
		for _, c := range pool {
			if c.Score > best {
				best = c.Score
			}
		}
		for i := range pool {
			pool[i].Marked = pool[i].Score < best
		}
	case 1:
		for i := range pool {
			pool[i].Marked = !r.inScope(pool[i])
		}
	case 2:
		for i := range pool {
			pool[i].Marked = !r.reachable(pool[i])
		}
	}
}

// score probes every candidate. The first one reaching ScoreSuccess wins
// outright; later candidates are not probed.
func (r *Resolver) score(req Request, pool []types.Candidate) {
	done := false
	for i := range pool {
		if done || r.prober == nil {
			pool[i].Score = 0
			continue
		}
		g := req.Grammar
		Apply(&g, req.Slot, pool[i])
		pool[i].Score = r.prober.Probe(g)
		if pool[i].Score >= types.ScoreSuccess {
			done = true
		}
	}
}

// syntaxPost is scheme 2: drop pronouns and ALL markers, then internal
// matches, then bare numbers.
func syntaxPost(pool []types.Candidate, level int) {
	for i := range pool {
		c := &pool[i]
		switch level {
		case 0:
			c.Marked = c.Kind == types.CandPronoun || c.Kind == types.CandAll
		case 1:
			c.Marked = c.Kind == types.CandInternal
		case 2:
			c.Marked = c.Kind == types.CandNumber
		}
	}
}

func isEntity(c types.Candidate) bool {
	switch c.Kind {
	case types.CandNoun, types.CandCreature, types.CandPronoun:
		return true
	}
	return false
}

func (r *Resolver) inScope(c types.Candidate) bool {
	if !isEntity(c) {
		return true
	}
	return r.world.InScope(c.Ref)
}

func (r *Resolver) anyInScope(pool []types.Candidate) bool {
	for _, c := range pool {
		if r.inScope(c) {
			return true
		}
	}
	return false
}

func (r *Resolver) reachable(c types.Candidate) bool {
	if !isEntity(c) {
		return true
	}
	return r.world.Reachable(c.Ref)
}

// indistinguishable reports whether the survivors denote the same entity
// or entities the player cannot tell apart by name.
func (r *Resolver) indistinguishable(pool []types.Candidate) bool {
	first := pool[0]
	for _, c := range pool[1:] {
		if isEntity(first) && isEntity(c) && c.Ref == first.Ref {
			continue
		}
		if c.Kind != first.Kind || !isEntity(c) {
			return false
		}
		n1, a1, _ := r.defs.ObjectWords(first.Ref)
		n2, a2, _ := r.defs.ObjectWords(c.Ref)
		if n1 != n2 || a1 != a2 || r.defs.Name(first.Ref) != r.defs.Name(c.Ref) {
			return false
		}
	}
	return true
}

// Describe returns the short name of a candidate for messages.
func (r *Resolver) Describe(c types.Candidate) string {
	if isEntity(c) && c.Ref > 0 {
		return r.defs.Name(c.Ref)
	}
	if c.Word != 0 {
		return r.defs.Dict.Word(c.Word)
	}
	if c.Kind == types.CandNumber {
		return fmt.Sprint(c.Num)
	}
	return "that"
}

func (r *Resolver) question(pool []types.Candidate) string {
	names := make([]string, len(pool))
	for i, c := range pool {
		names[i] = "the " + r.Describe(c)
	}
	var b strings.Builder
	b.WriteString("Do you mean ")
	for i, n := range names {
		switch {
		case i == 0:
		case i == len(names)-1 && len(names) == 2:
			b.WriteString(" or ")
		case i == len(names)-1:
			b.WriteString(", or ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(n)
	}
	b.WriteString("?")
	return b.String()
}

func (r *Resolver) phraseName(group []types.Candidate) string {
	for _, c := range group {
		if c.Word != 0 {
			return r.defs.Dict.Word(c.Word)
		}
	}
	for _, c := range group {
		if c.Adj != 0 {
			return r.defs.Dict.Word(c.Adj)
		}
	}
	return ""
}

// expandAll lists the objects ALL stands for: every in-scope noun (or
// creature, for EVERYONE) the verb would accept, minus the excepted ones.
func (r *Resolver) expandAll(req Request, marker types.Candidate, except []types.Candidate) ([]types.Candidate, error) {
	excluded := map[types.Ref]bool{}
	for _, c := range except {
		excluded[c.Ref] = true
	}
	d := r.defs
	var out []types.Candidate
	for ref := d.FirstNoun(); ref < d.End(); ref++ {
		if excluded[ref] || !r.world.InScope(ref) {
			continue
		}
		creature := d.IsCreature(ref)
		if creature != (marker.Num == 1) {
			continue
		}
		kind := types.CandNoun
		if creature {
			kind = types.CandCreature
		}
		name, adj, _ := d.ObjectWords(ref)
		c := types.Candidate{Kind: kind, Ref: ref, Word: name, Adj: adj}
		if r.prober != nil {
			g := req.Grammar
			Apply(&g, req.Slot, c)
			if r.prober.Probe(g) < types.ScoreBuiltin {
				continue
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrNothing
	}
	return out, nil
}

// Apply stores candidate c in slot of g.
func Apply(g *types.Grammar, slot types.Slot, c types.Candidate) {
	ref := c.Ref
	if !isEntity(c) && c.Kind != types.CandGlobal {
		ref = 0
	}
	switch slot {
	case types.SlotActor:
		g.Actor, g.ActorWord = ref, c.Word
	case types.SlotNoun:
		g.Noun, g.NounWord, g.NounAdj, g.Num = ref, c.Word, c.Adj, c.Num
	case types.SlotObject:
		g.Object, g.ObjWord, g.ObjAdj, g.ObjNum = ref, c.Word, c.Adj, c.Num
	}
}
