// Package parser assembles the actor, verb, noun, preposition and object
// slots of a sentence from its tokens and applies the grammar rewrites.
// It never decides which entity a phrase means; that is left to resolve.
package parser

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/match"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/token"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.parser")

// Code classifies a parse error.
type Code int

const (
	UnknownVerb Code = iota + 1
	UnknownWord
	ExtraInput
	MultipleObjects
	NoObject
)

// Error is a player-facing parse failure. Pos is the index of the offending
// token in the sentence, or -1.
type Error struct {
	Code Code
	Pos  int
	Word string
}

func (e *Error) Error() string {
	switch e.Code {
	case UnknownVerb:
		if e.Word == "" {
			return "I beg your pardon?"
		}
		return fmt.Sprintf("I don't know how to %q.", e.Word)
	case UnknownWord:
		return fmt.Sprintf("I don't know the word %q.", e.Word)
	case ExtraInput:
		return fmt.Sprintf("I didn't understand the part starting with %q.", e.Word)
	case MultipleObjects:
		return fmt.Sprintf("You can't use more than one object with %q.", e.Word)
	case NoObject:
		return fmt.Sprintf("What do you want to do that %s?", e.Word)
	}
	return "I didn't understand that."
}

// Parser builds sentences for the player's current room.
type Parser struct {
	defs  *state.Defs
	world *state.World
	m     *match.Matcher
}

// New creates a Parser.
func New(defs *state.Defs, world *state.World, m *match.Matcher) *Parser {
	return &Parser{defs: defs, world: world, m: m}
}

// SetWorld points the parser at a different world.
func (p *Parser) SetWorld(w *state.World) { p.world = w }

// Parse scans "[ACTOR ,] VERB [np-list] [PREP np-list]" and returns the
// normalized sentence.
func (p *Parser) Parse(toks []token.Token) (types.Sentence, error) {
	if len(toks) == 0 {
		return types.Sentence{}, &Error{Code: UnknownVerb, Pos: -1}
	}

	// 1. Leading "ACTOR," clause. If the verb is not found after it, the
	// "actor" was probably a verb and the sentence is retried without it.
	if actor, verbPos, ok := p.actorClause(toks); ok {
		s, err := p.parseFrom(toks, verbPos)
		if err == nil {
			s.Actor = actor
			return p.finish(s)
		}
		var pe *Error
		if !errors.As(err, &pe) || pe.Code != UnknownVerb {
			return types.Sentence{}, err
		}
		log.Debug("retrying without actor", "verb", toks[verbPos].Text)
	}

	s, err := p.parseFrom(toks, 0)
	if err != nil {
		return types.Sentence{}, err
	}
	return p.finish(s)
}

func (p *Parser) actorClause(toks []token.Token) (types.CandidateList, int, bool) {
	pos := 0
	group := p.m.Phrase(toks, &pos)
	if len(group) == 0 || pos >= len(toks) || !toks[pos].Comma || pos+1 >= len(toks) {
		return nil, 0, false
	}
	return match.Single(group...), pos + 1, true
}

// parseFrom parses a sentence whose verb is at toks[at].
func (p *Parser) parseFrom(toks []token.Token, at int) (types.Sentence, error) {
	var s types.Sentence
	pos := at
	verb, n := p.verb(toks, pos)
	if verb == 0 {
		return s, &Error{Code: UnknownVerb, Pos: pos, Word: toks[pos].Text}
	}
	s.Verb = verb
	pos += n

	// 2. TELL <actor> TO <verb> ... becomes <actor>, <verb> ...
	if verb == p.defs.W.Tell {
		q := pos
		group := p.m.Phrase(toks, &q)
		if len(group) > 0 && q+1 < len(toks) && toks[q].ID == p.defs.W.To {
			inner, err := p.parseFrom(toks, q+1)
			if err != nil {
				return s, err
			}
			inner.Actor = match.Single(group...)
			return inner, nil
		}
	}

	// TURN ON <noun>: the preposition comes straight after the verb.
	if verb == p.defs.W.Turn && pos < len(toks) && p.isOnOff(toks[pos].ID) {
		s.Prep = toks[pos].ID
		pos++
	}

	if pos < len(toks) && !p.isPrep(toks[pos]) {
		s.Noun = p.m.List(toks, &pos)
		if s.Noun == nil {
			return s, p.unknown(toks, pos)
		}
	}

	if pos < len(toks) && p.isPrep(toks[pos]) && s.Prep == 0 {
		s.Prep = toks[pos].ID
		pos++
		if pos < len(toks) {
			s.Object = p.m.List(toks, &pos)
			if s.Object == nil {
				return s, p.unknown(toks, pos)
			}
		} else if !(verb == p.defs.W.Turn && p.isOnOff(s.Prep)) {
			return s, &Error{Code: NoObject, Pos: pos - 1, Word: toks[pos-1].Text}
		}
	}

	if pos < len(toks) {
		return s, p.unknown(toks, pos)
	}
	return s, nil
}

// verb identifies the verb at toks[pos] and returns it with the number of
// tokens it spans. Two-word verbs are combined before synonym lookup.
func (p *Parser) verb(toks []token.Token, pos int) (types.WordID, int) {
	if pos >= len(toks) || toks[pos].Comma || toks[pos].ID == 0 {
		return 0, 0
	}
	if pos+1 < len(toks) {
		pair := [2]types.WordID{toks[pos].ID, toks[pos+1].ID}
		if v, ok := p.defs.TwoWord[pair]; ok {
			return p.canonical(v), 2
		}
	}
	return p.canonical(toks[pos].ID), 1
}

func (p *Parser) canonical(w types.WordID) types.WordID {
	return p.defs.CanonicalVerb(p.world.Loc, w)
}

func (p *Parser) unknown(toks []token.Token, pos int) error {
	t := toks[pos]
	if t.ID == 0 && !t.Comma {
		if _, isNum := numeric(t.Text); !isNum {
			return &Error{Code: UnknownWord, Pos: pos, Word: t.Text}
		}
	}
	return &Error{Code: ExtraInput, Pos: pos, Word: t.Text}
}

func numeric(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func (p *Parser) isPrep(t token.Token) bool {
	return !t.Comma && t.ID != 0 && p.defs.Preps[t.ID]
}

func (p *Parser) isOnOff(w types.WordID) bool {
	return w != 0 && (w == p.defs.W.On || w == p.defs.W.Off)
}

// finish applies the rewrites and the slot validation.
func (p *Parser) finish(s types.Sentence) (types.Sentence, error) {
	s = Normalize(p.defs, s)
	info, _ := p.defs.Verb(s.Verb)
	if groups, all := match.Groups(s.Noun); (len(groups) > 1 || all) && !info.MultiNoun {
		return s, &Error{Code: MultipleObjects, Pos: -1, Word: p.defs.Dict.Word(s.Verb)}
	}
	if groups, all := match.Groups(s.Object); len(groups) > 1 || all {
		return s, &Error{Code: MultipleObjects, Pos: -1, Word: p.defs.Dict.Word(s.Verb)}
	}
	if groups, all := match.Groups(s.Actor); len(groups) > 1 || all {
		return s, &Error{Code: MultipleObjects, Pos: -1, Word: p.defs.Dict.Word(s.Verb)}
	}
	return s, nil
}
