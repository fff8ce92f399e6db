package parser

import (
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

// Normalize applies the slot rewrites to a parsed sentence. It is
// idempotent: normalizing a normalized sentence changes nothing.
//
//   - TURN X ON/OFF and TURN ON/OFF X both end as verb TURN, prep ON/OFF,
//     noun X (the parser already produces this form).
//   - Legacy games: "<verb> <prep> <noun>" copies the object into the
//     empty noun slot.
//   - SHOOT X AT Y becomes SHOOT Y WITH X.
//   - Bare SHOW becomes EXITS (list exits).
//   - LOOK X becomes EXAMINE X unless a command defines LOOK with arguments.
func Normalize(d *state.Defs, s types.Sentence) types.Sentence {
	w := &d.W

	if d.Game.Legacy && isEmpty(s.Noun) && s.Prep != 0 && !isEmpty(s.Object) &&
		!(s.Verb == w.Turn && (s.Prep == w.On || s.Prep == w.Off)) {
		s.Noun = clone(s.Object)
	}

	if s.Verb == w.Shoot && s.Prep == w.At && !isEmpty(s.Noun) && !isEmpty(s.Object) {
		s.Noun, s.Object = s.Object, s.Noun
		s.Prep = w.With
	}

	if s.Verb == w.Show && isEmpty(s.Noun) && s.Prep == 0 && isEmpty(s.Object) {
		s.Verb = w.Exits
	}

	if s.Verb == w.Look && !isEmpty(s.Noun) && !d.LookHasArgs {
		s.Verb = w.Examine
	}
	return s
}

func isEmpty(l types.CandidateList) bool {
	return len(l) == 0 || l[0].Kind == types.CandEnd
}

func clone(l types.CandidateList) types.CandidateList {
	return append(types.CandidateList(nil), l...)
}
