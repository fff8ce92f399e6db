package match

import (
	"fmt"

	"github.com/nathoo/agtcore/engine/token"
	"github.com/nathoo/agtcore/types"
)

// List parses "ALL [EXCEPT np {AND np}]" or "np {AND|, np}" starting at
// toks[*pos]. It returns nil, consuming nothing, when no phrase matches.
func (m *Matcher) List(toks []token.Token, pos *int) types.CandidateList {
	start := *pos
	var out types.CandidateList

	if start < len(toks) && m.isAll(toks[start].ID) {
		all := types.Candidate{Kind: types.CandAll, Word: toks[start].ID}
		if toks[start].ID == m.defs.W.Everyone {
			all.Num = 1
		}
		out = append(out, all)
		*pos = start + 1
		if *pos >= len(toks) || !m.isExcept(toks[*pos].ID) {
			return append(out, types.Candidate{Kind: types.CandEnd})
		}
		*pos++
	}

	for {
		before := *pos
		group := m.Phrase(toks, pos)
		if len(group) == 0 {
			*pos = before
			break
		}
		out = append(out, group...)
		if *pos >= len(toks) || !m.isConjunction(toks[*pos]) {
			break
		}
		// Only keep the separator if another phrase follows.
		probe := *pos + 1
		if probe >= len(toks) || len(m.peek(toks, probe)) == 0 {
			break
		}
		out = append(out, types.Candidate{Kind: types.CandAnd})
		*pos = probe
	}

	if len(out) == 0 {
		*pos = start
		return nil
	}
	if out[len(out)-1].Kind == types.CandAll {
		// "all except" with nothing after it means plain "all".
		*pos = start + 1
	}
	return append(out, types.Candidate{Kind: types.CandEnd})
}

func (m *Matcher) peek(toks []token.Token, at int) []types.Candidate {
	p := at
	return m.Phrase(toks, &p)
}

func (m *Matcher) isAll(w types.WordID) bool {
	return w != 0 && (w == m.defs.W.All || w == m.defs.W.Everything || w == m.defs.W.Everyone)
}

func (m *Matcher) isExcept(w types.WordID) bool {
	return w != 0 && (w == m.defs.W.Except || w == m.defs.W.But)
}

func (m *Matcher) isConjunction(t token.Token) bool {
	return t.Comma || (t.ID != 0 && t.ID == m.defs.W.And)
}

// Single wraps one candidate group as a terminated list.
func Single(c ...types.Candidate) types.CandidateList {
	out := append(types.CandidateList{}, c...)
	return append(out, types.Candidate{Kind: types.CandEnd})
}

// Groups splits a list into its conjunctive groups, skipping the leading
// ALL marker and the terminator. all reports whether the list is an
// "ALL EXCEPT" list.
func Groups(l types.CandidateList) (groups [][]types.Candidate, all bool) {
	var cur []types.Candidate
	for i, c := range l {
		switch c.Kind {
		case types.CandEnd:
			if len(cur) > 0 {
				groups = append(groups, cur)
			}
			return groups, all
		case types.CandAnd:
			groups = append(groups, cur)
			cur = nil
		case types.CandAll:
			if i == 0 {
				all = true
				continue
			}
			cur = append(cur, c)
		default:
			cur = append(cur, c)
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups, all
}

// Join builds a list from groups, the inverse of Groups.
func Join(groups [][]types.Candidate, all bool) types.CandidateList {
	var out types.CandidateList
	if all {
		out = append(out, types.Candidate{Kind: types.CandAll})
	}
	for i, g := range groups {
		if i > 0 {
			out = append(out, types.Candidate{Kind: types.CandAnd})
		}
		out = append(out, g...)
	}
	return append(out, types.Candidate{Kind: types.CandEnd})
}

// Validate checks the structural invariants of a list: a single trailing
// End, and And separators only between non-empty groups.
func Validate(l types.CandidateList) error {
	if len(l) == 0 || l[len(l)-1].Kind != types.CandEnd {
		return fmt.Errorf("candidate list is not terminated")
	}
	prevSep := true
	for i, c := range l[:len(l)-1] {
		switch c.Kind {
		case types.CandEnd:
			return fmt.Errorf("end marker at %d before the last entry", i)
		case types.CandAnd:
			if prevSep {
				return fmt.Errorf("separator at %d has no preceding candidate", i)
			}
			prevSep = true
		case types.CandAll:
			if i != 0 {
				prevSep = false
			}
		default:
			prevSep = false
		}
	}
	if prevSep && len(l) > 1 && l[len(l)-2].Kind == types.CandAnd {
		return fmt.Errorf("trailing separator")
	}
	return nil
}

// GroupOffset returns the index in l where group n starts.
func GroupOffset(l types.CandidateList, n int) int {
	off := 0
	if len(l) > 0 && l[0].Kind == types.CandAll {
		off = 1
	}
	for g := 0; g < n && off < len(l); off++ {
		if l[off].Kind == types.CandAnd {
			g++
		}
	}
	return off
}
