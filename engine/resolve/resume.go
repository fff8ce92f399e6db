package resolve

import "github.com/nathoo/agtcore/types"

// Pending is a suspended disambiguation: the slot and group that were
// ambiguous and the candidates the player was asked to choose from.
type Pending struct {
	Slot       types.Slot
	Offset     int
	Candidates []types.Candidate
}

// PendingFrom captures the state needed to resume after err.
func PendingFrom(err *AmbiguityError) Pending {
	return Pending{
		Slot:       err.Slot,
		Offset:     err.Offset,
		Candidates: append([]types.Candidate(nil), err.Candidates...),
	}
}

// Merge intersects the player's answer with the pending candidates,
// preserving the pending order. An empty result means the answer does not
// narrow the choice and should be treated as a new command.
func (p Pending) Merge(answer []types.Candidate) []types.Candidate {
	var out []types.Candidate
	for _, c := range p.Candidates {
		for _, a := range answer {
			if sameReferent(c, a) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func sameReferent(a, b types.Candidate) bool {
	if isEntity(a) && isEntity(b) {
		return a.Ref == b.Ref
	}
	return a.Kind == b.Kind && a.Internal == b.Internal && a.Ref == b.Ref && a.Num == b.Num && a.Word == b.Word
}

// Splice replaces the group of l starting at offset with group, leaving the
// rest of the list untouched.
func Splice(l types.CandidateList, offset int, group []types.Candidate) types.CandidateList {
	if offset < 0 || offset > len(l) {
		return l
	}
	end := offset
	for end < len(l) && l[end].Kind != types.CandAnd && l[end].Kind != types.CandEnd {
		end++
	}
	out := make(types.CandidateList, 0, len(l)-(end-offset)+len(group))
	out = append(out, l[:offset]...)
	out = append(out, group...)
	out = append(out, l[end:]...)
	return out
}
