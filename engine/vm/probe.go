package vm

import "github.com/nathoo/agtcore/types"

type probeResult int

const (
	probeNext probeResult = iota
	probeAction
	probeStop
)

// Probe reports how the commands for g would react, without running them
// and without touching the world or the random source: ScoreSuccess when a
// matching command would reach an action token, ScoreHeader when headers
// match but every body fails first, ScoreNone when nothing matches.
// Random and yes/no conditions are assumed to pass.
func (m *Machine) Probe(ctx *Context, g types.Grammar) int {
	st := &scanner{m: m, ctx: ctx, probing: true}
	r := m.defs.Ranges[g.Verb]
	best := types.ScoreNone
	for i := r.Start; i < r.End; i++ {
		c := &m.defs.Commands[i]
		if c.Redirect || !m.Matches(c, g) {
			continue
		}
		best = max(best, types.ScoreHeader)
		p, err := m.program(i)
		if err != nil {
			continue
		}
		switch st.probe(p, &g) {
		case probeAction:
			return types.ScoreSuccess
		case probeStop:
			return best
		}
	}
	return best
}

func (st *scanner) probe(p *program, g *types.Grammar) probeResult {
	ip, fail := 0, -1
	for steps := 0; ip < len(p.code) && steps < st.ctx.stepLimit(); steps++ {
		ins := p.code[ip]
		if IsCond(ins.Op) {
			end := ip
			for end < len(p.code) && IsCond(p.code[end].Op) {
				end++
			}
			ok := st.group(-1, p.code[ip:end], g)
			ip = end
			if ok {
				continue
			}
			if fail < 0 {
				return probeNext
			}
			ip, fail = fail, -1
			continue
		}
		ip++
		if ins.ErrOnly {
			continue
		}
		switch ins.Op {
		case OpGoto, OpOnFailGoto:
			v, err := st.value(ins, 0, g)
			if err != nil {
				return probeNext
			}
			t, ok := p.target(v)
			if !ok {
				return probeNext
			}
			if ins.Op == OpGoto {
				ip = t
			} else {
				fail = t
			}
		case OpNextCommand, OpReturn:
			return probeNext
		case OpStopScan, OpDoneWithTurn:
			return probeStop
		default:
			return probeAction
		}
	}
	return probeNext
}
