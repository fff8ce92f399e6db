package vm

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nathoo/agtcore/types"
)

var errEmptySlot = errors.New("empty grammar slot")

// args resolves the arguments of ins through their modes and checks them
// against the opcode's argument kinds.
func (st *scanner) args(ins types.Instruction, g *types.Grammar) ([2]int, error) {
	var out [2]int
	info := opTable[ins.Op]
	for i := 0; i < ins.NArgs && i < len(info.Args); i++ {
		v, err := st.resolve(ins, i, info.Args[i], g)
		if err != nil {
			return out, err
		}
		if err := st.check(info.Args[i], v); err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// value resolves argument i without a kind check.
func (st *scanner) value(ins types.Instruction, i int, g *types.Grammar) (int, error) {
	kind := ArgNum
	if info := opTable[ins.Op]; i < len(info.Args) {
		kind = info.Args[i]
	}
	return st.resolve(ins, i, kind, g)
}

func (st *scanner) resolve(ins types.Instruction, i int, kind ArgKind, g *types.Grammar) (int, error) {
	raw := int(ins.Args[i])
	w := st.ctx.World
	switch ins.Modes[i] {
	case types.ModeVariable:
		if raw < 0 || raw >= len(w.Vars) {
			return 0, fmt.Errorf("no variable %d", raw)
		}
		return w.Vars[raw], nil
	case types.ModeNoun:
		if kind == ArgNum {
			return g.Num, nil
		}
		if g.Noun == 0 {
			return 0, fmt.Errorf("%w: noun", errEmptySlot)
		}
		return int(g.Noun), nil
	case types.ModeObject:
		if kind == ArgNum {
			return g.ObjNum, nil
		}
		if g.Object == 0 {
			return 0, fmt.Errorf("%w: object", errEmptySlot)
		}
		return int(g.Object), nil
	}
	return raw, nil
}

func (st *scanner) check(kind ArgKind, v int) error {
	d := st.m.defs
	w := st.ctx.World
	r := types.Ref(v)
	inRange := func(n int) bool { return v >= 0 && v < n }
	bad := func(what string) error { return fmt.Errorf("%d is not a valid %s", v, what) }
	switch kind {
	case ArgRoom:
		if !d.IsRoom(r) {
			return bad("room")
		}
	case ArgObj:
		if !d.IsObject(r) {
			return bad("object")
		}
	case ArgNoun:
		if !d.IsNoun(r) {
			return bad("noun")
		}
	case ArgCreature:
		if !d.IsCreature(r) {
			return bad("creature")
		}
	case ArgLoc:
		if !d.IsLocation(r) {
			return bad("location")
		}
	case ArgFlag:
		if !inRange(len(w.Flags)) {
			return bad("flag")
		}
	case ArgRoomFlag:
		if !inRange(32) {
			return bad("room flag")
		}
	case ArgCounter:
		if !inRange(len(w.Counters)) {
			return bad("counter")
		}
	case ArgVar:
		if !inRange(len(w.Vars)) {
			return bad("variable")
		}
	case ArgStr:
		if !inRange(len(w.Strings)) {
			return bad("string")
		}
	case ArgObjFlag:
		if !inRange(d.NumObjFlags) {
			return bad("object flag")
		}
	case ArgProp:
		if !inRange(d.NumObjProps) {
			return bad("object property")
		}
	case ArgMsg:
		if v < 1 || v >= len(d.Messages) {
			return bad("message")
		}
	case ArgDir:
		if !inRange(int(types.NumDirections)) {
			return bad("direction")
		}
	}
	return nil
}

// cond evaluates one conditional token. Bad arguments and empty slots make
// it fail whether or not it is negated.
func (st *scanner) cond(ins types.Instruction, g *types.Grammar) bool {
	a, err := st.args(ins, g)
	if err != nil {
		log.Debug("conditional failed", "op", Name(ins.Op), "err", err)
		return false
	}
	return st.test(ins.Op, a, g) != ins.Negate
}

func (st *scanner) test(op types.Opcode, a [2]int, g *types.Grammar) bool {
	d := st.m.defs
	w := st.ctx.World
	r := types.Ref(a[0])
	switch op {
	case CondAtLocation:
		return w.Loc == r
	case CondAtLocationGT:
		return w.Loc > r
	case CondAtLocationLT:
		return w.Loc < r
	case CondFirstVisit:
		return w.FirstVisit()
	case CondCarryingSomething:
		return w.First(types.Self) != 0
	case CondCarryingNothing:
		return w.First(types.Self) == 0
	case CondWearingSomething:
		return w.First(types.Worn) != 0
	case CondWearingNothing:
		return w.First(types.Worn) == 0
	case CondLoadWeightEQ:
		return w.Weight == a[0]
	case CondLoadWeightGT:
		return w.Weight > a[0]
	case CondLoadWeightLT:
		return w.Weight < a[0]
	case CondPresent:
		return w.Present(r)
	case CondIsWearing:
		return w.Location(r) == types.Worn
	case CondIsCarrying:
		return w.Outermost(r) == types.Self
	case CondIsNowhere:
		return w.Location(r) == types.Nowhere
	case CondIsSomewhere:
		return w.Location(r) != types.Nowhere
	case CondInRoom:
		return w.Location(r) == w.Loc
	case CondIsLocated:
		return w.Location(r) == types.Ref(a[1])
	case CondTogether:
		return w.Outermost(r) == w.Outermost(types.Ref(a[1]))
	case CondIsOn:
		return w.Noun(r).On
	case CondIsOff:
		return !w.Noun(r).On
	case CondIsGroupMember:
		return w.Creature(r).Group
	case CondIsOpen:
		return w.Noun(r).Open
	case CondIsClosed:
		return !w.Noun(r).Open
	case CondIsLocked:
		return w.Noun(r).Locked
	case CondIsUnlocked:
		return !w.Noun(r).Locked
	case CondIsMovable:
		return w.Noun(r).Movable
	case CondIsCreature:
		return d.IsCreature(r)
	case CondIsNoun:
		return d.IsNoun(r)
	case CondSomethingInside:
		return w.First(r) != 0
	case CondFlagOn:
		return w.Flags[a[0]]
	case CondFlagOff:
		return !w.Flags[a[0]]
	case CondRoomFlagOn:
		return d.IsRoom(w.Loc) && w.Room(w.Loc).Flags&(1<<uint(a[0])) != 0
	case CondRoomFlagOff:
		return !d.IsRoom(w.Loc) || w.Room(w.Loc).Flags&(1<<uint(a[0])) == 0
	case CondScoreGT:
		return w.Score > a[0]
	case CondScoreLT:
		return w.Score < a[0]
	case CondTurnsGT:
		return w.Turns > a[0]
	case CondTurnsLT:
		return w.Turns < a[0]
	case CondCounterEQ:
		return w.Counters[a[0]] == a[1]
	case CondCounterGT:
		return w.Counters[a[0]] > a[1]
	case CondCounterLT:
		return w.Counters[a[0]] < a[1]
	case CondVarEQ:
		return w.Vars[a[0]] == a[1]
	case CondVarGT:
		return w.Vars[a[0]] > a[1]
	case CondVarLT:
		return w.Vars[a[0]] < a[1]
	case CondVarEqVar:
		return w.Vars[a[0]] == w.Vars[a[1]]
	case CondVarLTVar:
		return w.Vars[a[0]] < w.Vars[a[1]]
	case CondChance:
		return st.chance(a[0])
	case CondVarChance:
		return st.chance(w.Vars[a[0]])
	case CondIsHostile:
		return w.Creature(r).Hostile
	case CondHostilePresent:
		for c := d.FirstCreature(); c < d.End(); c++ {
			if w.Creature(c).Hostile && w.Present(c) {
				return true
			}
		}
		return false
	case CondNounIsNumber:
		if g.Noun != 0 {
			return false
		}
		if g.NounWord == 0 {
			return g.Num != 0
		}
		_, err := strconv.Atoi(d.Dict.Word(g.NounWord))
		return err == nil
	case CondObjFlagOn:
		return w.ObjFlags[d.ObjectIndex(r)][a[1]]
	case CondObjFlagOff:
		return !w.ObjFlags[d.ObjectIndex(r)][a[1]]
	case CondYesNo:
		if st.probing || st.ctx.IO == nil {
			return true
		}
		return st.ctx.IO.AskYesNo(Substitute(d, w, *g, d.Message(a[0])))
	case CondLightPresent:
		return w.Lit()
	case CondActorIs:
		return g.Actor == r
	case CondNounIs:
		return g.Noun == r
	case CondObjectIs:
		return g.Object == r
	case CondPrepIs:
		return g.Prep == types.WordID(a[0])
	case CondIsVisible:
		return w.InScope(r)
	}
	return false
}

// chance succeeds with probability pct percent. A probe never consumes
// random numbers and assumes success.
func (st *scanner) chance(pct int) bool {
	if st.probing {
		return true
	}
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return st.ctx.RNG.Roll(100) <= pct
}
