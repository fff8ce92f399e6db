package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/agtcore/engine/events"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

func (st *scanner) errorf(cmd int, ins types.Instruction, format string, args ...any) error {
	return &GameError{Cmd: cmd, Offset: ins.Offset, Op: Name(ins.Op), Msg: fmt.Sprintf(format, args...)}
}

func (st *scanner) wrap(cmd int, ins types.Instruction, err error) error {
	var ge *GameError
	if errors.As(err, &ge) {
		return err
	}
	return &GameError{Cmd: cmd, Offset: ins.Offset, Op: Name(ins.Op), Msg: err.Error()}
}

// action executes one action token. Argument errors are GameErrors.
func (st *scanner) action(cmd int, ins types.Instruction, g *types.Grammar) error {
	a, err := st.args(ins, g)
	if err != nil {
		return st.wrap(cmd, ins, err)
	}
	if err := st.perform(cmd, ins, a, g); err != nil {
		return st.wrap(cmd, ins, err)
	}
	st.ctx.World.ComputeScope()
	return nil
}

func (st *scanner) perform(cmd int, ins types.Instruction, a [2]int, g *types.Grammar) error {
	d := st.m.defs
	w := st.ctx.World
	r := types.Ref(a[0])

	switch ins.Op {
	case ActGoToRoom:
		st.goTo(r)
	case ActGoToRandomRoom:
		if a[1] < a[0] {
			return fmt.Errorf("empty room range %d..%d", a[0], a[1])
		}
		st.goTo(r + types.Ref(st.ctx.RNG.Roll(a[1]-a[0]+1)-1))
	case ActGoToVariableRoom:
		room := types.Ref(w.Vars[a[0]])
		if !d.IsRoom(room) {
			return fmt.Errorf("variable %d holds %d, not a room", a[0], room)
		}
		st.goTo(room)
	case ActSendToRoom:
		return st.move(r, types.Ref(a[1]))
	case ActSendToVariableRoom:
		return st.move(r, types.Ref(w.Vars[a[1]]))
	case ActGetIt, ActRemoveIt:
		return st.move(r, types.Self)
	case ActWearIt:
		return st.move(r, types.Worn)
	case ActDropIt:
		return st.move(r, w.Loc)
	case ActDestroyIt:
		return st.move(r, types.Nowhere)
	case ActPutIn:
		return st.move(r, types.Ref(a[1]))
	case ActSwapLocations:
		b := types.Ref(a[1])
		if r == b {
			return nil
		}
		if w.Within(r, b) || w.Within(b, r) {
			return fmt.Errorf("cannot swap %s and %s", d.Name(r), d.Name(b))
		}
		la, lb := w.Location(r), w.Location(b)
		if err := w.Move(r, lb); err != nil {
			return err
		}
		return w.Move(b, la)
	case ActSendAllToRoom:
		st.relocate(types.Self, r)
	case ActRelocateAll:
		st.relocate(r, types.Ref(a[1]))
	case ActOpen:
		w.Noun(r).Open = true
	case ActClose:
		w.Noun(r).Open = false
	case ActLock:
		w.Noun(r).Locked = true
	case ActUnlock:
		w.Noun(r).Locked = false
	case ActTurnOn:
		w.Noun(r).On = true
	case ActTurnOff:
		w.Noun(r).On = false
	case ActPrintMessage, ActErrMessage:
		st.say(d.Message(a[0]), g)
	case ActRandomMessage:
		if a[1] < a[0] {
			return fmt.Errorf("empty message range %d..%d", a[0], a[1])
		}
		st.say(d.Message(a[0]+st.ctx.RNG.Roll(a[1]-a[0]+1)-1), g)
	case ActPrintVariable:
		st.write(strconv.Itoa(w.Vars[a[0]]))
	case ActPrintCounter:
		st.write(strconv.Itoa(w.Counters[a[0]]))
	case ActPrintScore:
		st.say(fmt.Sprintf("Your score is %d (out of %d possible).", w.Score, w.MaxScore), g)
	case ActPrintString:
		st.say(w.Strings[a[0]], g)
	case ActInputString:
		w.Strings[a[0]] = state.ClipString(st.readLine())
	case ActInputNumber:
		n, _ := strconv.Atoi(strings.TrimSpace(st.readLine()))
		w.Vars[a[0]] = n
	case ActFlagOn:
		w.Flags[a[0]] = true
	case ActFlagOff:
		w.Flags[a[0]] = false
	case ActToggleFlag:
		w.Flags[a[0]] = !w.Flags[a[0]]
	case ActRoomFlagOn, ActRoomFlagOff, ActToggleRoomFlag:
		if !d.IsRoom(w.Loc) {
			return fmt.Errorf("player is not in a room")
		}
		bit := uint32(1) << uint(a[0])
		rs := w.Room(w.Loc)
		switch ins.Op {
		case ActRoomFlagOn:
			rs.Flags |= bit
		case ActRoomFlagOff:
			rs.Flags &^= bit
		default:
			rs.Flags ^= bit
		}
	case ActSetCounter:
		w.Counters[a[0]] = a[1]
	case ActIncCounter:
		w.Counters[a[0]]++
	case ActDecCounter:
		if w.Counters[a[0]] > 0 {
			w.Counters[a[0]]--
		}
	case ActSetVar:
		w.Vars[a[0]] = a[1]
	case ActAddVar:
		w.Vars[a[0]] += a[1]
	case ActSubVar:
		w.Vars[a[0]] -= a[1]
	case ActMulVar:
		w.Vars[a[0]] *= a[1]
	case ActDivVar:
		if a[1] == 0 {
			return fmt.Errorf("division by zero")
		}
		w.Vars[a[0]] /= a[1]
	case ActModVar:
		if a[1] == 0 {
			return fmt.Errorf("division by zero")
		}
		w.Vars[a[0]] %= a[1]
	case ActAddVarVar:
		w.Vars[a[0]] += w.Vars[a[1]]
	case ActSubVarVar:
		w.Vars[a[0]] -= w.Vars[a[1]]
	case ActRandomVar:
		if a[1] < 1 {
			return fmt.Errorf("random range %d", a[1])
		}
		w.Vars[a[0]] = st.ctx.RNG.Roll(a[1])
	case ActNounToVar:
		w.Vars[a[0]] = g.Num
	case ActObjectToVar:
		w.Vars[a[0]] = g.ObjNum
	case ActAddScore:
		w.Score += a[0]
	case ActSubScore:
		w.Score -= a[0]
	case ActChangePassage:
		dest := types.Ref(a[1])
		if dest != 0 && !d.IsRoom(dest) {
			return fmt.Errorf("%d is not a room", dest)
		}
		if !d.IsRoom(w.Loc) {
			return fmt.Errorf("player is not in a room")
		}
		w.Room(w.Loc).Exits[a[0]] = dest
	case ActMakeHostile:
		w.Creature(r).Hostile = true
	case ActMakeFriendly:
		w.Creature(r).Hostile = false
	case ActObjFlagOn:
		w.ObjFlags[d.ObjectIndex(r)][a[1]] = true
	case ActObjFlagOff:
		w.ObjFlags[d.ObjectIndex(r)][a[1]] = false
	case ActObjFlagToggle:
		f := &w.ObjFlags[d.ObjectIndex(r)][a[1]]
		*f = !*f
	case ActPropToVar, ActVarToProp:
		if len(w.Vars) == 0 {
			return fmt.Errorf("no variables declared")
		}
		p := &w.ObjProps[d.ObjectIndex(r)][a[1]]
		if ins.Op == ActPropToVar {
			w.Vars[0] = *p
		} else {
			*p = w.Vars[0]
		}
	case ActDescribeRoom:
		st.host(func(h Host) { h.DescribeRoom() })
	case ActListInventory:
		st.host(func(h Host) { h.ListInventory() })
	case ActDescribeThing:
		st.host(func(h Host) { h.DescribeThing(r) })
	case ActPlaySound:
		st.emit(events.Sound, map[string]any{"id": a[0]})
	case ActShowPicture:
		st.emit(events.Picture, map[string]any{"id": a[0]})
	case ActPronounIt:
		w.SetPronoun(r)
	case ActKillPlayer:
		w.Status = types.Dead
		st.emit(events.PlayerDied, map[string]any{"room": int(w.Loc)})
	case ActWinGame:
		w.Status = types.Won
		st.emit(events.GameWon, map[string]any{"score": w.Score})
	case ActEndGame:
		st.host(func(h Host) { h.Request(RequestQuit) })
	case ActRestart:
		st.host(func(h Host) { h.Request(RequestRestart) })
	case ActSave:
		st.host(func(h Host) { h.Request(RequestSave) })
	case ActRestore:
		st.host(func(h Host) { h.Request(RequestRestore) })
	case ActSetString:
		w.Strings[a[0]] = state.ClipString(d.Message(a[1]))
	default:
		return st.errorf(cmd, ins, "not an action")
	}
	return nil
}

func (st *scanner) goTo(room types.Ref) {
	w := st.ctx.World
	if w.Loc == room {
		return
	}
	w.Loc = room
	w.ComputeScope()
	st.emit(events.RoomEntered, map[string]any{"room": int(room)})
}

func (st *scanner) move(r, dest types.Ref) error {
	w := st.ctx.World
	if err := w.Move(r, dest); err != nil {
		return err
	}
	st.emit(events.ObjectMoved, map[string]any{"object": int(r), "to": int(dest)})
	return nil
}

// relocate moves everything directly at from to to, skipping objects that
// would end up inside themselves.
func (st *scanner) relocate(from, to types.Ref) {
	if from == to {
		return
	}
	w := st.ctx.World
	for _, r := range w.Contents(from) {
		if r == to || w.Within(to, r) {
			continue
		}
		if err := w.Move(r, to); err != nil {
			log.Warningf("relocate %d: %s", r, err)
		}
	}
}

func (st *scanner) say(text string, g *types.Grammar) {
	st.write(Substitute(st.m.defs, st.ctx.World, *g, text))
}

func (st *scanner) write(text string) {
	if st.ctx.IO != nil {
		st.ctx.IO.WriteLine(text)
	}
}

// readLine reads a line of player input. Errors read as an empty line.
func (st *scanner) readLine() string {
	if st.ctx.IO == nil {
		return ""
	}
	line, err := st.ctx.IO.ReadLine()
	if err != nil {
		log.Debug("input failed", "err", err)
		return ""
	}
	return line
}

func (st *scanner) host(f func(Host)) {
	if st.ctx.Host != nil {
		f(st.ctx.Host)
	}
}

func (st *scanner) emit(kind string, data map[string]any) {
	st.host(func(h Host) { h.Emit(types.Event{Type: kind, Data: data}) })
}
