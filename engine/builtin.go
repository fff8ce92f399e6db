package engine

import (
	"fmt"

	"github.com/nathoo/agtcore/engine/events"
	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/types"
)

// verdict is the outcome of a built-in verb's verify step.
type verdict struct {
	handled bool   // the verb is built in
	ok      bool   // perform may run
	msg     string // refusal text when !ok
}

func refuse(format string, args ...any) verdict {
	return verdict{handled: true, msg: fmt.Sprintf(format, args...)}
}

var accept = verdict{handled: true, ok: true}

func (v verdict) score() int {
	switch {
	case !v.handled:
		return types.ScoreNone
	case !v.ok:
		return types.ScoreRefused
	}
	return types.ScoreBuiltin
}

// builtin runs the built-in verb for g after no metacommand acted.
func (e *Engine) builtin(g types.Grammar, matched bool) {
	v := e.verify(g)
	switch {
	case !v.handled && matched:
		e.say("Nothing happens.")
	case !v.handled:
		e.sayAs(types.LineError, "You can't do that.")
	case !v.ok:
		e.sayAs(types.LineError, v.msg)
	default:
		e.perform(g)
		e.World.ComputeScope()
	}
}

// verify decides whether the built-in verb would act on g. It never
// changes the world, so the disambiguation probe may call it.
func (e *Engine) verify(g types.Grammar) verdict {
	d := e.Defs
	w := e.World
	info, ok := d.Verb(g.Verb)
	if !ok || info.Builtin == state.BuiltinNone || info.Builtin == state.BuiltinPseudo {
		return verdict{}
	}
	if g.Actor != 0 {
		return refuse("%s ignores you.", capitalize(d.Name(g.Actor)))
	}

	switch info.Builtin {
	case state.BuiltinGo:
		dir, ok := d.DirOf[g.NounWord]
		if !ok {
			return refuse("Which way do you want to go?")
		}
		return e.verifyExit(dir)
	case state.BuiltinDirection:
		return e.verifyExit(info.Dir)
	case state.BuiltinLook, state.BuiltinInventory, state.BuiltinExits, state.BuiltinScore,
		state.BuiltinWait, state.BuiltinSave, state.BuiltinRestore, state.BuiltinQuit, state.BuiltinRestart:
		return accept
	case state.BuiltinExamine, state.BuiltinRead:
		if v := e.needThing(g, "examine"); !v.ok {
			return v
		}
		if g.Noun > 0 && !w.InScope(g.Noun) {
			return refuse("You can't see that here.")
		}
		return accept
	case state.BuiltinGet:
		if v := e.needObject(g, "take"); !v.ok {
			return v
		}
		if d.IsCreature(g.Noun) {
			return refuse("You can't take %s.", d.Name(g.Noun))
		}
		switch w.Location(g.Noun) {
		case types.Self:
			return refuse("You already have that.")
		case types.Worn:
			return refuse("You are wearing that.")
		}
		if !w.Reachable(g.Noun) {
			return refuse("You can't reach that.")
		}
		if !w.Noun(g.Noun).Movable {
			return refuse("You can't take that.")
		}
		n := d.Noun(g.Noun)
		if !w.Carried(g.Noun) && w.Weight+n.Weight > d.MaxWeight {
			return refuse("You are carrying too much weight already.")
		}
		if w.Size+n.Size > d.MaxSize {
			return refuse("You can't carry anything that bulky.")
		}
		return accept
	case state.BuiltinDrop:
		if v := e.needObject(g, "drop"); !v.ok {
			return v
		}
		if l := w.Location(g.Noun); l != types.Self && l != types.Worn {
			return refuse("You aren't carrying that.")
		}
		return accept
	case state.BuiltinWear:
		if v := e.needNoun(g, "wear"); !v.ok {
			return v
		}
		if !d.Noun(g.Noun).Wearable {
			return refuse("You can't wear that.")
		}
		if w.Location(g.Noun) == types.Worn {
			return refuse("You are already wearing that.")
		}
		if !w.Reachable(g.Noun) {
			return refuse("You can't reach that.")
		}
		return accept
	case state.BuiltinRemove:
		if v := e.needNoun(g, "take off"); !v.ok {
			return v
		}
		if w.Location(g.Noun) != types.Worn {
			return refuse("You aren't wearing that.")
		}
		return accept
	case state.BuiltinOpen, state.BuiltinClose:
		verb := "open"
		if info.Builtin == state.BuiltinClose {
			verb = "close"
		}
		if v := e.needNoun(g, verb); !v.ok {
			return v
		}
		ns := w.Noun(g.Noun)
		switch {
		case !d.Noun(g.Noun).Closable:
			return refuse("You can't %s that.", verb)
		case !w.Reachable(g.Noun):
			return refuse("You can't reach that.")
		case info.Builtin == state.BuiltinOpen && ns.Open:
			return refuse("It's already open.")
		case info.Builtin == state.BuiltinOpen && ns.Locked:
			return refuse("It's locked.")
		case info.Builtin == state.BuiltinClose && !ns.Open:
			return refuse("It's already closed.")
		}
		return accept
	case state.BuiltinLock, state.BuiltinUnlock:
		verb := "lock"
		if info.Builtin == state.BuiltinUnlock {
			verb = "unlock"
		}
		if v := e.needNoun(g, verb); !v.ok {
			return v
		}
		n, ns := d.Noun(g.Noun), w.Noun(g.Noun)
		switch {
		case !n.Lockable:
			return refuse("You can't %s that.", verb)
		case !w.Reachable(g.Noun):
			return refuse("You can't reach that.")
		case info.Builtin == state.BuiltinLock && ns.Locked:
			return refuse("It's already locked.")
		case info.Builtin == state.BuiltinLock && ns.Open:
			return refuse("You'll have to close it first.")
		case info.Builtin == state.BuiltinUnlock && !ns.Locked:
			return refuse("It isn't locked.")
		case n.Key != 0 && !w.Carried(n.Key):
			return refuse("You don't have the key.")
		case n.Key != 0 && g.Object != 0 && g.Object != n.Key:
			return refuse("That doesn't fit the lock.")
		}
		return accept
	case state.BuiltinTurn:
		if g.Prep != d.W.On && g.Prep != d.W.Off {
			return refuse("Do you want to turn it on or off?")
		}
		if v := e.needNoun(g, "turn"); !v.ok {
			return v
		}
		ns := w.Noun(g.Noun)
		switch {
		case !d.Noun(g.Noun).Switchable:
			return refuse("You can't turn that on or off.")
		case !w.Reachable(g.Noun):
			return refuse("You can't reach that.")
		case g.Prep == d.W.On && ns.On:
			return refuse("It's already on.")
		case g.Prep == d.W.Off && !ns.On:
			return refuse("It's already off.")
		}
		return accept
	case state.BuiltinPut:
		if v := e.needObject(g, "put"); !v.ok {
			return v
		}
		if !d.IsNoun(g.Object) {
			return refuse("What do you want to put it in?")
		}
		c, cs := d.Noun(g.Object), w.Noun(g.Object)
		switch {
		case !c.Container:
			return refuse("You can't put anything in %s.", d.Name(g.Object))
		case c.Closable && !cs.Open:
			return refuse("%s is closed.", capitalize(d.Name(g.Object)))
		case g.Noun == g.Object || w.Within(g.Object, g.Noun):
			return refuse("You can't put something inside itself.")
		case d.IsCreature(g.Noun) || !w.Noun(g.Noun).Movable:
			return refuse("You can't move that.")
		case !w.Reachable(g.Noun) || !w.Reachable(g.Object):
			return refuse("You can't reach that.")
		case w.Location(g.Noun) == g.Object:
			return refuse("It's already there.")
		}
		return accept
	case state.BuiltinTell:
		return refuse("Tell whom to do what?")
	case state.BuiltinShow, state.BuiltinShoot:
		return refuse("Nothing happens.")
	}
	return verdict{}
}

func (e *Engine) verifyExit(dir types.Direction) verdict {
	w := e.World
	if !e.Defs.IsRoom(w.Loc) {
		return refuse("You can't go anywhere from here.")
	}
	rs := w.Room(w.Loc)
	if rs.Exits[dir] == 0 {
		return refuse("You can't go that way.")
	}
	if rs.LockedDoor {
		return refuse("The door is locked.")
	}
	return accept
}

// needThing requires something in the noun slot, including room globals.
func (e *Engine) needThing(g types.Grammar, verb string) verdict {
	if g.Noun == 0 {
		return refuse("What do you want to %s?", verb)
	}
	return accept
}

// needObject requires a noun or creature in the noun slot.
func (e *Engine) needObject(g types.Grammar, verb string) verdict {
	if v := e.needThing(g, verb); !v.ok {
		return v
	}
	if !e.Defs.IsObject(g.Noun) {
		return refuse("You can't %s that.", verb)
	}
	return accept
}

// needNoun requires a noun (not a creature) in the noun slot.
func (e *Engine) needNoun(g types.Grammar, verb string) verdict {
	if v := e.needObject(g, verb); !v.ok {
		return v
	}
	if !e.Defs.IsNoun(g.Noun) {
		return refuse("You can't %s that.", verb)
	}
	return accept
}

// perform carries out a verified built-in verb.
func (e *Engine) perform(g types.Grammar) {
	d := e.Defs
	w := e.World
	info, _ := d.Verb(g.Verb)

	switch info.Builtin {
	case state.BuiltinGo:
		e.walk(d.DirOf[g.NounWord])
	case state.BuiltinDirection:
		e.walk(info.Dir)
	case state.BuiltinLook:
		e.describeRoom()
	case state.BuiltinExamine:
		e.describeThing(g.Noun)
	case state.BuiltinRead:
		if d.IsNoun(g.Noun) && d.Noun(g.Noun).Text != "" {
			e.say(d.Noun(g.Noun).Text)
			return
		}
		e.describeThing(g.Noun)
	case state.BuiltinInventory:
		e.listInventory()
	case state.BuiltinGet:
		e.move(g.Noun, types.Self)
		e.say("Taken.")
	case state.BuiltinDrop:
		e.move(g.Noun, w.Loc)
		e.say("Dropped.")
	case state.BuiltinWear:
		e.move(g.Noun, types.Worn)
		e.say(fmt.Sprintf("You put on %s.", d.Name(g.Noun)))
	case state.BuiltinRemove:
		e.move(g.Noun, types.Self)
		e.say(fmt.Sprintf("You take off %s.", d.Name(g.Noun)))
	case state.BuiltinOpen:
		w.Noun(g.Noun).Open = true
		e.say("Opened.")
		if d.Noun(g.Noun).Container {
			e.listContents(g.Noun)
		}
	case state.BuiltinClose:
		w.Noun(g.Noun).Open = false
		e.say("Closed.")
	case state.BuiltinLock:
		w.Noun(g.Noun).Locked = true
		e.say("Locked.")
	case state.BuiltinUnlock:
		w.Noun(g.Noun).Locked = false
		e.say("Unlocked.")
	case state.BuiltinTurn:
		on := g.Prep == d.W.On
		w.Noun(g.Noun).On = on
		e.say(fmt.Sprintf("%s is now %s.", capitalize(d.Name(g.Noun)), onOff(on)))
	case state.BuiltinPut:
		e.move(g.Noun, g.Object)
		e.say("Done.")
	case state.BuiltinExits:
		e.listExits(true)
	case state.BuiltinScore:
		e.say(fmt.Sprintf("Your score is %d (out of %d possible), in %d turns.", w.Score, w.MaxScore, w.Turns))
	case state.BuiltinWait:
		e.say("Time passes.")
	case state.BuiltinSave:
		e.Request(vm.RequestSave)
	case state.BuiltinRestore:
		e.Request(vm.RequestRestore)
	case state.BuiltinQuit:
		e.Request(vm.RequestQuit)
	case state.BuiltinRestart:
		e.Request(vm.RequestRestart)
	}
}

// walk moves the player through an exit. Room points are awarded on the
// first visit.
func (e *Engine) walk(dir types.Direction) {
	w := e.World
	dest := w.Room(w.Loc).Exits[dir]
	first := !w.Room(dest).Seen
	w.Loc = dest
	w.ComputeScope()
	if first {
		w.Score += e.Defs.Room(dest).Points
	}
	e.Emit(types.Event{Type: events.RoomEntered, Data: map[string]any{"room": int(dest)}})
	e.describeRoom()
}

func (e *Engine) move(r, dest types.Ref) {
	if err := e.World.Move(r, dest); err != nil {
		log.Warningf("built-in move of %d to %d: %s", r, dest, err)
		e.say("You can't do that.")
		return
	}
	e.Emit(types.Event{Type: events.ObjectMoved, Data: map[string]any{"object": int(r), "to": int(dest)}})
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
