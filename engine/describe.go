package engine

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nathoo/agtcore/types"
)

// describeRoom produces the standard room description output.
func (e *Engine) describeRoom() {
	d := e.Defs
	w := e.World
	if !d.IsRoom(w.Loc) {
		e.say("You are nowhere in particular.")
		return
	}
	if !w.Lit() {
		e.say("It is pitch dark. You can't see a thing.")
		return
	}
	room := d.Room(w.Loc)
	e.say(room.Name)
	if room.Description != "" {
		e.say(room.Description)
	}

	// List visible objects lying in the room, in Ref order.
	var names []string
	for _, r := range w.Contents(w.Loc) {
		if w.InScope(r) {
			names = append(names, d.Name(r))
		}
	}
	if len(names) > 0 {
		e.sayAs(types.LineListing, "You see: "+strings.Join(names, ", ")+".")
	}
	e.listExits(false)
}

// listExits lists the open exits of the current room. When explicit is
// false nothing is printed for a room without exits.
func (e *Engine) listExits(explicit bool) {
	d := e.Defs
	w := e.World
	if !d.IsRoom(w.Loc) {
		return
	}
	var dirs []string
	for i, dest := range w.Room(w.Loc).Exits {
		if dest != 0 {
			dirs = append(dirs, d.Dict.Word(d.W.Dirs[i]))
		}
	}
	switch {
	case len(dirs) > 0:
		e.sayAs(types.LineExits, "Exits: "+strings.Join(dirs, ", ")+".")
	case explicit:
		e.say("There are no obvious exits.")
	}
}

// describeThing prints the description of r and its visible state.
func (e *Engine) describeThing(r types.Ref) {
	d := e.Defs
	w := e.World
	switch {
	case d.IsNoun(r):
		n := d.Noun(r)
		if n.Description != "" {
			e.say(n.Description)
		} else {
			e.say(fmt.Sprintf("You see nothing special about %s.", d.Name(r)))
		}
		ns := w.Noun(r)
		if n.Switchable {
			e.say(fmt.Sprintf("It is %s.", onOff(ns.On)))
		}
		if n.Closable && !ns.Open {
			e.say("It is closed.")
		} else if n.Container {
			e.listContents(r)
		}
	case d.IsCreature(r):
		c := d.Creature(r)
		if c.Description != "" {
			e.say(c.Description)
		} else {
			e.say(fmt.Sprintf("You see nothing special about %s.", d.Name(r)))
		}
		e.listContents(r)
	case r < 0:
		e.say(fmt.Sprintf("You see nothing special about the %s.", d.Name(r)))
	default:
		e.say("You see nothing special.")
	}
}

// listContents prints what is directly inside r, if anything.
func (e *Engine) listContents(r types.Ref) {
	d := e.Defs
	var names []string
	for _, c := range e.World.Contents(r) {
		names = append(names, d.Name(c))
	}
	if len(names) == 0 {
		return
	}
	if d.IsCreature(r) {
		e.say(fmt.Sprintf("%s is carrying: %s.", capitalize(d.Name(r)), strings.Join(names, ", ")))
		return
	}
	e.say(fmt.Sprintf("%s contains: %s.", capitalize(d.Name(r)), strings.Join(names, ", ")))
}

func (e *Engine) listInventory() {
	d := e.Defs
	w := e.World
	var held, worn []string
	for _, r := range w.Contents(types.Self) {
		held = append(held, d.Name(r))
	}
	for _, r := range w.Contents(types.Worn) {
		worn = append(worn, d.Name(r))
	}
	if len(held) == 0 && len(worn) == 0 {
		e.say("You are carrying nothing.")
		return
	}
	if len(held) > 0 {
		e.sayAs(types.LineListing, "You are carrying: "+strings.Join(held, ", ")+".")
	}
	if len(worn) > 0 {
		e.sayAs(types.LineListing, "You are wearing: "+strings.Join(worn, ", ")+".")
	}
}

// Summary returns a short status report for front-end status lines and
// the /state meta command.
func (e *Engine) Summary() []string {
	d := e.Defs
	w := e.World
	room := "nowhere"
	if d.IsRoom(w.Loc) {
		room = d.Room(w.Loc).Name
	}
	out := []string{
		fmt.Sprintf("Location: %s", room),
		fmt.Sprintf("Score: %d/%d", w.Score, w.MaxScore),
		fmt.Sprintf("Turns: %d", w.Turns),
		fmt.Sprintf("Carrying: weight %d/%d, size %d/%d", w.Weight, d.MaxWeight, w.Size, d.MaxSize),
	}
	var on []string
	for i, f := range w.Flags {
		if f {
			on = append(on, fmt.Sprint(i))
		}
	}
	if len(on) > 0 {
		out = append(out, "Flags set: "+strings.Join(on, " "))
	}
	for i, c := range w.Counters {
		if c != 0 {
			out = append(out, fmt.Sprintf("Counter %d: %d", i, c))
		}
	}
	for i, v := range w.Vars {
		if v != 0 {
			out = append(out, fmt.Sprintf("Variable %d: %d", i, v))
		}
	}
	return out
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
