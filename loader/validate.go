package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks finished defs for consistency. Warnings are logged;
// errors fail the load.
func validate(defs *state.Defs) error {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.errorf("Game.title is required")
	}
	for i, s := range defs.InitStrings {
		if len(s) >= state.StringLen {
			ve.warnf("initial string %d is longer than %d bytes and will be cut", i, state.StringLen-1)
		}
	}

	// Object placement.
	for i, n := range defs.Nouns {
		r := defs.FirstNoun() + types.Ref(i)
		switch {
		case n.Location == types.Nowhere:
			ve.warnf("noun %q starts nowhere", n.ID)
		case n.Location == r:
			ve.errorf("noun %q is inside itself", n.ID)
		case defs.IsNoun(n.Location) && !defs.Noun(n.Location).Container:
			ve.errorf("noun %q is inside %q, which is not a container", n.ID, defs.Noun(n.Location).ID)
		case n.Location == types.Worn && !n.Wearable:
			ve.errorf("noun %q is worn but not wearable", n.ID)
		}
		if n.Weight < 0 || n.Size < 0 {
			ve.errorf("noun %q has a negative weight or size", n.ID)
		}
		if n.Key != 0 && !n.Lockable {
			ve.warnf("noun %q has a key but is not lockable", n.ID)
		}
	}
	for _, c := range defs.Creatures {
		if c.Location != types.Nowhere && !defs.IsRoom(c.Location) {
			ve.errorf("creature %q must start in a room", c.ID)
		}
	}
	checkCycles(defs, ve)

	// Rooms nothing leads to, apart from the start.
	entered := map[types.Ref]bool{defs.Game.Start: true}
	for _, room := range defs.Rooms {
		for _, dest := range room.Exits {
			entered[dest] = true
		}
	}
	for i, room := range defs.Rooms {
		if !entered[state.FirstRoom+types.Ref(i)] {
			ve.warnf("room %q has no exit leading into it", room.ID)
		}
	}

	// Command bodies.
	if err := vm.New(defs).Verify(); err != nil {
		ve.errorf("%s", err)
	}
	for i, cmd := range defs.Commands {
		code, err := vm.Decode(cmd.Code)
		if err != nil {
			continue // reported by Verify
		}
		for _, ins := range code {
			info, _ := vm.Info(ins.Op)
			for j, kind := range info.Args {
				if ins.Modes[j] != types.ModeLiteral {
					continue
				}
				if msg := checkArg(defs, kind, int(ins.Args[j])); msg != "" {
					ve.errorf("command %d (%s): %s argument %d: %s",
						i+1, defs.Dict.Word(cmd.Verb), info.Name, j+1, msg)
				}
			}
		}
	}

	for _, w := range ve.Warnings {
		log.Warning(w)
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// checkArg checks a literal argument against the tables of defs. It
// returns "" when the value is acceptable.
func checkArg(d *state.Defs, kind vm.ArgKind, v int) string {
	r := types.Ref(v)
	inRange := func(what string, n int) string {
		if v < 0 || v >= n {
			return fmt.Sprintf("%s %d out of range (have %d)", what, v, n)
		}
		return ""
	}
	switch kind {
	case vm.ArgRoom:
		if !d.IsRoom(r) {
			return fmt.Sprintf("%d is not a room", v)
		}
	case vm.ArgObj:
		if !d.IsObject(r) {
			return fmt.Sprintf("%d is not a noun or creature", v)
		}
	case vm.ArgNoun:
		if !d.IsNoun(r) {
			return fmt.Sprintf("%d is not a noun", v)
		}
	case vm.ArgCreature:
		if !d.IsCreature(r) {
			return fmt.Sprintf("%d is not a creature", v)
		}
	case vm.ArgLoc:
		if !d.IsLocation(r) {
			return fmt.Sprintf("%d is not a location", v)
		}
	case vm.ArgFlag:
		return inRange("flag", d.NumFlags)
	case vm.ArgCounter:
		return inRange("counter", d.NumCounters)
	case vm.ArgVar:
		return inRange("variable", d.NumVars)
	case vm.ArgStr:
		return inRange("string", d.NumStrings)
	case vm.ArgObjFlag:
		return inRange("object flag", d.NumObjFlags)
	case vm.ArgProp:
		return inRange("object property", d.NumObjProps)
	case vm.ArgRoomFlag:
		return inRange("room flag", 32)
	case vm.ArgMsg:
		if v < 1 || v >= len(d.Messages) {
			return fmt.Sprintf("no message %d", v)
		}
	case vm.ArgDir:
		return inRange("direction", int(types.NumDirections))
	}
	return ""
}

// checkCycles reports nouns whose container chain loops.
func checkCycles(d *state.Defs, ve *ValidationError) {
	for i := range d.Nouns {
		start := d.FirstNoun() + types.Ref(i)
		loc := d.Nouns[i].Location
		for steps := 0; d.IsNoun(loc); steps++ {
			if loc == start || steps > len(d.Nouns) {
				ve.errorf("noun %q is inside a container loop", d.Nouns[i].ID)
				break
			}
			loc = d.Noun(loc).Location
		}
	}
}
