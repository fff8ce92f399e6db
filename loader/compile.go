package loader

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/vm"
	"github.com/nathoo/agtcore/types"
)

// Named tables declared in Game{}. Each may be a count or a list of names.
const (
	tblFlags       = "flags"
	tblCounters    = "counters"
	tblVariables   = "variables"
	tblStrings     = "strings"
	tblObjectFlags = "object_flags"
	tblObjectProps = "object_props"
	tblRoomFlags   = "room_flags"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or def if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an integer field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the array part of a table field as strings. A plain
// string field counts as a one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			if s, ok := v.RawGetInt(i).(lua.LString); ok {
				out = append(out, string(s))
			}
		}
		return out
	}
	return nil
}

// compiler converts collected Lua data into definitions.
type compiler struct {
	coll  *collector
	defs  *state.Defs
	refs  map[string]types.Ref
	names map[string]map[string]int
	msgs  map[string]int
	subs  map[string]int
}

// compile converts all collected Lua data into finished Defs.
func compile(coll *collector) (*state.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	c := &compiler{
		coll:  coll,
		defs:  state.NewDefs(),
		refs:  map[string]types.Ref{},
		names: map[string]map[string]int{},
		msgs:  map[string]int{},
		subs:  map[string]int{},
	}
	steps := []func() error{
		c.assignRefs,
		c.game,
		c.messages,
		c.verbs,
		c.rooms,
		c.nouns,
		c.creatures,
		c.commands,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	d := c.defs
	if err := d.Finish(); err != nil {
		return nil, err
	}
	if d.Signature == 0 {
		d.Signature = signature(d)
	}
	return d, nil
}

// assignRefs numbers every entity before any table is compiled so exits
// and locations may name entities declared later.
func (c *compiler) assignRefs() error {
	next := state.FirstRoom
	for _, group := range [][]rawDef{c.coll.rooms, c.coll.nouns, c.coll.creatures} {
		for _, raw := range group {
			switch raw.id {
			case "", "player", "self", "worn", "nowhere":
				return fmt.Errorf("invalid entity id %q", raw.id)
			}
			if _, dup := c.refs[raw.id]; dup {
				return fmt.Errorf("duplicate entity id %q", raw.id)
			}
			c.refs[raw.id] = next
			next++
		}
	}
	if len(c.coll.rooms) == 0 {
		return fmt.Errorf("no rooms defined")
	}
	return nil
}

func (c *compiler) game() error {
	tbl := c.coll.game
	d := c.defs
	d.Game = types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Intro:   getString(tbl, "intro"),
		Legacy:  getBool(tbl, "legacy", false),
	}
	if start := getString(tbl, "start"); start != "" {
		r, err := c.ref(start)
		if err != nil {
			return fmt.Errorf("game start: %w", err)
		}
		d.Game.Start = r
	}

	var err error
	sizes := []struct {
		key string
		dst *int
	}{
		{tblFlags, &d.NumFlags},
		{tblCounters, &d.NumCounters},
		{tblVariables, &d.NumVars},
		{tblStrings, &d.NumStrings},
		{tblObjectFlags, &d.NumObjFlags},
		{tblObjectProps, &d.NumObjProps},
	}
	for _, s := range sizes {
		if *s.dst, err = c.table(s.key); err != nil {
			return err
		}
	}
	if n, err := c.table(tblRoomFlags); err != nil {
		return err
	} else if n > 32 {
		return fmt.Errorf("at most 32 room flags, got %d", n)
	}

	if n := getInt(tbl, "max_weight"); n > 0 {
		d.MaxWeight = n
	}
	if n := getInt(tbl, "max_size"); n > 0 {
		d.MaxSize = n
	}
	if n := getInt(tbl, "signature"); n > 0 {
		d.Signature = uint16(n)
	}
	for _, p := range getStrings(tbl, "pictures") {
		d.Pictures = append(d.Pictures, state.Picture{Word: d.Dict.Add(p), Name: p})
	}
	d.InitStrings = getStrings(tbl, "initial_strings")
	if len(d.InitStrings) > d.NumStrings {
		return fmt.Errorf("%d initial strings for %d string slots", len(d.InitStrings), d.NumStrings)
	}
	return nil
}

// table reads a Game{} table size. A list of names also defines the names
// instructions may use instead of numbers.
func (c *compiler) table(key string) (int, error) {
	names := map[string]int{}
	c.names[key] = names
	switch v := c.coll.game.RawGetString(key).(type) {
	case lua.LNumber:
		if v < 0 {
			return 0, fmt.Errorf("game %s: negative size", key)
		}
		return int(v), nil
	case *lua.LTable:
		for i := 1; i <= v.MaxN(); i++ {
			s, ok := v.RawGetInt(i).(lua.LString)
			if !ok {
				return 0, fmt.Errorf("game %s: entry %d is not a name", key, i)
			}
			if _, dup := names[string(s)]; dup {
				return 0, fmt.Errorf("game %s: duplicate name %q", key, s)
			}
			names[string(s)] = i - 1
		}
		return v.MaxN(), nil
	case *lua.LNilType:
		return 0, nil
	}
	return 0, fmt.Errorf("game %s: count or list of names expected", key)
}

func (c *compiler) messages() error {
	for _, text := range c.coll.messages {
		n := c.defs.AddMessage(text)
		if _, ok := c.msgs[text]; !ok {
			c.msgs[text] = n
		}
	}
	return nil
}

func (c *compiler) verbs() error {
	d := c.defs
	for _, words := range c.coll.verbs {
		v := d.AddVerb(words[0])
		for _, syn := range words[1:] {
			d.AddSynonym(syn, v)
		}
	}
	return nil
}

func (c *compiler) rooms() error {
	d := c.defs
	for _, raw := range c.coll.rooms {
		tbl := raw.table
		room := types.RoomDef{
			ID:          raw.id,
			Name:        getString(tbl, "name"),
			Description: getString(tbl, "description"),
			Dark:        getBool(tbl, "dark", false),
			Points:      getInt(tbl, "points"),
		}
		if room.Name == "" {
			room.Name = raw.id
		}
		if err := c.room(&room, tbl); err != nil {
			return fmt.Errorf("compiling room %s: %w", raw.id, err)
		}
		d.AddRoom(room)
	}
	return nil
}

func (c *compiler) room(room *types.RoomDef, tbl *lua.LTable) error {
	d := c.defs
	var err error
	if exits := getTable(tbl, "exits"); exits != nil {
		exits.ForEach(func(k, v lua.LValue) {
			if err != nil {
				return
			}
			dir, ok := d.DirOf[d.Dict.Lookup(k.String())]
			if !ok {
				err = fmt.Errorf("unknown direction %q", k.String())
				return
			}
			target, rerr := c.ref(v.String())
			if rerr != nil || !c.isRoom(target) {
				err = fmt.Errorf("exit %q points to undefined room %q", k.String(), v.String())
				return
			}
			room.Exits[dir] = target
		})
		if err != nil {
			return err
		}
	}
	for _, f := range getStrings(tbl, "flags") {
		bit, err := c.index(tblRoomFlags, lua.LString(f))
		if err != nil {
			return err
		}
		room.Flags |= 1 << uint(bit)
	}
	for _, g := range getStrings(tbl, "globals") {
		room.GlobalNouns = append(room.GlobalNouns, d.Dict.Add(g))
	}
	if fn := getTable(tbl, "flag_nouns"); fn != nil {
		// Sorted by word so the table does not depend on Lua map order.
		var words []string
		fn.ForEach(func(k, _ lua.LValue) { words = append(words, k.String()) })
		sort.Strings(words)
		for _, w := range words {
			bit, err := c.index(tblRoomFlags, fn.RawGetString(w))
			if err != nil {
				return fmt.Errorf("flag noun %q: %w", w, err)
			}
			room.FlagNouns = append(room.FlagNouns, types.FlagNoun{Word: d.Dict.Add(w), Flag: bit})
		}
	}
	for _, p := range getStrings(tbl, "pictures") {
		idx := -1
		for i, pic := range d.Pictures {
			if pic.Name == p {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown picture %q", p)
		}
		room.Pictures = append(room.Pictures, idx)
	}
	if syns := getTable(tbl, "verbs"); syns != nil {
		room.VerbSyns = map[types.WordID]types.WordID{}
		syns.ForEach(func(k, v lua.LValue) {
			room.VerbSyns[d.Dict.Add(k.String())] = c.verb(v.String())
		})
	}
	return nil
}

func (c *compiler) nouns() error {
	d := c.defs
	for _, raw := range c.coll.nouns {
		tbl := raw.table
		name := getString(tbl, "name")
		if name == "" {
			return fmt.Errorf("compiling noun %s: name is required", raw.id)
		}
		n := types.NounDef{
			ID:          raw.id,
			Name:        d.Dict.Add(name),
			Short:       getString(tbl, "short"),
			Description: getString(tbl, "description"),
			Text:        getString(tbl, "text"),
			Weight:      getInt(tbl, "weight"),
			Size:        getInt(tbl, "size"),
			Points:      getInt(tbl, "points"),
			Open:        getBool(tbl, "open", false),
			Locked:      getBool(tbl, "locked", false),
			On:          getBool(tbl, "on", false),
			Movable:     getBool(tbl, "movable", true),
			Light:       getBool(tbl, "light", false),
			Wearable:    getBool(tbl, "wearable", false),
			Container:   getBool(tbl, "container", false),
			Closable:    getBool(tbl, "closable", false),
			Lockable:    getBool(tbl, "lockable", false),
			Switchable:  getBool(tbl, "switchable", false),
			Plural:      getBool(tbl, "plural", false),
		}
		if adj := getString(tbl, "adj"); adj != "" {
			n.Adj = d.Dict.Add(adj)
		}
		for _, s := range getStrings(tbl, "synonyms") {
			n.Synonyms = append(n.Synonyms, d.Dict.Add(s))
		}
		var err error
		if n.Location, err = c.location(tbl); err != nil {
			return fmt.Errorf("compiling noun %s: %w", raw.id, err)
		}
		if key := getString(tbl, "key"); key != "" {
			if n.Key, err = c.ref(key); err != nil || !c.isNoun(n.Key) {
				return fmt.Errorf("compiling noun %s: key %q is not a noun", raw.id, key)
			}
		}
		d.AddNoun(n)
	}
	return nil
}

func (c *compiler) creatures() error {
	d := c.defs
	for _, raw := range c.coll.creatures {
		tbl := raw.table
		name := getString(tbl, "name")
		if name == "" {
			return fmt.Errorf("compiling creature %s: name is required", raw.id)
		}
		cr := types.CreatureDef{
			ID:          raw.id,
			Name:        d.Dict.Add(name),
			Short:       getString(tbl, "short"),
			Description: getString(tbl, "description"),
			Hostile:     getBool(tbl, "hostile", false),
			Points:      getInt(tbl, "points"),
			GroupMember: getBool(tbl, "group", false),
		}
		if adj := getString(tbl, "adj"); adj != "" {
			cr.Adj = d.Dict.Add(adj)
		}
		for _, s := range getStrings(tbl, "synonyms") {
			cr.Synonyms = append(cr.Synonyms, d.Dict.Add(s))
		}
		switch g := getString(tbl, "gender"); g {
		case "", "neuter", "it":
			cr.Gender = types.Neuter
		case "male", "he":
			cr.Gender = types.Male
		case "female", "she":
			cr.Gender = types.Female
		case "plural", "they":
			cr.Gender = types.Plural
		default:
			return fmt.Errorf("compiling creature %s: unknown gender %q", raw.id, g)
		}
		var err error
		if cr.Location, err = c.location(tbl); err != nil {
			return fmt.Errorf("compiling creature %s: %w", raw.id, err)
		}
		d.AddCreature(cr)
	}
	return nil
}

// location reads the initial location of an object. A missing location
// means nowhere.
func (c *compiler) location(tbl *lua.LTable) (types.Ref, error) {
	loc := getString(tbl, "location")
	if loc == "" {
		return types.Nowhere, nil
	}
	return c.ref(loc)
}

func (c *compiler) commands() error {
	d := c.defs
	for _, raw := range c.coll.commands {
		if raw.sub != "" {
			if _, ok := c.subs[raw.sub]; !ok {
				c.subs[raw.sub] = d.AddSubroutine()
			}
		}
	}
	for i, raw := range c.coll.commands {
		cmd, err := c.command(raw)
		if err != nil {
			return fmt.Errorf("command %d (%s): %w", i+1, strings.TrimSuffix(raw.where, ": "), err)
		}
		d.AddCommand(cmd)
	}
	return nil
}

func (c *compiler) command(raw rawCommand) (types.Command, error) {
	d := c.defs
	tbl := raw.table
	cmd := types.Command{Label: raw.label, Redirect: raw.label != ""}
	if l := getString(tbl, "label"); l != "" {
		if cmd.Label != "" {
			return cmd, fmt.Errorf("redirect target already labelled %q", cmd.Label)
		}
		cmd.Label = l
	}

	switch verb := getString(tbl, "verb"); {
	case raw.sub != "":
		if verb != "" {
			return cmd, fmt.Errorf("subroutine %q cannot name a verb", raw.sub)
		}
		cmd.Verb = d.Subroutines[c.subs[raw.sub]-1]
		cmd.AnyActor = true
	case verb == "":
		return cmd, fmt.Errorf("verb is required")
	default:
		cmd.Verb = c.verb(verb)
	}

	word := func(key string) types.WordID {
		if s := getString(tbl, key); s != "" {
			return d.Dict.Add(s)
		}
		return 0
	}
	switch actor := getString(tbl, "actor"); actor {
	case "":
	case "any":
		cmd.AnyActor = true
	default:
		cmd.Actor = d.Dict.Add(actor)
	}
	cmd.Noun, cmd.NounAdj = word("noun"), word("noun_adj")
	cmd.Obj, cmd.ObjAdj = word("object"), word("object_adj")
	cmd.Prep = word("prep")
	var err error
	if id := getString(tbl, "noun_ref"); id != "" {
		if cmd.NounRef, err = c.ref(id); err != nil {
			return cmd, err
		}
	}
	if id := getString(tbl, "object_ref"); id != "" {
		if cmd.ObjRef, err = c.ref(id); err != nil {
			return cmd, err
		}
	}

	cmd.Code, err = c.body(tbl)
	return cmd, err
}

// verb returns the canonical verb for word, registering a new author verb
// if the word is unknown.
func (c *compiler) verb(word string) types.WordID {
	d := c.defs
	if v := d.CanonicalVerb(0, d.Dict.Lookup(word)); v != 0 {
		return v
	}
	return d.AddVerb(word)
}

// body assembles the array part of a command table.
func (c *compiler) body(tbl *lua.LTable) ([]int32, error) {
	asm := vm.NewAsm()
	for i := 1; i <= tbl.MaxN(); i++ {
		ins, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("entry %d is not an instruction", i)
		}
		if err := c.instruction(asm, ins); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return asm.Code()
}

func (c *compiler) instruction(asm *vm.Asm, ins *lua.LTable) error {
	if mark := getString(ins, "mark"); mark != "" {
		asm.Mark(mark)
		return nil
	}
	name := getString(ins, "op")
	op, ok := vm.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown instruction %q", name)
	}
	info, _ := vm.Info(op)
	args := getTable(ins, "args")
	if args == nil || args.MaxN() != len(info.Args) {
		return fmt.Errorf("%s takes %d argument(s)", name, len(info.Args))
	}

	switch op {
	case vm.OpGoto, vm.OpOnFailGoto:
		target, ok := args.RawGetInt(1).(lua.LString)
		if !ok {
			return fmt.Errorf("%s expects a mark name", name)
		}
		if op == vm.OpGoto {
			asm.Goto(string(target))
		} else {
			asm.OnFailGoto(string(target))
		}
		return nil
	}

	out := make([]vm.Arg, len(info.Args))
	for i, kind := range info.Args {
		a, err := c.arg(kind, args.RawGetInt(i+1))
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", name, i+1, err)
		}
		out[i] = a
	}
	if getBool(ins, "negate", false) {
		asm.Not()
	}
	asm.Emit(op, out...)
	return nil
}

// arg converts a Lua value to an instruction argument of the given kind.
// Numbers are always taken literally; strings are resolved by kind.
func (c *compiler) arg(kind vm.ArgKind, v lua.LValue) (vm.Arg, error) {
	d := c.defs
	switch v := v.(type) {
	case lua.LNumber:
		return vm.Lit(int(v)), nil
	case *lua.LTable:
		switch getString(v, "mode") {
		case "noun":
			return vm.Noun, nil
		case "object":
			return vm.Object, nil
		case "var":
			n, err := c.index(tblVariables, v.RawGetString("var"))
			if err != nil {
				return vm.Arg{}, err
			}
			return vm.Var(n), nil
		}
		return vm.Arg{}, fmt.Errorf("unexpected table")
	case lua.LString:
		s := string(v)
		switch kind {
		case vm.ArgRoom, vm.ArgObj, vm.ArgNoun, vm.ArgCreature, vm.ArgLoc, vm.ArgAny:
			r, err := c.ref(s)
			return vm.Lit(int(r)), err
		case vm.ArgFlag:
			return c.named(tblFlags, v)
		case vm.ArgCounter:
			return c.named(tblCounters, v)
		case vm.ArgVar:
			return c.named(tblVariables, v)
		case vm.ArgStr:
			return c.named(tblStrings, v)
		case vm.ArgObjFlag:
			return c.named(tblObjectFlags, v)
		case vm.ArgProp:
			return c.named(tblObjectProps, v)
		case vm.ArgRoomFlag:
			return c.named(tblRoomFlags, v)
		case vm.ArgMsg:
			return vm.Lit(c.message(s)), nil
		case vm.ArgDir:
			dir, ok := d.DirOf[d.Dict.Lookup(s)]
			if !ok {
				return vm.Arg{}, fmt.Errorf("unknown direction %q", s)
			}
			return vm.Lit(int(dir)), nil
		case vm.ArgSub:
			n, ok := c.subs[s]
			if !ok {
				return vm.Arg{}, fmt.Errorf("unknown subroutine %q", s)
			}
			return vm.Lit(n), nil
		case vm.ArgLabel:
			return vm.Lit(d.Label(s)), nil
		case vm.ArgWord:
			return vm.Lit(int(d.Dict.Add(s))), nil
		}
		return vm.Arg{}, fmt.Errorf("number expected, got %q", s)
	}
	return vm.Arg{}, fmt.Errorf("unexpected %s", v.Type())
}

func (c *compiler) named(table string, v lua.LValue) (vm.Arg, error) {
	n, err := c.index(table, v)
	return vm.Lit(n), err
}

// index resolves a table entry given by number or declared name.
func (c *compiler) index(table string, v lua.LValue) (int, error) {
	switch v := v.(type) {
	case lua.LNumber:
		return int(v), nil
	case lua.LString:
		if n, ok := c.names[table][string(v)]; ok {
			return n, nil
		}
		return 0, fmt.Errorf("unknown %s entry %q", strings.ReplaceAll(table, "_", " "), string(v))
	}
	return 0, fmt.Errorf("%s entry expected, got %s", table, v.Type())
}

// message returns the number of a message text, adding it if new.
func (c *compiler) message(text string) int {
	if n, ok := c.msgs[text]; ok {
		return n
	}
	n := c.defs.AddMessage(text)
	c.msgs[text] = n
	return n
}

// ref resolves an entity id or one of the player location names.
func (c *compiler) ref(id string) (types.Ref, error) {
	switch id {
	case "player", "self":
		return types.Self, nil
	case "worn":
		return types.Worn, nil
	case "nowhere":
		return types.Nowhere, nil
	}
	if r, ok := c.refs[id]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("undefined entity %q", id)
}

func (c *compiler) isRoom(r types.Ref) bool {
	return r >= state.FirstRoom && int(r-state.FirstRoom) < len(c.coll.rooms)
}

func (c *compiler) isNoun(r types.Ref) bool {
	first := state.FirstRoom + types.Ref(len(c.coll.rooms))
	return r >= first && int(r-first) < len(c.coll.nouns)
}

// signature derives the 16-bit save signature from the shape of the game:
// its title, entity ids and table sizes. Saves from a game whose shape
// changed are rejected on restore.
func signature(d *state.Defs) uint16 {
	h := fnv.New32a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(d.Game.Title)
	for _, r := range d.Rooms {
		write(r.ID)
	}
	for _, n := range d.Nouns {
		write(n.ID)
	}
	for _, cr := range d.Creatures {
		write(cr.ID)
	}
	write(fmt.Sprint(d.NumFlags, d.NumCounters, d.NumVars, d.NumStrings, d.NumObjFlags, d.NumObjProps))
	sum := h.Sum32()
	sig := uint16(sum>>16) ^ uint16(sum)
	if sig == 0 {
		sig = 1
	}
	return sig
}
