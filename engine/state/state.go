// Package state holds the game database: the read-only definitions produced
// by a loader (Defs) and the mutable world they describe (World).
package state

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.state")

// FirstRoom is the Ref of the first room; lower refs are fixed locations.
const FirstRoom types.Ref = 3

// StringLen is the fixed width of a user string slot.
const StringLen = 81

// ClipString truncates s to fit a user string slot, leaving room for the
// terminating zero byte.
func ClipString(s string) string {
	if len(s) >= StringLen {
		return s[:StringLen-1]
	}
	return s
}

// Builtin identifies an interpreter-provided verb.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinGo
	BuiltinDirection
	BuiltinLook
	BuiltinExamine
	BuiltinRead
	BuiltinInventory
	BuiltinGet
	BuiltinDrop
	BuiltinWear
	BuiltinRemove
	BuiltinOpen
	BuiltinClose
	BuiltinLock
	BuiltinUnlock
	BuiltinTurn
	BuiltinPut
	BuiltinTell
	BuiltinShow
	BuiltinShoot
	BuiltinExits
	BuiltinScore
	BuiltinWait
	BuiltinSave
	BuiltinRestore
	BuiltinQuit
	BuiltinRestart
	BuiltinPseudo // any, after and subroutine verbs
)

// VerbInfo describes a canonical verb.
type VerbInfo struct {
	Builtin   Builtin
	Dir       types.Direction // for BuiltinDirection
	MultiNoun bool            // accepts "X and Y" / "all" in the noun slot
}

// Range is a [Start, End) slice of the command table.
type Range struct {
	Start, End int
}

// Picture is a viewable picture ("PIX") name.
type Picture struct {
	Word types.WordID
	Name string
}

// Words caches the ids of words the parser and interpreter treat specially.
type Words struct {
	All, Everything, Everyone, Except, But, And, Then types.WordID
	Tell, To, Turn, On, Off, Show, Look, Examine      types.WordID
	Shoot, At, With, Exits, Door, Scene, Go           types.WordID
	It, Him, Her, Them, He, She, They                 types.WordID
	Any, After, Noun, Object, Undo, Oops, Pix         types.WordID
	Dirs                                              [types.NumDirections]types.WordID
}

// Defs holds the immutable game definitions.
type Defs struct {
	Game        types.GameDef
	Dict        *Dict
	Rooms       []types.RoomDef
	Nouns       []types.NounDef
	Creatures   []types.CreatureDef
	Messages    []string // 1-based; Messages[0] is unused
	Commands    []types.Command
	Ranges      map[types.WordID]Range
	Verbs       map[types.WordID]VerbInfo
	Syns        map[types.WordID]types.WordID // author verb synonyms
	BuiltinSyns map[types.WordID]types.WordID
	TwoWord     map[[2]types.WordID]types.WordID
	DirOf       map[types.WordID]types.Direction
	Preps       map[types.WordID]bool
	Noise       map[types.WordID]bool
	Subroutines []types.WordID
	Pictures    []Picture
	InitStrings []string
	NumFlags    int
	NumCounters int
	NumVars     int
	NumStrings  int
	NumObjFlags int
	NumObjProps int
	MaxWeight   int
	MaxSize     int
	Signature   uint16
	LookHasArgs bool
	W           Words

	labels   []string
	labelIdx map[string]int
	labelCmd map[int]int
	ids      map[string]types.Ref
	finished bool
}

// NewDefs creates definitions seeded with the built-in vocabulary.
func NewDefs() *Defs {
	d := &Defs{
		Dict:        NewDict(),
		Messages:    []string{""},
		Ranges:      map[types.WordID]Range{},
		Verbs:       map[types.WordID]VerbInfo{},
		Syns:        map[types.WordID]types.WordID{},
		BuiltinSyns: map[types.WordID]types.WordID{},
		TwoWord:     map[[2]types.WordID]types.WordID{},
		Preps:       map[types.WordID]bool{},
		Noise:       map[types.WordID]bool{},
		labelIdx:    map[string]int{},
		labelCmd:    map[int]int{},
		ids:         map[string]types.Ref{},
		MaxWeight:   100,
		MaxSize:     100,
	}
	seedVocabulary(d)
	return d
}

// AddRoom appends a room. All rooms must be added before any noun.
func (d *Defs) AddRoom(r types.RoomDef) types.Ref {
	if len(d.Nouns) > 0 || len(d.Creatures) > 0 {
		panic("state: rooms must be added before nouns and creatures")
	}
	d.Rooms = append(d.Rooms, r)
	return FirstRoom + types.Ref(len(d.Rooms)-1)
}

// AddNoun appends a noun. All nouns must be added before any creature.
func (d *Defs) AddNoun(n types.NounDef) types.Ref {
	if len(d.Creatures) > 0 {
		panic("state: nouns must be added before creatures")
	}
	d.Nouns = append(d.Nouns, n)
	return d.FirstNoun() + types.Ref(len(d.Nouns)-1)
}

// AddCreature appends a creature.
func (d *Defs) AddCreature(c types.CreatureDef) types.Ref {
	d.Creatures = append(d.Creatures, c)
	return d.FirstCreature() + types.Ref(len(d.Creatures)-1)
}

// AddMessage appends a message and returns its 1-based number.
func (d *Defs) AddMessage(text string) int {
	d.Messages = append(d.Messages, text)
	return len(d.Messages) - 1
}

// AddVerb registers an author verb and returns its word id.
func (d *Defs) AddVerb(word string) types.WordID {
	id := d.Dict.Add(word)
	if _, ok := d.Verbs[id]; !ok {
		d.Verbs[id] = VerbInfo{MultiNoun: true}
	}
	return id
}

// AddSynonym makes word an author synonym of the canonical verb.
func (d *Defs) AddSynonym(word string, verb types.WordID) types.WordID {
	id := d.Dict.Add(word)
	d.Syns[id] = verb
	return id
}

// AddSubroutine registers the next subroutine verb and returns its number.
func (d *Defs) AddSubroutine() int {
	n := len(d.Subroutines) + 1
	id := d.Dict.Add(fmt.Sprintf("subroutine%d", n))
	d.Verbs[id] = VerbInfo{Builtin: BuiltinPseudo}
	d.Subroutines = append(d.Subroutines, id)
	return n
}

// AddCommand appends a metacommand. The table is grouped by verb in Finish.
func (d *Defs) AddCommand(c types.Command) {
	if _, ok := d.Verbs[c.Verb]; !ok && c.Verb != 0 {
		d.Verbs[c.Verb] = VerbInfo{MultiNoun: true}
	}
	d.Commands = append(d.Commands, c)
}

// Label interns a redirect label and returns its 1-based index.
func (d *Defs) Label(name string) int {
	if i, ok := d.labelIdx[name]; ok {
		return i
	}
	d.labels = append(d.labels, name)
	d.labelIdx[name] = len(d.labels)
	return len(d.labels)
}

// LabelTarget returns the command index of a redirect label.
func (d *Defs) LabelTarget(label int) (int, bool) {
	i, ok := d.labelCmd[label]
	return i, ok
}

// Finish groups the command table by verb, computes the verb ranges and the
// load-time flags. It must be called once after all Add calls.
func (d *Defs) Finish() error {
	if d.finished {
		return nil
	}
	sort.SliceStable(d.Commands, func(i, j int) bool {
		return d.Commands[i].Verb < d.Commands[j].Verb
	})
	for i, c := range d.Commands {
		r, ok := d.Ranges[c.Verb]
		if !ok {
			r.Start = i
		}
		r.End = i + 1
		d.Ranges[c.Verb] = r
		if c.Label != "" {
			d.labelCmd[d.Label(c.Label)] = i
		}
		if c.Verb == d.W.Look && !c.Redirect && (c.Noun != 0 || c.NounRef != 0 || c.Obj != 0) {
			d.LookHasArgs = true
		}
	}
	for i, name := range d.labels {
		if _, ok := d.labelCmd[i+1]; !ok {
			return fmt.Errorf("redirect label %q has no command", name)
		}
	}
	for i, r := range d.Rooms {
		d.ids[r.ID] = FirstRoom + types.Ref(i)
	}
	for i, n := range d.Nouns {
		d.ids[n.ID] = d.FirstNoun() + types.Ref(i)
	}
	for i, c := range d.Creatures {
		d.ids[c.ID] = d.FirstCreature() + types.Ref(i)
	}
	if d.Game.Start == 0 && len(d.Rooms) > 0 {
		d.Game.Start = FirstRoom
	}
	if !d.IsRoom(d.Game.Start) {
		return fmt.Errorf("start location %d is not a room", d.Game.Start)
	}
	d.finished = true
	log.Debug("definitions finished",
		"rooms", len(d.Rooms), "nouns", len(d.Nouns), "creatures", len(d.Creatures),
		"commands", len(d.Commands), "words", d.Dict.Len())
	return nil
}

// RefByID returns the Ref of an entity by its string id. Valid after Finish.
func (d *Defs) RefByID(id string) (types.Ref, bool) {
	r, ok := d.ids[id]
	return r, ok
}

// FirstNoun returns the Ref of the first noun.
func (d *Defs) FirstNoun() types.Ref { return FirstRoom + types.Ref(len(d.Rooms)) }

// FirstCreature returns the Ref of the first creature.
func (d *Defs) FirstCreature() types.Ref { return d.FirstNoun() + types.Ref(len(d.Nouns)) }

// End returns one past the last valid Ref.
func (d *Defs) End() types.Ref { return d.FirstCreature() + types.Ref(len(d.Creatures)) }

// IsRoom reports whether r is a room.
func (d *Defs) IsRoom(r types.Ref) bool { return r >= FirstRoom && r < d.FirstNoun() }

// IsNoun reports whether r is a noun.
func (d *Defs) IsNoun(r types.Ref) bool { return r >= d.FirstNoun() && r < d.FirstCreature() }

// IsCreature reports whether r is a creature.
func (d *Defs) IsCreature(r types.Ref) bool { return r >= d.FirstCreature() && r < d.End() }

// IsObject reports whether r is a noun or a creature.
func (d *Defs) IsObject(r types.Ref) bool { return r >= d.FirstNoun() && r < d.End() }

// IsLocation reports whether r can hold objects.
func (d *Defs) IsLocation(r types.Ref) bool {
	return r == types.Nowhere || r == types.Self || r == types.Worn || (r >= FirstRoom && r < d.End())
}

// Room returns the definition of room r.
func (d *Defs) Room(r types.Ref) *types.RoomDef { return &d.Rooms[r-FirstRoom] }

// Noun returns the definition of noun r.
func (d *Defs) Noun(r types.Ref) *types.NounDef { return &d.Nouns[r-d.FirstNoun()] }

// Creature returns the definition of creature r.
func (d *Defs) Creature(r types.Ref) *types.CreatureDef {
	return &d.Creatures[r-d.FirstCreature()]
}

// ObjectIndex returns the index of an object in the noun-then-creature order.
func (d *Defs) ObjectIndex(r types.Ref) int { return int(r - d.FirstNoun()) }

// NumObjects returns the number of nouns plus creatures.
func (d *Defs) NumObjects() int { return len(d.Nouns) + len(d.Creatures) }

// ObjectWords returns the name, adjective and synonyms of an object.
func (d *Defs) ObjectWords(r types.Ref) (name, adj types.WordID, syns []types.WordID) {
	switch {
	case d.IsNoun(r):
		n := d.Noun(r)
		return n.Name, n.Adj, n.Synonyms
	case d.IsCreature(r):
		c := d.Creature(r)
		return c.Name, c.Adj, c.Synonyms
	case r < 0:
		return types.WordID(-r), 0, nil
	}
	return 0, 0, nil
}

// HasName reports whether w is the name or a synonym of r.
func (d *Defs) HasName(r types.Ref, w types.WordID) bool {
	name, _, syns := d.ObjectWords(r)
	if w == name {
		return true
	}
	for _, s := range syns {
		if s == w {
			return true
		}
	}
	return false
}

// Gender returns the pronoun class of an object.
func (d *Defs) Gender(r types.Ref) types.Gender {
	switch {
	case d.IsCreature(r):
		return d.Creature(r).Gender
	case d.IsNoun(r) && d.Noun(r).Plural:
		return types.Plural
	}
	return types.Neuter
}

// Name returns the display name of r.
func (d *Defs) Name(r types.Ref) string {
	switch {
	case r == types.Self:
		return "you"
	case r == types.Worn:
		return "your body"
	case d.IsRoom(r):
		return d.Room(r).Name
	case d.IsNoun(r):
		n := d.Noun(r)
		if n.Short != "" {
			return n.Short
		}
		return joinWords(d.Dict.Word(n.Adj), d.Dict.Word(n.Name))
	case d.IsCreature(r):
		c := d.Creature(r)
		if c.Short != "" {
			return c.Short
		}
		return joinWords(d.Dict.Word(c.Adj), d.Dict.Word(c.Name))
	case r < 0:
		return d.Dict.Word(types.WordID(-r))
	}
	return "nothing"
}

func joinWords(adj, name string) string {
	if adj == "" {
		return name
	}
	return adj + " " + name
}

// CanonicalVerb maps w to a canonical verb, preferring room synonyms, then
// author synonyms, then built-in synonyms. It returns 0 if w is not a verb.
func (d *Defs) CanonicalVerb(room types.Ref, w types.WordID) types.WordID {
	if d.IsRoom(room) {
		if v, ok := d.Room(room).VerbSyns[w]; ok {
			return v
		}
	}
	if v, ok := d.Syns[w]; ok {
		return v
	}
	if v, ok := d.BuiltinSyns[w]; ok {
		return v
	}
	if _, ok := d.Verbs[w]; ok {
		return w
	}
	return 0
}

// Verb returns the verb info of a canonical verb.
func (d *Defs) Verb(w types.WordID) (VerbInfo, bool) {
	v, ok := d.Verbs[w]
	return v, ok
}

// Message returns message n, or "" if out of range.
func (d *Defs) Message(n int) string {
	if n <= 0 || n >= len(d.Messages) {
		return ""
	}
	return d.Messages[n]
}
