package state

import (
	"sort"

	"github.com/nathoo/agtcore/types"
)

var directionWords = [types.NumDirections]string{
	"north", "south", "east", "west",
	"northeast", "northwest", "southeast", "southwest",
	"up", "down", "in", "out",
}

var directionAbbrevs = map[string]types.Direction{
	"n": types.North, "s": types.South, "e": types.East, "w": types.West,
	"ne": types.NorthEast, "nw": types.NorthWest,
	"se": types.SouthEast, "sw": types.SouthWest,
	"u": types.Up, "d": types.Down,
	"inside": types.In, "outside": types.Out,
	"enter": types.In, "exit": types.Out,
}

var builtinVerbs = []struct {
	word  string
	b     Builtin
	multi bool
}{
	{"go", BuiltinGo, false},
	{"look", BuiltinLook, false},
	{"examine", BuiltinExamine, false},
	{"read", BuiltinRead, false},
	{"inventory", BuiltinInventory, false},
	{"get", BuiltinGet, true},
	{"drop", BuiltinDrop, true},
	{"wear", BuiltinWear, true},
	{"remove", BuiltinRemove, true},
	{"open", BuiltinOpen, false},
	{"close", BuiltinClose, false},
	{"lock", BuiltinLock, false},
	{"unlock", BuiltinUnlock, false},
	{"turn", BuiltinTurn, false},
	{"put", BuiltinPut, true},
	{"tell", BuiltinTell, false},
	{"show", BuiltinShow, false},
	{"shoot", BuiltinShoot, false},
	{"exits", BuiltinExits, false},
	{"score", BuiltinScore, false},
	{"wait", BuiltinWait, false},
	{"save", BuiltinSave, false},
	{"restore", BuiltinRestore, false},
	{"quit", BuiltinQuit, false},
	{"restart", BuiltinRestart, false},
	{"any", BuiltinPseudo, false},
	{"after", BuiltinPseudo, false},
}

// Single-word built-in synonyms.
var builtinSynonyms = map[string]string{
	"l":       "look",
	"x":       "examine",
	"inspect": "examine",
	"check":   "examine",
	"i":       "inventory",
	"inv":     "inventory",
	"take":    "get",
	"grab":    "get",
	"z":       "wait",
	"shut":    "close",
	"don":     "wear",
	"doff":    "remove",
	"switch":  "turn",
	"fire":    "shoot",
	"q":       "quit",
	"walk":    "go",
	"run":     "go",
	"insert":  "put",
	"place":   "put",
}

var twoWordVerbs = []struct{ first, second, verb string }{
	{"pick", "up", "get"},
	{"put", "down", "drop"},
	{"take", "off", "remove"},
	{"put", "on", "wear"},
	{"look", "at", "examine"},
	{"look", "in", "examine"},
	{"list", "exits", "exits"},
}

var prepositions = []string{
	"in", "into", "on", "onto", "with", "at", "to", "from",
	"under", "about", "off", "inside", "through", "behind",
}

var noiseWords = []string{"the", "a", "an", "my", "is"}

func seedVocabulary(d *Defs) {
	add := d.Dict.Add
	d.DirOf = map[types.WordID]types.Direction{}
	for i, w := range directionWords {
		id := add(w)
		d.W.Dirs[i] = id
		d.DirOf[id] = types.Direction(i)
		d.Verbs[id] = VerbInfo{Builtin: BuiltinDirection, Dir: types.Direction(i)}
	}
	for _, w := range sortedKeys(directionAbbrevs) {
		dir := directionAbbrevs[w]
		id := add(w)
		d.DirOf[id] = dir
		d.BuiltinSyns[id] = d.W.Dirs[dir]
	}
	for _, v := range builtinVerbs {
		d.Verbs[add(v.word)] = VerbInfo{Builtin: v.b, MultiNoun: v.multi}
	}
	for _, w := range sortedKeys(builtinSynonyms) {
		d.BuiltinSyns[add(w)] = d.Dict.Lookup(builtinSynonyms[w])
	}
	for _, tw := range twoWordVerbs {
		d.TwoWord[[2]types.WordID{add(tw.first), add(tw.second)}] = d.Dict.Lookup(tw.verb)
	}
	for _, p := range prepositions {
		d.Preps[add(p)] = true
	}
	for _, n := range noiseWords {
		d.Noise[add(n)] = true
	}

	w := &d.W
	w.All, w.Everything, w.Everyone = add("all"), add("everything"), add("everyone")
	w.Except, w.But, w.And, w.Then = add("except"), add("but"), add("and"), add("then")
	w.Tell, w.To, w.Turn = add("tell"), add("to"), add("turn")
	w.On, w.Off, w.Show = add("on"), add("off"), add("show")
	w.Look, w.Examine, w.Shoot = add("look"), add("examine"), add("shoot")
	w.At, w.With, w.Exits = add("at"), add("with"), add("exits")
	w.Door, w.Scene, w.Go = add("door"), add("scene"), add("go")
	w.It, w.Him, w.Her, w.Them = add("it"), add("him"), add("her"), add("them")
	w.He, w.She, w.They = add("he"), add("she"), add("they")
	w.Any, w.After = add("any"), add("after")
	w.Noun, w.Object = add("noun"), add("object")
	w.Undo, w.Oops, w.Pix = add("undo"), add("oops"), add("pix")
}

// sortedKeys keeps word ids stable across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKeyword reports whether w is one of the structural words the matcher
// never treats as a noun phrase start.
func (d *Defs) IsKeyword(w types.WordID) bool {
	x := &d.W
	switch w {
	case x.And, x.Then, x.Except, x.But:
		return true
	}
	return d.Preps[w]
}
