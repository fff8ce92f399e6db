// Package loader builds game definitions from Lua source files. The Lua VM
// only runs at load time: scripts declare rooms, nouns, creatures and
// metacommands, and the loader assembles the metacommand bodies into
// bytecode. Nothing Lua survives into play.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/agtcore/engine/state"
)

var log = commonlog.GetLogger("agtcore.loader")

// collector accumulates Lua declarations during file execution.
type collector struct {
	game      *lua.LTable
	rooms     []rawDef
	nouns     []rawDef
	creatures []rawDef
	verbs     [][]string
	messages  []string
	commands  []rawCommand
}

// rawDef holds an entity table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
}

// rawCommand holds a metacommand table. sub and label are set by the
// Subroutine and Redirect constructors.
type rawCommand struct {
	table *lua.LTable
	sub   string
	label string
	where string
}

// source is one named chunk of Lua.
type source struct {
	name string
	code string
}

// Load reads all .lua files from dir, game.lua first, and returns the
// finished definitions.
func Load(dir string) (*state.Defs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	var srcs []source
	for _, f := range sortedLuaFiles(luaFiles) {
		b, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		srcs = append(srcs, source{name: f, code: string(b)})
	}
	return load(srcs)
}

// LoadString loads a game held in a single Lua chunk.
func LoadString(name, code string) (*state.Defs, error) {
	return load([]source{{name: name, code: code}})
}

func load(srcs []source) (*state.Defs, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, s := range srcs {
		fn, err := L.Load(strings.NewReader(s.code), s.name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", s.name, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("executing %s: %w", s.name, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling game data: %w", err)
	}
	if err := validate(defs); err != nil {
		return nil, err
	}
	log.Info("game loaded", "title", defs.Game.Title, "rooms", len(defs.Rooms),
		"nouns", len(defs.Nouns), "creatures", len(defs.Creatures), "commands", len(defs.Commands))
	return defs, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the game directory or break
// determinism.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

// sortedLuaFiles puts game.lua first and sorts the rest.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
