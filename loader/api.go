package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/agtcore/engine/vm"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerInstructions(L)
}

// curried returns a constructor of the form Name "id" { ... }.
func curried(L *lua.LState, add func(id string, tbl *lua.LTable, where string)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		where := L.Where(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1), where)
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "room", flags = 10, ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		if coll.game != nil {
			L.RaiseError("Game is already defined")
		}
		coll.game = L.CheckTable(1)
		return 0
	}))

	L.SetGlobal("Room", curried(L, func(id string, tbl *lua.LTable, _ string) {
		coll.rooms = append(coll.rooms, rawDef{id: id, table: tbl})
	}))
	L.SetGlobal("Noun", curried(L, func(id string, tbl *lua.LTable, _ string) {
		coll.nouns = append(coll.nouns, rawDef{id: id, table: tbl})
	}))
	L.SetGlobal("Creature", curried(L, func(id string, tbl *lua.LTable, _ string) {
		coll.creatures = append(coll.creatures, rawDef{id: id, table: tbl})
	}))

	// Verb("rub", "polish", "buff") declares a verb and its synonyms.
	L.SetGlobal("Verb", L.NewFunction(func(L *lua.LState) int {
		words := []string{L.CheckString(1)}
		for i := 2; i <= L.GetTop(); i++ {
			words = append(words, L.CheckString(i))
		}
		coll.verbs = append(coll.verbs, words)
		return 0
	}))

	// Message("text") declares a message and returns its number.
	L.SetGlobal("Message", L.NewFunction(func(L *lua.LState) int {
		coll.messages = append(coll.messages, L.CheckString(1))
		L.Push(lua.LNumber(len(coll.messages)))
		return 1
	}))

	// Command { verb = "rub", noun = "coin", <instructions...> }
	L.SetGlobal("Command", L.NewFunction(func(L *lua.LState) int {
		coll.commands = append(coll.commands, rawCommand{table: L.CheckTable(1), where: L.Where(1)})
		return 0
	}))

	// Subroutine "name" { <instructions...> } adds a command to a
	// subroutine. A subroutine may have several commands.
	L.SetGlobal("Subroutine", curried(L, func(name string, tbl *lua.LTable, where string) {
		coll.commands = append(coll.commands, rawCommand{table: tbl, sub: name, where: where})
	}))

	// Redirect "label" { verb = ..., <instructions...> } declares a
	// redirect target reached only through RedirectTo("label").
	L.SetGlobal("Redirect", curried(L, func(label string, tbl *lua.LTable, where string) {
		coll.commands = append(coll.commands, rawCommand{table: tbl, label: label, where: where})
	}))
}

// registerInstructions defines one Lua function per opcode name. Each
// returns an instruction table { op = name, args = {...} } that Command
// bodies list in order.
func registerInstructions(L *lua.LState) {
	for _, name := range vm.Names() {
		if name == "Not" {
			continue
		}
		op, _ := vm.Lookup(name)
		info, _ := vm.Info(op)
		n := len(info.Args)
		opName := name
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			if L.GetTop() != n {
				L.RaiseError("%s takes %d argument(s), got %d", opName, n, L.GetTop())
			}
			args := L.NewTable()
			for i := 1; i <= n; i++ {
				args.Append(L.Get(i))
			}
			ins := L.NewTable()
			ins.RawSetString("op", lua.LString(opName))
			ins.RawSetString("args", args)
			L.Push(ins)
			return 1
		}))
	}

	// Not(cond) negates a conditional instruction.
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		op, ok := vm.Lookup(getString(inner, "op"))
		if !ok || !vm.IsCond(op) || op == vm.OpOr || inner.RawGetString("negate") == lua.LTrue {
			L.ArgError(1, "Not expects a single conditional")
		}
		ins := L.NewTable()
		inner.ForEach(func(k, v lua.LValue) { ins.RawSet(k, v) })
		ins.RawSetString("negate", lua.LTrue)
		L.Push(ins)
		return 1
	}))

	// Mark("name") names a jump target for Goto and OnFailGoto.
	L.SetGlobal("Mark", L.NewFunction(func(L *lua.LState) int {
		ins := L.NewTable()
		ins.RawSetString("mark", lua.LString(L.CheckString(1)))
		L.Push(ins)
		return 1
	}))

	// Var(n) reads variable n as an argument; NOUN and OBJECT read the
	// current grammar slots.
	L.SetGlobal("Var", L.NewFunction(func(L *lua.LState) int {
		v := L.Get(1)
		if v.Type() != lua.LTNumber && v.Type() != lua.LTString {
			L.ArgError(1, "variable number or name expected")
		}
		tbl := L.NewTable()
		tbl.RawSetString("mode", lua.LString("var"))
		tbl.RawSetString("var", v)
		L.Push(tbl)
		return 1
	}))
	slot := func(mode string) *lua.LTable {
		tbl := L.NewTable()
		tbl.RawSetString("mode", lua.LString(mode))
		return tbl
	}
	L.SetGlobal("NOUN", slot("noun"))
	L.SetGlobal("OBJECT", slot("object"))
}
