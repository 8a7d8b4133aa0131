package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/mixd/internal/mixer"
)

// mixerModule provides button registration and mixer writes to Lua.
type mixerModule struct {
	r *Runtime
}

// Loader is the module loader for Lua
func (m *mixerModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "button", L.NewFunction(m.button))
	L.SetField(mod, "set_strip", L.NewFunction(m.setStrip))
	L.SetField(mod, "set_bus", L.NewFunction(m.setBus))
	L.SetField(mod, "command", L.NewFunction(m.command))

	L.Push(mod)
	return 1
}

// button{name=..., lit=function(snap) ... end, press=function(active) ... end}
func (m *mixerModule) button(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name, ok := tbl.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		L.ArgError(1, "button needs a name")
		return 0
	}
	def := buttonDef{name: string(name)}
	if fn, ok := tbl.RawGetString("lit").(*lua.LFunction); ok {
		def.lit = fn
	}
	if fn, ok := tbl.RawGetString("press").(*lua.LFunction); ok {
		def.press = fn
	}

	m.r.buttons = append(m.r.buttons, def)
	return 0
}

// set_strip(param, index, value) -> ok, err
func (m *mixerModule) setStrip(L *lua.LState) int {
	param := L.CheckString(1)
	index := L.CheckInt(2)
	value := LuaToGo(L.CheckAny(3))
	if m.r.writer == nil {
		return pushResult(L, ErrNoSession)
	}
	return pushResult(L, m.r.writer.SetStrip(param, index, value))
}

// set_bus(param, index, value) -> ok, err
func (m *mixerModule) setBus(L *lua.LState) int {
	param := L.CheckString(1)
	index := L.CheckInt(2)
	value := LuaToGo(L.CheckAny(3))
	if m.r.writer == nil {
		return pushResult(L, ErrNoSession)
	}
	return pushResult(L, m.r.writer.SetBus(param, index, value))
}

// command(text) -> ok, err
func (m *mixerModule) command(L *lua.LState) int {
	text := L.CheckString(1)
	if m.r.writer == nil {
		return pushResult(L, ErrNoSession)
	}
	return pushResult(L, m.r.writer.Command(text))
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// snapshotTable exposes a snapshot as {strips=n, buses=n, strip(i), bus(i)}.
func snapshotTable(L *lua.LState, snap *mixer.Snapshot) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "strips", lua.LNumber(len(snap.Strips)))
	L.SetField(tbl, "buses", lua.LNumber(len(snap.Buses)))
	L.SetField(tbl, "strip", L.NewFunction(func(L *lua.LState) int {
		return pushParams(L, snap.Strips, L.CheckInt(1))
	}))
	L.SetField(tbl, "bus", L.NewFunction(func(L *lua.LState) int {
		return pushParams(L, snap.Buses, L.CheckInt(1))
	}))
	return tbl
}

func pushParams(L *lua.LState, list []mixer.Params, i int) int {
	if i < 0 || i >= len(list) {
		L.Push(lua.LNil)
		return 1
	}
	p := list[i]
	tbl := L.NewTable()
	L.SetField(tbl, "name", lua.LString(p.Name))
	for k, v := range p.Bools {
		L.SetField(tbl, k, lua.LBool(v))
	}
	for k, v := range p.Floats {
		L.SetField(tbl, k, lua.LNumber(v))
	}
	L.Push(tbl)
	return 1
}
