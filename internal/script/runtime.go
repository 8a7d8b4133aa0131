// Package script loads an optional Lua file that adds free-standing buttons
// to the control surface.
//
//	local mixer = require("mixer")
//	mixer.button{
//	    name  = "Talkback",
//	    lit   = function(snap) return snap.bus(0).mute end,
//	    press = function(active) mixer.set_bus("mute", 0, active) end,
//	}
//
// Strip and bus indices are zero-based. The Lua state is only touched on the
// engine's event loop, apart from loading which happens before the loop runs.
package script

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/mixd/internal/engine"
	"github.com/dokzlo13/mixd/internal/mixer"
)

// ErrNoSession is raised by write functions called while no mixer session
// is active.
var ErrNoSession = fmt.Errorf("no mixer session")

type buttonDef struct {
	name  string
	lit   *lua.LFunction
	press *lua.LFunction
}

// Runtime owns the Lua state and the buttons the script registered.
type Runtime struct {
	L       *lua.LState
	buttons []buttonDef

	// writer belongs to the current session. Set on the event loop.
	writer engine.Writer
}

// New creates a runtime with the log and mixer modules preloaded.
func New() *Runtime {
	r := &Runtime{L: lua.NewState()}
	r.L.PreloadModule("log", NewLogModule().Loader)
	r.L.PreloadModule("mixer", (&mixerModule{r: r}).Loader)
	return r
}

// Close closes the Lua state.
func (r *Runtime) Close() {
	r.L.Close()
}

// LoadFile executes a script file. Must be called before the event loop runs.
func (r *Runtime) LoadFile(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	log.Info().Int("buttons", len(r.buttons)).Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes script source.
func (r *Runtime) LoadString(src string) error {
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return nil
}

// Buttons binds the registered buttons to a session's writer. It has the
// shape of engine.ButtonSource and runs on the event loop.
func (r *Runtime) Buttons(w engine.Writer) []engine.ButtonSpec {
	r.writer = w
	specs := make([]engine.ButtonSpec, 0, len(r.buttons))
	for _, def := range r.buttons {
		spec := engine.ButtonSpec{Name: def.name}
		if def.lit != nil {
			spec.Lit = func(snap *mixer.Snapshot) bool { return r.callLit(def, snap) }
		}
		if def.press != nil {
			spec.Press = func(state bool) error { return r.callPress(def, state) }
		}
		specs = append(specs, spec)
	}
	return specs
}

func (r *Runtime) callLit(def buttonDef, snap *mixer.Snapshot) bool {
	r.ensureContext()
	L := r.L
	L.Push(def.lit)
	L.Push(snapshotTable(L, snap))
	if err := L.PCall(1, 1, nil); err != nil {
		log.Error().Err(err).Str("button", def.name).Msg("Lua lit function failed")
		return false
	}
	result := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(result)
}

func (r *Runtime) callPress(def buttonDef, state bool) error {
	r.ensureContext()
	L := r.L
	L.Push(def.press)
	L.Push(lua.LBool(state))
	if err := L.PCall(1, 0, nil); err != nil {
		return fmt.Errorf("button %q: %w", def.name, err)
	}
	return nil
}

func (r *Runtime) ensureContext() {
	if r.L.Context() == nil {
		r.L.SetContext(context.Background())
	}
}
