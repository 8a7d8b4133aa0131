package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/mixd/internal/engine"
	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/mixer/memory"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/surface"
)

const talkback = `
local mixer = require("mixer")
local log = require("log")

mixer.button{
	name = "Talkback",
	lit = function(snap) return snap.bus(0).mute == true end,
	press = function(active)
		log.info("Talkback pressed", {active = active})
		local ok, err = mixer.set_bus("mute", 0, active)
		assert(ok, err)
	end,
}

mixer.button{
	name = "Reset gains",
	press = function()
		for i = 0, 2 do
			mixer.set_strip("gain", i, 0)
		end
		mixer.command("Command.Reset=1")
	end,
}
`

func newEngine(t *testing.T, r *Runtime) (*engine.Engine, *memory.Device, *surface.Host) {
	t.Helper()
	dev := memory.New(mixer.TypeStandard)
	require.NoError(t, dev.Login(context.Background()))
	host := surface.NewHost(nil, nil)
	e := engine.New(host, dev, 3, 2, engine.Options{
		Settings: settings.Defaults(),
		Buttons:  r.Buttons,
	})
	e.Reconcile(dev.Snapshot())
	dev.ResetWrites()
	return e, dev, host
}

func TestButtons_LitAndPress(t *testing.T) {
	r := New()
	defer r.Close()
	require.NoError(t, r.LoadString(talkback))

	e, dev, host := newEngine(t, r)
	defer e.Close()

	b := host.Button("Talkback")
	require.NotNil(t, b)
	assert.False(t, b.Active())

	b.Press()
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 0, Param: "mute", Value: true},
	}, dev.Writes())

	dev.SetBus(0, mixer.ParamMute, false)
	e.Reconcile(dev.Snapshot())
	assert.False(t, b.Active())

	dev.SetBus(0, mixer.ParamMute, true)
	e.Reconcile(dev.Snapshot())
	assert.True(t, b.Active())
}

func TestButtons_MomentaryWritesAndCommands(t *testing.T) {
	r := New()
	defer r.Close()
	require.NoError(t, r.LoadString(talkback))

	e, dev, host := newEngine(t, r)
	defer e.Close()

	b := host.Button("Reset gains")
	require.NotNil(t, b)
	assert.True(t, b.Active())

	b.Press()
	assert.Len(t, dev.Writes(), 3)
	assert.Equal(t, []string{"Command.Reset=1"}, dev.Commands())
	assert.True(t, b.Active())
}

func TestButtons_PressErrorKeepsLight(t *testing.T) {
	r := New()
	defer r.Close()
	require.NoError(t, r.LoadString(`
local mixer = require("mixer")
mixer.button{
	name = "Broken",
	lit = function() return false end,
	press = function() error("nope") end,
}`))

	e, _, host := newEngine(t, r)
	defer e.Close()

	b := host.Button("Broken")
	require.NotNil(t, b)
	b.Press()
	assert.False(t, b.Active())
}

func TestButton_RequiresName(t *testing.T) {
	r := New()
	defer r.Close()
	err := r.LoadString(`require("mixer").button{press = function() end}`)
	require.Error(t, err)
}

func TestWrites_WithoutSession(t *testing.T) {
	r := New()
	defer r.Close()
	require.NoError(t, r.LoadString(`
local ok, err = require("mixer").set_strip("mute", 0, true)
assert(ok == false)
assert(err == "no mixer session")
`))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buttons.lua")
	require.NoError(t, os.WriteFile(path, []byte(talkback), 0o644))

	r := New()
	defer r.Close()
	require.NoError(t, r.LoadFile(path))
	assert.Len(t, r.buttons, 2)

	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.lua")))
}
