package surface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/mixd/internal/surface"
	"github.com/dokzlo13/mixd/internal/surface/surfacetest"
)

func TestSetters_RenderOnlyOnChange(t *testing.T) {
	rec := &surfacetest.Recorder{}
	h := surface.NewHost(nil, rec)
	h.Reset(2, 1)

	a := h.Strip(1)
	a.SetMuted(true)
	a.SetMuted(true)
	a.SetVolume(1.5)
	a.SetAssigned(false)
	h.Bus(0).SetRunning(true)

	assert.Equal(t, []string{
		"strip1.muted=true",
		"strip1.volume=1.000",
		"bus0.running=true",
	}, rec.Events())
}

func TestPress_CarriesToggledState(t *testing.T) {
	h := surface.NewHost(nil, nil)
	h.Reset(1, 0)
	a := h.Strip(0)

	var got []surface.Event
	a.Subscribe(surface.MutePressed, func(ev surface.Event) { got = append(got, ev) })

	a.Press(surface.MutePressed)
	a.SetMuted(true)
	a.Press(surface.MutePressed)

	require.Len(t, got, 2)
	assert.True(t, got[0].State)
	assert.False(t, got[1].State)
}

func TestEmit_VolumeFollowsFaderWithoutRender(t *testing.T) {
	rec := &surfacetest.Recorder{}
	h := surface.NewHost(nil, rec)
	h.Reset(1, 0)
	a := h.Strip(0)

	var volume float64
	a.Subscribe(surface.VolumeChanged, func(ev surface.Event) { volume = ev.Volume })
	a.Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 0.25})

	assert.Equal(t, 0.25, volume)
	assert.Equal(t, 0.25, a.Volume())
	assert.Empty(t, rec.Events())
}

func TestSubscription_Unsubscribe(t *testing.T) {
	h := surface.NewHost(nil, nil)
	h.Reset(0, 1)
	a := h.Bus(0)

	calls := 0
	sub := a.Subscribe(surface.AssignPressed, func(surface.Event) { calls++ })
	a.Subscribe(surface.RunPressed, func(surface.Event) { calls += 100 })

	a.Press(surface.AssignPressed)
	sub.Unsubscribe()
	sub.Unsubscribe()
	a.Press(surface.AssignPressed)

	assert.Equal(t, 1, calls)
}

func TestHost_ResetDropsSubscriptions(t *testing.T) {
	h := surface.NewHost(nil, nil)
	h.Reset(1, 1)
	old := h.Strip(0)

	calls := 0
	old.Subscribe(surface.MutePressed, func(surface.Event) { calls++ })
	h.AddButton("Restart")

	h.Reset(3, 2)
	old.Press(surface.MutePressed)

	assert.Equal(t, 0, calls)
	assert.Len(t, h.Strips(), 3)
	assert.Len(t, h.Buses(), 2)
	assert.Nil(t, h.Strip(3))
	assert.Nil(t, h.Bus(-1))
	assert.Nil(t, h.Button("Restart"))
}

func TestButton(t *testing.T) {
	rec := &surfacetest.Recorder{}
	h := surface.NewHost(nil, rec)
	h.Reset(0, 0)
	b := h.AddButton("Restart")

	var state []bool
	b.Subscribe(func(ev surface.Event) { state = append(state, ev.State) })
	b.Press()
	b.SetActive(true)
	b.Press()

	assert.Equal(t, []bool{true, false}, state)
	assert.Equal(t, []string{"button:Restart=true"}, rec.Events())
	assert.Same(t, b, h.Button("Restart"))
}
