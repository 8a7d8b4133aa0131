package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/mixer/memory"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/surface"
	"github.com/dokzlo13/mixd/internal/surface/surfacetest"
	"github.com/dokzlo13/mixd/internal/toggle"
)

type testRig struct {
	engine *Engine
	dev    *memory.Device
	host   *surface.Host
	rec    *surfacetest.Recorder
}

func newRig(t *testing.T, opts Options) *testRig {
	t.Helper()
	return newModelRig(t, mixer.TypeStandard, opts)
}

func newModelRig(t *testing.T, typ mixer.Type, opts Options) *testRig {
	t.Helper()
	if opts.Settings.MaxDB == 0 && opts.Settings.MinDB == 0 {
		st := settings.Defaults()
		st.BusToggles = opts.Settings.BusToggles
		st.CustomStripAssign = opts.Settings.CustomStripAssign
		st.CustomStripMute = opts.Settings.CustomStripMute
		st.CustomStripRun = opts.Settings.CustomStripRun
		st.Limiter = opts.Settings.Limiter
		opts.Settings = st
	}

	dev := memory.New(typ)
	require.NoError(t, dev.Login(context.Background()))

	rec := &surfacetest.Recorder{}
	host := surface.NewHost(nil, rec)
	strips, buses := typ.Counts()
	e := New(host, dev, strips, buses, opts)
	e.Reconcile(dev.Snapshot())
	dev.ResetWrites()
	rec.Reset()
	t.Cleanup(e.Close)

	return &testRig{engine: e, dev: dev, host: host, rec: rec}
}

func (r *testRig) reconcile() {
	r.engine.Reconcile(r.dev.Snapshot())
}

// selectedOnDevice returns the buses the mixer has selected.
func (r *testRig) selectedOnDevice() []int {
	var out []int
	for i, p := range r.dev.Snapshot().Buses {
		if p.Selected() {
			out = append(out, i)
		}
	}
	return out
}

func TestReconcile_PendingSkipsOneCycle(t *testing.T) {
	r := newRig(t, Options{})
	st := settings.Defaults()

	r.host.Strip(0).Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 0.5})
	assert.True(t, r.engine.Arena().Strip(0).Pending())
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 0, Param: "gain", Value: st.ToGain(0.5)},
	}, r.dev.Writes())

	// The mixer moves elsewhere before the write is observed.
	r.dev.SetStrip(0, mixer.ParamGain, 6.0)

	r.reconcile()
	assert.InDelta(t, 0.5, r.host.Strip(0).Volume(), 1e-9)
	assert.False(t, r.engine.Arena().Strip(0).Pending())

	r.reconcile()
	assert.InDelta(t, st.ToVolume(6.0), r.host.Strip(0).Volume(), 1e-9)
}

func TestReconcile_PendingLeavesOtherFieldsAlone(t *testing.T) {
	r := newRig(t, Options{})

	r.host.Strip(1).Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 0.25})
	r.dev.SetStrip(1, mixer.ParamMute, true)
	r.reconcile()

	assert.True(t, r.host.Strip(1).Muted())
	assert.InDelta(t, 0.25, r.host.Strip(1).Volume(), 1e-9)
}

func TestReconcile_BusSelectionNormalized(t *testing.T) {
	r := newRig(t, Options{})

	r.dev.SetBus(0, mixer.ParamSelect, true)
	r.dev.SetBus(1, mixer.ParamSelect, true)
	r.reconcile()
	assert.Equal(t, NoBus, r.engine.Arena().Selection.Selected())
	assert.False(t, r.host.Bus(0).Assigned())
	assert.False(t, r.host.Bus(1).Assigned())

	r.dev.SetBus(0, mixer.ParamSelect, false)
	r.reconcile()
	assert.Equal(t, 1, r.engine.Arena().Selection.Selected())
	assert.False(t, r.host.Bus(0).Assigned())
	assert.True(t, r.host.Bus(1).Assigned())
}

func TestReconcile_StripVolumeFollowsSelectedBusLayer(t *testing.T) {
	r := newRig(t, Options{})
	st := settings.Defaults()

	r.dev.SetStrip(0, mixer.GainLayer(1), -24.0)
	r.dev.SetBus(1, mixer.ParamSelect, true)
	r.reconcile()

	assert.InDelta(t, st.ToVolume(-24.0), r.host.Strip(0).Volume(), 1e-9)
}

func TestReconcile_NamesFromSnapshot(t *testing.T) {
	r := newRig(t, Options{})
	r.dev.SetStrip(2, mixer.ParamLabel, "Mic")
	r.reconcile()
	assert.Equal(t, "Mic", r.host.Strip(2).Name())
	assert.Equal(t, "Bus 1", r.host.Bus(0).Name())
}

func TestSelectBus_ClearsPreviousFirst(t *testing.T) {
	r := newRig(t, Options{})
	r.dev.SetBus(0, mixer.ParamSelect, true)
	r.reconcile()
	r.dev.ResetWrites()

	r.host.Bus(1).Press(surface.AssignPressed)

	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 0, Param: "sel", Value: false},
		{Target: memory.TargetBus, Index: 1, Param: "sel", Value: true},
	}, r.dev.Writes())
	assert.Equal(t, 1, r.engine.Arena().Selection.Selected())
	assert.False(t, r.host.Bus(0).Assigned())
	assert.True(t, r.host.Bus(1).Assigned())

	// Pressing the lit bus again deselects it.
	r.dev.ResetWrites()
	r.host.Bus(1).Press(surface.AssignPressed)
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 1, Param: "sel", Value: false},
	}, r.dev.Writes())
	assert.Equal(t, NoBus, r.engine.Arena().Selection.Selected())
	assert.False(t, r.host.Bus(1).Assigned())
}

func TestSelectBus_ClearsBusesSelectedOnMixer(t *testing.T) {
	r := newRig(t, Options{})
	r.dev.SetBus(0, mixer.ParamSelect, true)
	r.dev.SetBus(1, mixer.ParamSelect, true)
	r.reconcile()
	require.Equal(t, NoBus, r.engine.Arena().Selection.Selected())
	assert.Equal(t, []int{0, 1}, r.engine.Arena().Selection.Reported())
	r.dev.ResetWrites()

	r.host.Bus(1).Press(surface.AssignPressed)
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 0, Param: "sel", Value: false},
		{Target: memory.TargetBus, Index: 1, Param: "sel", Value: true},
	}, r.dev.Writes())

	for range 3 {
		r.reconcile()
		assert.Equal(t, []int{1}, r.selectedOnDevice())
		assert.Equal(t, 1, r.engine.Arena().Selection.Selected())
		assert.True(t, r.host.Bus(1).Assigned())
	}
}

func TestSelectBus_ExclusiveAcrossSequences(t *testing.T) {
	type step struct {
		mixer []int // buses the mixer selects by itself
		press int   // bus whose assign is pressed, NoBus for none
	}
	tests := []struct {
		name  string
		steps []step
		want  []int
	}{
		{
			name:  "radio across presses",
			steps: []step{{press: 0}, {press: 3}, {press: 1}},
			want:  []int{1},
		},
		{
			name:  "pressing the lit bus deselects",
			steps: []step{{press: 2}, {press: 2}},
			want:  nil,
		},
		{
			name:  "mixer pair then press one of them",
			steps: []step{{mixer: []int{0, 1}, press: NoBus}, {press: 1}},
			want:  []int{1},
		},
		{
			name:  "mixer pair then press a third bus",
			steps: []step{{mixer: []int{0, 3}, press: NoBus}, {press: 2}},
			want:  []int{2},
		},
		{
			name: "mixer selects another bus after a press",
			steps: []step{
				{press: 0},
				{mixer: []int{4}, press: NoBus},
				{press: 2},
				{press: 4},
			},
			want: []int{4},
		},
		{
			name:  "mixer selects everything",
			steps: []step{{mixer: []int{0, 1, 2, 3, 4}, press: NoBus}, {press: 3}},
			want:  []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newModelRig(t, mixer.TypeBanana, Options{})

			for n, s := range tt.steps {
				for _, i := range s.mixer {
					r.dev.SetBus(i, mixer.ParamSelect, true)
				}
				r.reconcile()
				if s.press == NoBus {
					continue
				}

				r.host.Bus(s.press).Press(surface.AssignPressed)
				r.reconcile()

				onDevice := r.selectedOnDevice()
				require.LessOrEqual(t, len(onDevice), 1, "step %d: %v selected", n, onDevice)
				for i := range r.engine.Arena().Buses {
					assert.Equal(t, slices.Contains(onDevice, i), r.host.Bus(i).Assigned(), "step %d bus %d", n, i)
				}
			}
			assert.Equal(t, tt.want, r.selectedOnDevice())
		})
	}
}

func TestStripVolume_WritesGainLayerWhileBusSelected(t *testing.T) {
	r := newRig(t, Options{})
	r.host.Bus(1).Press(surface.AssignPressed)
	r.dev.ResetWrites()

	r.host.Strip(0).Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 1})
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 0, Param: "gainlayer[1]", Value: 12.0},
	}, r.dev.Writes())
}

func TestBusVolume_WritesGain(t *testing.T) {
	r := newRig(t, Options{})
	r.host.Bus(0).Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 0})
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 0, Param: "gain", Value: -60.0},
	}, r.dev.Writes())
	assert.True(t, r.engine.Arena().Bus(0).Pending())
}

func TestDefaultStripControls(t *testing.T) {
	r := newRig(t, Options{})

	assert.True(t, r.host.Strip(0).Assigned())

	r.host.Strip(0).Press(surface.AssignPressed)
	r.host.Strip(0).Press(surface.MutePressed)
	r.host.Strip(0).Press(surface.RunPressed)

	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 0, Param: "mute", Value: true},
		{Target: memory.TargetStrip, Index: 0, Param: "solo", Value: true},
	}, r.dev.Writes())
	assert.True(t, r.host.Strip(0).Assigned())
	assert.True(t, r.host.Strip(0).Muted())
	assert.True(t, r.host.Strip(0).Running())
}

func TestBusControls(t *testing.T) {
	r := newRig(t, Options{})

	r.host.Bus(1).Press(surface.MutePressed)
	r.host.Bus(1).Press(surface.RunPressed)

	assert.Equal(t, []memory.Write{
		{Target: memory.TargetBus, Index: 1, Param: "mute", Value: true},
	}, r.dev.Writes())
	assert.True(t, r.host.Bus(1).Running())
}

func TestCustomStripMute_GroupPolarity(t *testing.T) {
	r := newRig(t, Options{Settings: settings.Settings{CustomStripMute: "A1,!B1"}})

	r.host.Strip(2).Press(surface.MutePressed)
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 2, Param: "a1", Value: true},
		{Target: memory.TargetStrip, Index: 2, Param: "b1", Value: false},
	}, r.dev.Writes())
	assert.True(t, r.host.Strip(2).Muted())

	r.reconcile()
	assert.True(t, r.host.Strip(2).Muted())

	r.dev.SetStrip(2, "B1", true)
	r.reconcile()
	assert.False(t, r.host.Strip(2).Muted())

	// The plain mute parameter no longer drives the display.
	r.dev.SetStrip(2, mixer.ParamMute, true)
	r.reconcile()
	assert.False(t, r.host.Strip(2).Muted())
}

func TestCustomStripAssignAndRun(t *testing.T) {
	r := newRig(t, Options{Settings: settings.Settings{
		CustomStripAssign: "A2",
		CustomStripRun:    "!A1",
	}})

	// Nothing set: A2 is off so assign is dark, A1 is off so run is lit.
	assert.False(t, r.host.Strip(0).Assigned())
	assert.True(t, r.host.Strip(0).Running())

	r.host.Strip(0).Press(surface.AssignPressed)
	r.host.Strip(0).Press(surface.RunPressed)
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 0, Param: "a2", Value: true},
		{Target: memory.TargetStrip, Index: 0, Param: "a1", Value: true},
	}, r.dev.Writes())

	r.reconcile()
	assert.True(t, r.host.Strip(0).Assigned())
	assert.False(t, r.host.Strip(0).Running())
}

func TestBusToggleButtons(t *testing.T) {
	r := newRig(t, Options{Settings: settings.Settings{BusToggles: "Strip0:A1,!B1;Strip9:A1"}})

	names := make([]string, 0, len(r.engine.Arena().Buttons))
	for _, b := range r.engine.Arena().Buttons {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"Strip0:A1,!B1", "Restart"}, names)

	b := r.host.Button("Strip0:A1,!B1")
	require.NotNil(t, b)
	assert.False(t, b.Active())

	b.Press()
	assert.Equal(t, []memory.Write{
		{Target: memory.TargetStrip, Index: 0, Param: "a1", Value: true},
		{Target: memory.TargetStrip, Index: 0, Param: "b1", Value: false},
	}, r.dev.Writes())
	assert.True(t, b.Active())

	r.dev.SetStrip(0, "a1", false)
	r.reconcile()
	assert.False(t, b.Active())
}

func TestBusToggleButtons_SkipsGroupsWithoutParameters(t *testing.T) {
	r := newRig(t, Options{Settings: settings.Settings{BusToggles: "Strip1:;Strip2: , ;Strip0:A2"}})

	names := make([]string, 0, len(r.engine.Arena().Buttons))
	for _, b := range r.engine.Arena().Buttons {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"Strip0:A2", "Restart"}, names)
	assert.Nil(t, r.host.Button("Strip1:"))
}

func TestRestartButton(t *testing.T) {
	var notes []string
	var commands []string
	r := newRig(t, Options{
		Notify:    func(msg string) { notes = append(notes, msg) },
		OnCommand: func(text string, err error) { commands = append(commands, text) },
	})

	b := r.host.Button("Restart")
	require.NotNil(t, b)
	assert.True(t, b.Active())

	b.Press()
	assert.Equal(t, []string{RestartCommand}, r.dev.Commands())
	assert.Equal(t, []string{RestartCommand}, commands)
	assert.Equal(t, []string{"Audio engine restarted"}, notes)
	assert.True(t, b.Active())

	r.dev.FailWrites(errors.New("boom"))
	b.Press()
	require.Len(t, notes, 2)
	assert.Contains(t, notes[1], "Restart failed")
}

func TestExtraButtons(t *testing.T) {
	var pressed []bool
	r := newRig(t, Options{Buttons: func(w Writer) []ButtonSpec {
		return []ButtonSpec{{
			Name: "Talkback",
			Lit:  func(snap *mixer.Snapshot) bool { return snap.Buses[0].Mute() },
			Press: func(state bool) error {
				pressed = append(pressed, state)
				return w.SetBus(mixer.ParamMute, 0, state)
			},
		}}
	}})

	b := r.host.Button("Talkback")
	require.NotNil(t, b)
	b.Press()
	assert.Equal(t, []bool{true}, pressed)
	assert.True(t, b.Active())

	r.reconcile()
	assert.True(t, b.Active())
	assert.True(t, r.host.Bus(0).Muted())
}

func TestWriteErrors_Reported(t *testing.T) {
	var errs []error
	r := newRig(t, Options{OnError: func(err error) { errs = append(errs, err) }})

	boom := errors.New("boom")
	r.dev.FailWrites(boom)
	r.host.Strip(0).Press(surface.MutePressed)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestGroupWrites_JoinErrors(t *testing.T) {
	r := newRig(t, Options{})
	r.dev.FailWrites(errors.New("boom"))

	groups := toggle.Parse("Strip1:A1,B1")
	require.Len(t, groups, 1)
	err := r.engine.Dispatcher().Group(groups[0], 0, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strip 1 a1")
	assert.Contains(t, err.Error(), "strip 1 b1")
}

func TestLimiters(t *testing.T) {
	r := newRig(t, Options{Settings: settings.Settings{Limiter: true}})
	require.Len(t, r.engine.Arena().Limiters, 3)

	r.dev.SetStrip(0, mixer.ParamLimit, -14.0)
	r.reconcile()
	assert.InDelta(t, 0.5, r.host.Limiter(0).Volume(), 1e-9)

	r.host.Limiter(0).Emit(surface.Event{Kind: surface.VolumeChanged, Volume: 1})
	assert.Empty(t, r.dev.Writes())

	r.reconcile()
	assert.InDelta(t, 1.0, r.host.Limiter(0).Volume(), 1e-9)
	r.reconcile()
	assert.InDelta(t, 0.5, r.host.Limiter(0).Volume(), 1e-9)
}

func TestUpdateMeters(t *testing.T) {
	r := newRig(t, Options{})

	r.dev.SetLevel(mixer.LevelPostFaderInput, 0, mixer.Level{L: 30, R: 30})
	r.dev.SetLevel(mixer.LevelPostFaderInput, 1, mixer.Level{})
	r.dev.SetLevel(mixer.LevelOutput, 1, mixer.Level{L: 120, R: 100})

	r.host.Strip(1).SetMeter(0.7)
	r.engine.UpdateMeters()

	assert.InDelta(t, 0.5, r.host.Strip(0).Meter(), 1e-9)
	assert.InDelta(t, 0.7, r.host.Strip(1).Meter(), 1e-9)
	assert.InDelta(t, 0.0, r.host.Bus(0).Meter(), 1e-9)
	assert.InDelta(t, 1.0, r.host.Bus(1).Meter(), 1e-9)
}

func TestClose_DropsSubscriptions(t *testing.T) {
	r := newRig(t, Options{})
	r.engine.Close()

	r.host.Strip(0).Press(surface.MutePressed)
	assert.Empty(t, r.dev.Writes())
}
