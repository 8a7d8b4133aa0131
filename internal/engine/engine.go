// Package engine keeps the control surface and the mixer in sync.
//
// All engine state lives on the event loop: surface callbacks, poll ticks,
// meter ticks and script callbacks are posted to a Loop and run one at a time.
package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/surface"
	"github.com/dokzlo13/mixd/internal/toggle"
)

// RestartCommand is the raw command sent by the Restart button.
const RestartCommand = "Command.Restart=1"

// ButtonSpec describes a free-standing button.
type ButtonSpec struct {
	Name string
	// Lit computes the light from a snapshot. Nil means a momentary button
	// that always stays lit.
	Lit func(*mixer.Snapshot) bool
	// Press handles a press with the requested state.
	Press func(state bool) error
}

// ButtonSource builds extra buttons for a session.
type ButtonSource func(w Writer) []ButtonSpec

// Options configures an engine build.
type Options struct {
	Settings settings.Settings
	Buttons  ButtonSource

	// OnError is called for every failed mixer write.
	OnError func(error)
	// Notify shows a one-off message to the user.
	Notify func(string)
	// OnCommand is called after every raw command.
	OnCommand func(text string, err error)
}

// Engine is the per-session set of controls bound to a mixer.
type Engine struct {
	dev        mixer.Device
	arena      *Arena
	dispatcher *Dispatcher
	reconciler *Reconciler
	opts       Options
}

// New resets the host to the given counts and binds fresh controls to dev.
// Must run on the event loop.
func New(host *surface.Host, dev mixer.Device, strips, buses int, opts Options) *Engine {
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if opts.OnCommand == nil {
		opts.OnCommand = func(string, error) {}
	}

	host.Reset(strips, buses)
	arena := NewArena(host)
	if opts.Settings.Limiter {
		host.EnableLimiters()
		for _, w := range host.Limiters() {
			arena.Limiters = append(arena.Limiters, newControl(w))
		}
	}

	e := &Engine{
		dev:        dev,
		arena:      arena,
		dispatcher: NewDispatcher(dev, arena, opts.Settings, opts.OnError),
		reconciler: NewReconciler(arena, opts.Settings),
		opts:       opts,
	}

	st := opts.Settings
	assign := toggle.ParseFlat(st.CustomStripAssign)
	mute := toggle.ParseFlat(st.CustomStripMute)
	run := toggle.ParseFlat(st.CustomStripRun)
	for i, c := range arena.Strips {
		e.bindStrip(c, i, assign.OnStrip(i), mute.OnStrip(i), run.OnStrip(i))
	}
	for i, c := range arena.Buses {
		e.bindBus(c, i)
	}
	for _, c := range arena.Limiters {
		c.on(surface.VolumeChanged, func(surface.Event) { c.MarkPending() })
	}

	specs := e.busToggleButtons(strips)
	specs = append(specs, e.restartButton())
	if opts.Buttons != nil {
		specs = append(specs, opts.Buttons(e.dispatcher)...)
	}
	for _, spec := range specs {
		e.addButton(host, spec)
	}

	log.Info().
		Int("strips", strips).
		Int("buses", buses).
		Int("limiters", len(arena.Limiters)).
		Int("buttons", len(arena.Buttons)).
		Msg("Controls built")
	return e
}

func (e *Engine) bindStrip(c *Control, i int, assign, mute, run toggle.Group) {
	d := e.dispatcher

	c.on(surface.VolumeChanged, func(ev surface.Event) {
		_ = d.Volume(c, ev.Volume)
	})

	if assign.Empty() {
		c.SetAssigned(true)
	} else {
		c.assignUpdate = func(p mixer.Params) { c.SetAssigned(assign.Evaluate(p)) }
		c.on(surface.AssignPressed, func(ev surface.Event) {
			c.SetAssigned(ev.State)
			_ = d.Group(assign, i, ev.State)
		})
	}

	if mute.Empty() {
		c.on(surface.MutePressed, func(ev surface.Event) {
			c.SetMuted(ev.State)
			_ = d.SetStrip(mixer.ParamMute, i, ev.State)
		})
	} else {
		c.muteUpdate = func(p mixer.Params) { c.SetMuted(mute.Evaluate(p)) }
		c.on(surface.MutePressed, func(ev surface.Event) {
			c.SetMuted(ev.State)
			_ = d.Group(mute, i, ev.State)
		})
	}

	if run.Empty() {
		c.on(surface.RunPressed, func(ev surface.Event) {
			c.SetRunning(ev.State)
			_ = d.SetStrip(mixer.ParamSolo, i, ev.State)
		})
	} else {
		c.runUpdate = func(p mixer.Params) { c.SetRunning(run.Evaluate(p)) }
		c.on(surface.RunPressed, func(ev surface.Event) {
			c.SetRunning(ev.State)
			_ = d.Group(run, i, ev.State)
		})
	}
}

func (e *Engine) bindBus(c *Control, i int) {
	d := e.dispatcher

	c.on(surface.VolumeChanged, func(ev surface.Event) {
		_ = d.Volume(c, ev.Volume)
	})
	c.on(surface.MutePressed, func(ev surface.Event) {
		c.SetMuted(ev.State)
		_ = d.SetBus(mixer.ParamMute, i, ev.State)
	})
	c.on(surface.AssignPressed, func(ev surface.Event) {
		_ = d.SelectBus(i, ev.State)
	})
	// Run has no mixer counterpart on buses.
	c.on(surface.RunPressed, func(ev surface.Event) {
		c.SetRunning(ev.State)
	})
}

func (e *Engine) busToggleButtons(strips int) []ButtonSpec {
	groups := toggle.Validate(toggle.Parse(e.opts.Settings.BusToggles), strips)
	specs := make([]ButtonSpec, 0, len(groups))
	for _, g := range groups {
		if g.Empty() {
			log.Debug().Int("strip", g.Strip).Msg("Skipping bus toggle without parameters")
			continue
		}
		specs = append(specs, ButtonSpec{
			Name: fmt.Sprintf("Strip%d:%s", g.Strip, toggle.FormatEntries(g.Entries)),
			Lit: func(snap *mixer.Snapshot) bool {
				if g.Strip >= len(snap.Strips) {
					return false
				}
				return g.Evaluate(snap.Strips[g.Strip])
			},
			Press: func(state bool) error {
				return e.dispatcher.Group(g, g.Strip, state)
			},
		})
	}
	return specs
}

func (e *Engine) restartButton() ButtonSpec {
	return ButtonSpec{
		Name: "Restart",
		Press: func(bool) error {
			err := e.dispatcher.Command(RestartCommand)
			e.opts.OnCommand(RestartCommand, err)
			if err != nil {
				e.opts.Notify(fmt.Sprintf("Restart failed: %v", err))
				return err
			}
			e.opts.Notify("Audio engine restarted")
			return nil
		},
	}
}

func (e *Engine) addButton(host *surface.Host, spec ButtonSpec) {
	b := &ButtonControl{Button: host.AddButton(spec.Name), spec: spec}
	if spec.Lit == nil {
		b.SetActive(true)
	}
	b.sub = b.Subscribe(func(ev surface.Event) {
		if spec.Press != nil {
			if err := spec.Press(ev.State); err != nil {
				log.Warn().Err(err).Str("button", spec.Name).Msg("Button press failed")
				return
			}
		}
		if spec.Lit != nil {
			b.SetActive(ev.State)
		}
	})
	e.arena.Buttons = append(e.arena.Buttons, b)
}

// Reconcile folds a snapshot into the controls. Must run on the event loop.
func (e *Engine) Reconcile(snap *mixer.Snapshot) {
	e.reconciler.Reconcile(snap)
}

// Arena exposes the session's controls.
func (e *Engine) Arena() *Arena { return e.arena }

// Dispatcher exposes the session's write side.
func (e *Engine) Dispatcher() *Dispatcher { return e.dispatcher }

// Close drops every surface subscription held by the engine.
func (e *Engine) Close() {
	e.arena.Release()
}
