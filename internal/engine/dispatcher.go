package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/surface"
	"github.com/dokzlo13/mixd/internal/toggle"
)

// Writer is the write side of the dispatcher.
type Writer interface {
	SetStrip(param string, index int, value any) error
	SetBus(param string, index int, value any) error
	Command(text string) error
}

// Dispatcher turns surface changes into mixer writes.
type Dispatcher struct {
	dev      mixer.Device
	arena    *Arena
	settings settings.Settings
	onError  func(error)
}

var _ Writer = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. onError is called for every failed
// write and may be nil.
func NewDispatcher(dev mixer.Device, arena *Arena, st settings.Settings, onError func(error)) *Dispatcher {
	if onError == nil {
		onError = func(error) {}
	}
	return &Dispatcher{dev: dev, arena: arena, settings: st, onError: onError}
}

func (d *Dispatcher) fail(err error) error {
	d.onError(err)
	return err
}

// SetStrip writes one strip parameter.
func (d *Dispatcher) SetStrip(param string, index int, value any) error {
	if err := d.dev.SetStripParameter(param, index, value); err != nil {
		log.Error().Err(err).Int("strip", index).Str("param", param).Msg("Strip write failed")
		return d.fail(fmt.Errorf("strip %d %s: %w", index, param, err))
	}
	log.Debug().Int("strip", index).Str("param", param).Interface("value", value).Msg("Strip write")
	return nil
}

// SetBus writes one bus parameter.
func (d *Dispatcher) SetBus(param string, index int, value any) error {
	if err := d.dev.SetBusParameter(param, index, value); err != nil {
		log.Error().Err(err).Int("bus", index).Str("param", param).Msg("Bus write failed")
		return d.fail(fmt.Errorf("bus %d %s: %w", index, param, err))
	}
	log.Debug().Int("bus", index).Str("param", param).Interface("value", value).Msg("Bus write")
	return nil
}

// Command sends a raw command script.
func (d *Dispatcher) Command(text string) error {
	if err := d.dev.SendRawCommand(text); err != nil {
		log.Error().Err(err).Str("command", text).Msg("Raw command failed")
		return d.fail(fmt.Errorf("command %q: %w", text, err))
	}
	log.Info().Str("command", text).Msg("Raw command sent")
	return nil
}

// Group writes every entry of a toggle group so that it reads back as state.
// Entries are written in order; a failed write does not stop later ones.
// Flat groups are written to strip.
func (d *Dispatcher) Group(g toggle.Group, strip int, state bool) error {
	if g.Strip != toggle.NoStrip {
		strip = g.Strip
	}
	var errs []error
	for _, w := range g.Writes(state) {
		if err := d.SetStrip(w.Param, strip, w.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelectBus applies a press of a bus's assign control. The previously
// selected bus, if different, is cleared on the mixer before the new one is
// set, so the mixer never sees two selected buses.
func (d *Dispatcher) SelectBus(index int, on bool) error {
	c := d.arena.Bus(index)
	if c == nil {
		return fmt.Errorf("bus %d out of range", index)
	}

	sel := &d.arena.Selection
	var errs []error

	// Clear every other selected bus first, including ones the mixer selected
	// on its own.
	for _, prev := range sel.others(index) {
		if err := d.SetBus(mixer.ParamSelect, prev, false); err != nil {
			errs = append(errs, err)
		}
		if old := d.arena.Bus(prev); old != nil {
			old.SetAssigned(false)
		}
	}

	if err := d.SetBus(mixer.ParamSelect, index, on); err != nil {
		errs = append(errs, err)
	}

	if on {
		sel.set(index)
	} else {
		sel.clear()
	}
	c.SetAssigned(on)

	return errors.Join(errs...)
}

// Volume writes a fader move. Strip gain goes to the gain layer of the
// selected bus when one is selected.
func (d *Dispatcher) Volume(c *Control, level float64) error {
	c.MarkPending()
	gain := d.settings.ToGain(level)

	switch c.Kind() {
	case surface.KindBus:
		return d.SetBus(mixer.ParamGain, c.Index(), gain)
	case surface.KindStrip:
		param := mixer.ParamGain
		if sel := d.arena.Selection.Selected(); sel != NoBus {
			param = mixer.GainLayer(sel)
		}
		return d.SetStrip(param, c.Index(), gain)
	default:
		// Limiters are display only.
		return nil
	}
}
