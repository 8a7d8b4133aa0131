package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/settings"
)

// Limiter threshold range mapped onto the limiter fader.
const (
	LimiterMinDB = -40.0
	LimiterMaxDB = 12.0
)

// Reconciler folds polled snapshots into the arena.
type Reconciler struct {
	arena    *Arena
	settings settings.Settings
}

func NewReconciler(arena *Arena, st settings.Settings) *Reconciler {
	return &Reconciler{arena: arena, settings: st}
}

// Reconcile updates every control from snap. Must run on the event loop.
func (r *Reconciler) Reconcile(snap *mixer.Snapshot) {
	r.buses(snap)
	r.strips(snap)
	r.limiters(snap)
	for _, b := range r.arena.Buttons {
		b.refresh(snap)
	}
}

func (r *Reconciler) buses(snap *mixer.Snapshot) {
	a := r.arena
	var selected []int

	for i, p := range snap.Buses {
		c := a.Bus(i)
		if c == nil {
			log.Error().Int("bus", i).Int("buses", len(a.Buses)).Msg("Snapshot bus outside arena")
			continue
		}
		c.SetName(p.Name)
		c.SetMuted(p.Mute())
		if !c.takePending() {
			c.SetVolume(r.settings.ToVolume(p.Gain()))
		}
		if p.Selected() {
			selected = append(selected, i)
		}
	}

	a.Selection.observe(selected)
	if len(selected) > 1 {
		log.Debug().Ints("buses", selected).Msg("Mixer reports several selected buses")
	}
	for i, c := range a.Buses {
		c.SetAssigned(i == a.Selection.Selected())
	}
}

func (r *Reconciler) strips(snap *mixer.Snapshot) {
	a := r.arena
	sel := a.Selection.Selected()

	for i, p := range snap.Strips {
		c := a.Strip(i)
		if c == nil {
			log.Error().Int("strip", i).Int("strips", len(a.Strips)).Msg("Snapshot strip outside arena")
			continue
		}
		c.SetName(p.Name)

		if c.assignUpdate != nil {
			c.assignUpdate(p)
		}
		if c.muteUpdate != nil {
			c.muteUpdate(p)
		} else {
			c.SetMuted(p.Mute())
		}
		if c.runUpdate != nil {
			c.runUpdate(p)
		} else {
			c.SetRunning(p.Solo())
		}

		if c.takePending() {
			continue
		}
		if sel == NoBus {
			c.SetVolume(r.settings.ToVolume(p.Gain()))
		} else if gain, ok := p.Float(mixer.GainLayer(sel)); ok {
			c.SetVolume(r.settings.ToVolume(gain))
		}
	}
}

func (r *Reconciler) limiters(snap *mixer.Snapshot) {
	for i, c := range r.arena.Limiters {
		if i >= len(snap.Strips) {
			break
		}
		if c.takePending() {
			continue
		}
		if limit, ok := snap.Strips[i].Float(mixer.ParamLimit); ok {
			c.SetVolume((limit - LimiterMinDB) / (LimiterMaxDB - LimiterMinDB))
		}
	}
}
