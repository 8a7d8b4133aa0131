package engine

import "github.com/dokzlo13/mixd/internal/mixer"

// meterRange is the level reading that fills the meter.
const meterRange = 60.0

// UpdateMeters reads one level per strip and bus and shows it on the meters.
// Must run on the event loop.
func (e *Engine) UpdateMeters() {
	for i, c := range e.arena.Strips {
		lvl, ok := e.dev.GetLevel(mixer.LevelPostFaderInput, i)
		if !ok || (lvl.L == 0 && lvl.R == 0) {
			continue
		}
		c.SetMeter(meterLevel(lvl))
	}
	for i, c := range e.arena.Buses {
		lvl, ok := e.dev.GetLevel(mixer.LevelOutput, i)
		if !ok {
			continue
		}
		c.SetMeter(meterLevel(lvl))
	}
}

func meterLevel(l mixer.Level) float64 {
	v := (l.L + l.R) / 2 / meterRange
	return min(max(v, 0), 1)
}
