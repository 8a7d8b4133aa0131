package engine

import (
	"slices"

	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/surface"
)

// NoBus means no bus is selected.
const NoBus = -1

// Control is the engine-side wrapper of one strip, bus or limiter widget.
type Control struct {
	*surface.Assignment

	// pending suppresses exactly one volume overwrite by reconciliation
	// after a local edit.
	pending bool

	// Optional display overrides. When nil the built-in single-parameter
	// behavior applies.
	assignUpdate func(mixer.Params)
	muteUpdate   func(mixer.Params)
	runUpdate    func(mixer.Params)

	subs []surface.Subscription
}

func newControl(a *surface.Assignment) *Control {
	return &Control{Assignment: a}
}

// MarkPending records a local edit.
func (c *Control) MarkPending() {
	c.pending = true
}

// Pending reports whether a local edit is waiting to be observed.
func (c *Control) Pending() bool {
	return c.pending
}

// takePending returns the pending flag and clears it.
func (c *Control) takePending() bool {
	p := c.pending
	c.pending = false
	return p
}

func (c *Control) on(kind surface.EventKind, h surface.Handler) {
	c.subs = append(c.subs, c.Subscribe(kind, h))
}

func (c *Control) release() {
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil
}

// ButtonControl is a free-standing button with an optional light.
type ButtonControl struct {
	*surface.Button
	spec ButtonSpec
	sub  surface.Subscription
}

// refresh recomputes the light from a snapshot.
func (b *ButtonControl) refresh(snap *mixer.Snapshot) {
	if b.spec.Lit != nil {
		b.SetActive(b.spec.Lit(snap))
	}
}

// Selection tracks the at-most-one selected bus.
type Selection struct {
	selected int
	// buses the mixer itself last reported selected, possibly several
	reported []int
}

func NewSelection() Selection {
	return Selection{selected: NoBus}
}

// Selected returns the selected bus index or NoBus.
func (s *Selection) Selected() int {
	return s.selected
}

// IsSet reports whether a bus is selected.
func (s *Selection) IsSet() bool {
	return s.selected != NoBus
}

// Reported returns the buses the last snapshot reported as selected.
func (s *Selection) Reported() []int {
	return append([]int(nil), s.reported...)
}

func (s *Selection) set(i int) {
	s.selected = i
	s.reported = []int{i}
}

func (s *Selection) clear() {
	s.selected = NoBus
	s.reported = nil
}

// observe records a snapshot's selected buses. Only a single one counts as
// the selection.
func (s *Selection) observe(buses []int) {
	s.reported = append(s.reported[:0], buses...)
	if len(buses) == 1 {
		s.selected = buses[0]
	} else {
		s.selected = NoBus
	}
}

// others returns every bus other than keep that is selected, as far as
// is known locally.
func (s *Selection) others(keep int) []int {
	var out []int
	add := func(i int) {
		if i == NoBus || i == keep || slices.Contains(out, i) {
			return
		}
		out = append(out, i)
	}
	add(s.selected)
	for _, i := range s.reported {
		add(i)
	}
	return out
}

// Arena owns every control of a session, keyed by stable index.
type Arena struct {
	Strips   []*Control
	Buses    []*Control
	Limiters []*Control
	Buttons  []*ButtonControl

	Selection Selection
}

// NewArena wraps the host's current widgets.
func NewArena(host *surface.Host) *Arena {
	a := &Arena{Selection: NewSelection()}
	for _, w := range host.Strips() {
		a.Strips = append(a.Strips, newControl(w))
	}
	for _, w := range host.Buses() {
		a.Buses = append(a.Buses, newControl(w))
	}
	return a
}

// Strip returns the strip control or nil.
func (a *Arena) Strip(i int) *Control {
	if i < 0 || i >= len(a.Strips) {
		return nil
	}
	return a.Strips[i]
}

// Bus returns the bus control or nil.
func (a *Arena) Bus(i int) *Control {
	if i < 0 || i >= len(a.Buses) {
		return nil
	}
	return a.Buses[i]
}

// Release drops every subscription held by the arena's controls.
func (a *Arena) Release() {
	for _, c := range a.Strips {
		c.release()
	}
	for _, c := range a.Buses {
		c.release()
	}
	for _, c := range a.Limiters {
		c.release()
	}
	for _, b := range a.Buttons {
		b.sub.Unsubscribe()
	}
}
