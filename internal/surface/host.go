package surface

// Host creates and owns the widgets for one session.
type Host struct {
	post     func(func())
	renderer Renderer

	strips   []*Assignment
	buses    []*Assignment
	limiters []*Assignment
	buttons  []*Button
}

// NewHost creates a host. post schedules a function on the event loop; a nil
// renderer discards display changes.
func NewHost(post func(func()), r Renderer) *Host {
	if r == nil {
		r = nopRenderer{}
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Host{post: post, renderer: r}
}

// Post schedules fn on the event loop. Backends call it from their own
// goroutines.
func (h *Host) Post(fn func()) {
	h.post(fn)
}

// SetRenderer replaces the renderer. Must run on the event loop.
func (h *Host) SetRenderer(r Renderer) {
	if r == nil {
		r = nopRenderer{}
	}
	h.renderer = r
	for _, a := range h.strips {
		a.renderer = r
	}
	for _, a := range h.buses {
		a.renderer = r
	}
	for _, a := range h.limiters {
		a.renderer = r
	}
	for _, b := range h.buttons {
		b.renderer = r
	}
}

// Reset discards all widgets and their subscriptions and creates fresh
// assignments for the given counts. Limiters and buttons are removed too.
func (h *Host) Reset(strips, buses int) {
	for _, a := range h.strips {
		a.subs.clear()
	}
	for _, a := range h.buses {
		a.subs.clear()
	}
	for _, a := range h.limiters {
		a.subs.clear()
	}
	for _, b := range h.buttons {
		b.subs.clear()
	}

	h.strips = make([]*Assignment, strips)
	for i := range h.strips {
		h.strips[i] = &Assignment{kind: KindStrip, index: i, renderer: h.renderer}
	}
	h.buses = make([]*Assignment, buses)
	for i := range h.buses {
		h.buses[i] = &Assignment{kind: KindBus, index: i, renderer: h.renderer}
	}
	h.limiters = nil
	h.buttons = nil
}

// EnableLimiters creates one limiter assignment per strip.
func (h *Host) EnableLimiters() {
	h.limiters = make([]*Assignment, len(h.strips))
	for i := range h.limiters {
		h.limiters[i] = &Assignment{kind: KindLimiter, index: i, renderer: h.renderer}
	}
}

// Limiter returns the limiter assignment, or nil when absent.
func (h *Host) Limiter(i int) *Assignment {
	if i < 0 || i >= len(h.limiters) {
		return nil
	}
	return h.limiters[i]
}

func (h *Host) Limiters() []*Assignment { return h.limiters }

// Strip returns the strip assignment, or nil when out of range.
func (h *Host) Strip(i int) *Assignment {
	if i < 0 || i >= len(h.strips) {
		return nil
	}
	return h.strips[i]
}

// Bus returns the bus assignment, or nil when out of range.
func (h *Host) Bus(i int) *Assignment {
	if i < 0 || i >= len(h.buses) {
		return nil
	}
	return h.buses[i]
}

func (h *Host) Strips() []*Assignment { return h.strips }
func (h *Host) Buses() []*Assignment  { return h.buses }
func (h *Host) Buttons() []*Button    { return h.buttons }

// AddButton creates a free-standing button. Names are not required to be
// unique; Button returns the first match.
func (h *Host) AddButton(name string) *Button {
	b := &Button{name: name, renderer: h.renderer}
	h.buttons = append(h.buttons, b)
	return b
}

// Button returns the first button with the given name, or nil.
func (h *Host) Button(name string) *Button {
	for _, b := range h.buttons {
		if b.name == name {
			return b
		}
	}
	return nil
}
