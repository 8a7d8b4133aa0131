package surface

// Kind tells strips from buses.
type Kind int

const (
	KindStrip Kind = iota
	KindBus
	KindLimiter
)

func (k Kind) String() string {
	switch k {
	case KindBus:
		return "bus"
	case KindLimiter:
		return "limiter"
	default:
		return "strip"
	}
}

// Assignment is the widget for one strip or bus: a fader, mute, assign and
// run buttons, and a level meter. Limiter assignments only use the fader.
type Assignment struct {
	kind     Kind
	index    int
	renderer Renderer
	subs     subscribers

	name     string
	volume   float64
	muted    bool
	assigned bool
	running  bool
	meter    float64
}

func (a *Assignment) Kind() Kind      { return a.kind }
func (a *Assignment) Index() int      { return a.index }
func (a *Assignment) Name() string    { return a.name }
func (a *Assignment) Volume() float64 { return a.volume }
func (a *Assignment) Muted() bool     { return a.muted }
func (a *Assignment) Assigned() bool  { return a.assigned }
func (a *Assignment) Running() bool   { return a.running }
func (a *Assignment) Meter() float64  { return a.meter }

func (a *Assignment) SetName(v string) {
	if a.name == v {
		return
	}
	a.name = v
	a.renderer.RenderAssignment(a, FieldName)
}

// SetVolume sets the fader position, clamped to [0,1].
func (a *Assignment) SetVolume(v float64) {
	v = clamp01(v)
	if a.volume == v {
		return
	}
	a.volume = v
	a.renderer.RenderAssignment(a, FieldVolume)
}

func (a *Assignment) SetMuted(v bool) {
	if a.muted == v {
		return
	}
	a.muted = v
	a.renderer.RenderAssignment(a, FieldMuted)
}

func (a *Assignment) SetAssigned(v bool) {
	if a.assigned == v {
		return
	}
	a.assigned = v
	a.renderer.RenderAssignment(a, FieldAssigned)
}

func (a *Assignment) SetRunning(v bool) {
	if a.running == v {
		return
	}
	a.running = v
	a.renderer.RenderAssignment(a, FieldRunning)
}

// SetMeter sets the level meter, clamped to [0,1].
func (a *Assignment) SetMeter(v float64) {
	v = clamp01(v)
	if a.meter == v {
		return
	}
	a.meter = v
	a.renderer.RenderAssignment(a, FieldMeter)
}

// Subscribe registers a handler for one event kind.
func (a *Assignment) Subscribe(kind EventKind, h Handler) Subscription {
	return a.subs.add(kind, h)
}

// Emit delivers a user event. Must run on the event loop.
//
// A volume change already reflects the physical fader, so the stored volume
// follows it without a render.
func (a *Assignment) Emit(ev Event) {
	if ev.Kind == VolumeChanged {
		ev.Volume = clamp01(ev.Volume)
		a.volume = ev.Volume
	}
	a.subs.emit(ev)
}

// Press emits the press event for kind with the toggled state.
func (a *Assignment) Press(kind EventKind) {
	var current bool
	switch kind {
	case MutePressed:
		current = a.muted
	case AssignPressed:
		current = a.assigned
	case RunPressed:
		current = a.running
	default:
		return
	}
	a.Emit(Event{Kind: kind, State: !current})
}

// Button is a free-standing toggle or momentary button.
type Button struct {
	name     string
	renderer Renderer
	subs     subscribers
	active   bool
}

func (b *Button) Name() string { return b.name }
func (b *Button) Active() bool { return b.active }

func (b *Button) SetActive(v bool) {
	if b.active == v {
		return
	}
	b.active = v
	b.renderer.RenderButton(b)
}

// Subscribe registers a handler for Pressed events.
func (b *Button) Subscribe(h Handler) Subscription {
	return b.subs.add(Pressed, h)
}

// Press emits a Pressed event with the toggled state. Must run on the event
// loop.
func (b *Button) Press() {
	b.subs.emit(Event{Kind: Pressed, State: !b.active})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
