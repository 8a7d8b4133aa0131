// Package surface models the control surface: per-strip and per-bus
// Assignment widgets plus free-standing Buttons.
//
// Widgets are plain state holders owned by the engine's event loop. Setters
// are the only way display state changes, and every effective change is
// forwarded to the Renderer, which a hardware backend turns into output.
// Backends deliver user input by posting Emit calls to the loop through
// Host.Post.
package surface

// EventKind is the closed set of user events a widget raises.
type EventKind int

const (
	VolumeChanged EventKind = iota
	MutePressed
	AssignPressed
	RunPressed
	Pressed
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case VolumeChanged:
		return "volume_changed"
	case MutePressed:
		return "mute_pressed"
	case AssignPressed:
		return "assign_pressed"
	case RunPressed:
		return "run_pressed"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers.
//
// For VolumeChanged, Volume holds the new fader position in [0,1]. For the
// press kinds, State holds the toggled state the user asked for, i.e. the
// opposite of what the widget currently displays.
type Event struct {
	Kind   EventKind
	Volume float64
	State  bool
}

// Handler receives widget events on the event loop.
type Handler func(Event)

// Subscription cancels a handler registration.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Field names a display property of an Assignment.
type Field int

const (
	FieldName Field = iota
	FieldVolume
	FieldMuted
	FieldAssigned
	FieldRunning
	FieldMeter
)

// Renderer is notified of every display mutation.
type Renderer interface {
	RenderAssignment(a *Assignment, f Field)
	RenderButton(b *Button)
}

type handlerEntry struct {
	id int
	h  Handler
}

// subscribers is the per-widget handler registry.
type subscribers struct {
	next     int
	handlers map[EventKind][]handlerEntry
}

func (s *subscribers) add(kind EventKind, h Handler) Subscription {
	if s.handlers == nil {
		s.handlers = make(map[EventKind][]handlerEntry)
	}
	s.next++
	id := s.next
	s.handlers[kind] = append(s.handlers[kind], handlerEntry{id: id, h: h})

	return Subscription{cancel: func() {
		list := s.handlers[kind]
		for i, e := range list {
			if e.id == id {
				s.handlers[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}}
}

func (s *subscribers) emit(ev Event) {
	list := s.handlers[ev.Kind]
	// Handlers may unsubscribe while running.
	snapshot := make([]handlerEntry, len(list))
	copy(snapshot, list)
	for _, e := range snapshot {
		e.h(ev)
	}
}

func (s *subscribers) clear() {
	s.handlers = nil
}

type nopRenderer struct{}

func (nopRenderer) RenderAssignment(*Assignment, Field) {}
func (nopRenderer) RenderButton(*Button)                {}
