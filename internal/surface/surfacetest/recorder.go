// Package surfacetest provides a recording Renderer for tests.
package surfacetest

import (
	"fmt"
	"sync"

	"github.com/dokzlo13/mixd/internal/surface"
)

// Recorder records every render call as a compact string such as
// "strip0.muted=true" or "button:Restart=false".
type Recorder struct {
	mu     sync.Mutex
	events []string
}

var _ surface.Renderer = (*Recorder)(nil)

func (r *Recorder) RenderAssignment(a *surface.Assignment, f surface.Field) {
	var s string
	prefix := fmt.Sprintf("%s%d", a.Kind(), a.Index())
	switch f {
	case surface.FieldName:
		s = fmt.Sprintf("%s.name=%s", prefix, a.Name())
	case surface.FieldVolume:
		s = fmt.Sprintf("%s.volume=%.3f", prefix, a.Volume())
	case surface.FieldMuted:
		s = fmt.Sprintf("%s.muted=%v", prefix, a.Muted())
	case surface.FieldAssigned:
		s = fmt.Sprintf("%s.assigned=%v", prefix, a.Assigned())
	case surface.FieldRunning:
		s = fmt.Sprintf("%s.running=%v", prefix, a.Running())
	case surface.FieldMeter:
		s = fmt.Sprintf("%s.meter=%.3f", prefix, a.Meter())
	}
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *Recorder) RenderButton(b *surface.Button) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf("button:%s=%v", b.Name(), b.Active()))
	r.mu.Unlock()
}

// Events returns the recorded render calls in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
