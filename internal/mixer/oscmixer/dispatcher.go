package oscmixer

import (
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog/log"
)

// HandlerFunc handles a routed message. Captures hold the address segments
// matched by "@" wildcards, in order.
type HandlerFunc func(msg *osc.Message, captures []string)

type route struct {
	pattern string
	handler HandlerFunc
}

// Dispatcher routes OSC packets by address pattern. It implements
// osc.Dispatcher. Routes are tried in registration order and the first match
// wins, so specific patterns must be registered before wildcard ones.
type Dispatcher struct {
	mu     sync.RWMutex
	routes []route
}

var _ osc.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Handle registers a handler for a pattern. Each "@" segment in the pattern
// matches exactly one address segment and captures it.
func (d *Dispatcher) Handle(pattern string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes = append(d.routes, route{pattern: pattern, handler: h})
}

// matchAddr reports whether addr matches pattern and returns the captured
// wildcard segments.
func matchAddr(pattern, addr string) (bool, []string) {
	patSegs := strings.Split(pattern, "/")
	addrSegs := strings.Split(addr, "/")
	if len(patSegs) != len(addrSegs) {
		return false, nil
	}

	var captures []string
	for i, p := range patSegs {
		if p == "@" {
			if addrSegs[i] == "" {
				return false, nil
			}
			captures = append(captures, addrSegs[i])
		} else if p != addrSegs[i] {
			return false, nil
		}
	}
	return true, captures
}

// Dispatch implements osc.Dispatcher. Bundle timetags are ignored and their
// messages are delivered immediately.
func (d *Dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.dispatchMessage(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			d.dispatchMessage(m)
		}
		for _, b := range p.Bundles {
			d.Dispatch(b)
		}
	}
}

func (d *Dispatcher) dispatchMessage(msg *osc.Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, r := range d.routes {
		if ok, captures := matchAddr(r.pattern, msg.Address); ok {
			r.handler(msg, captures)
			return
		}
	}
	log.Trace().Str("address", msg.Address).Msg("Unrouted OSC message")
}
