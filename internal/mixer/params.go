// Package mixer defines the mixer device collaborator: the parameter snapshot
// model, model detection, and the Device interface implemented by backends.
package mixer

import (
	"fmt"
	"strings"
)

// Well-known parameter names. Names are case-insensitive.
const (
	ParamGain   = "gain"
	ParamMute   = "mute"
	ParamSolo   = "solo"
	ParamSelect = "sel"
	ParamLimit  = "limit"
	ParamLabel  = "label"
)

// GainLayer returns the strip parameter holding the gain sent to the given bus.
func GainLayer(bus int) string {
	return fmt.Sprintf("gainlayer[%d]", bus)
}

// Normalize returns the canonical form of a parameter name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Params is the parameter set of one strip or bus at snapshot time.
type Params struct {
	Index  int
	Name   string
	Bools  map[string]bool
	Floats map[string]float64
}

// NewParams creates an empty parameter set.
func NewParams(index int, name string) Params {
	return Params{
		Index:  index,
		Name:   name,
		Bools:  make(map[string]bool),
		Floats: make(map[string]float64),
	}
}

// Bool returns a boolean parameter. Unknown names read as false.
func (p Params) Bool(name string) bool {
	return p.Bools[Normalize(name)]
}

// Float returns a numeric parameter and whether it exists.
func (p Params) Float(name string) (float64, bool) {
	v, ok := p.Floats[Normalize(name)]
	return v, ok
}

// Gain returns the fader gain in dB.
func (p Params) Gain() float64 {
	return p.Floats[ParamGain]
}

// Mute returns the mute state.
func (p Params) Mute() bool {
	return p.Bools[ParamMute]
}

// Solo returns the solo state.
func (p Params) Solo() bool {
	return p.Bools[ParamSolo]
}

// Selected returns the bus select state.
func (p Params) Selected() bool {
	return p.Bools[ParamSelect]
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	c := NewParams(p.Index, p.Name)
	for k, v := range p.Bools {
		c.Bools[k] = v
	}
	for k, v := range p.Floats {
		c.Floats[k] = v
	}
	return c
}

// Set stores a value under its canonical name. Supported values are bool,
// float64, float32, int and int32; a string sets the display name when the
// parameter is "label". Other types are rejected.
func (p *Params) Set(name string, value any) error {
	name = Normalize(name)
	switch v := value.(type) {
	case bool:
		p.Bools[name] = v
	case float64:
		p.Floats[name] = v
	case float32:
		p.Floats[name] = float64(v)
	case int:
		p.Floats[name] = float64(v)
	case int32:
		p.Floats[name] = float64(v)
	case string:
		if name != ParamLabel {
			return fmt.Errorf("parameter %s: string values are only valid for %s", name, ParamLabel)
		}
		p.Name = v
	default:
		return fmt.Errorf("parameter %s: unsupported value type %T", name, value)
	}
	return nil
}

// Snapshot is a point-in-time read of every strip and bus. It is never
// mutated after it has been handed out; the next poll supersedes it.
type Snapshot struct {
	Strips []Params
	Buses  []Params
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Strips: make([]Params, len(s.Strips)),
		Buses:  make([]Params, len(s.Buses)),
	}
	for i, p := range s.Strips {
		c.Strips[i] = p.Clone()
	}
	for i, p := range s.Buses {
		c.Buses[i] = p.Clone()
	}
	return c
}
