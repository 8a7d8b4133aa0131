// Package toggle parses toggle-group configuration and evaluates the light
// state of a group against mixer parameters.
//
// A toggle group is an ordered list of boolean mixer parameters that together
// behave as one logical on/off control. Each entry carries an invert flag:
// a plain entry expects its parameter to be on, an inverted entry expects it
// to be off.
package toggle

// NoStrip marks a group that is not yet bound to a strip (flat grammar).
const NoStrip = -1

// Params is the read side of a strip or bus parameter set.
type Params interface {
	Bool(name string) bool
}

// Entry is one member of a toggle group.
type Entry struct {
	Param  string
	Invert bool
}

// Expected returns the parameter value this entry needs for the group to read as lit.
func (e Entry) Expected() bool {
	return !e.Invert
}

// Group is an ordered, immutable sequence of entries scoped to one strip.
type Group struct {
	Strip   int
	Entries []Entry
}

// Empty reports whether no custom group was configured.
// Callers fall back to the default single-parameter behavior.
func (g Group) Empty() bool {
	return len(g.Entries) == 0
}

// OnStrip returns a copy of the group bound to the given strip.
func (g Group) OnStrip(strip int) Group {
	entries := make([]Entry, len(g.Entries))
	copy(entries, g.Entries)
	return Group{Strip: strip, Entries: entries}
}

// Evaluate returns true only if every entry's parameter is in its expected
// polarity. A single mismatch reads the whole group as off.
func (g Group) Evaluate(p Params) bool {
	for _, e := range g.Entries {
		if p.Bool(e.Param) != e.Expected() {
			return false
		}
	}
	return true
}

// Write is a single boolean parameter write produced by a group toggle.
type Write struct {
	Param string
	Value bool
}

// Writes returns the parameter writes that move the group to the given
// logical state, in entry order. Duplicate entries produce duplicate writes
// so the last one wins on the device.
func (g Group) Writes(state bool) []Write {
	writes := make([]Write, 0, len(g.Entries))
	for _, e := range g.Entries {
		writes = append(writes, Write{Param: e.Param, Value: state != e.Invert})
	}
	return writes
}
