// Package memory provides an in-process mixer that keeps all state in maps.
// It backs the --simulate mode and the engine tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/mixer"
)

// Target identifies which side of the mixer a write addressed.
type Target string

const (
	TargetStrip Target = "strip"
	TargetBus   Target = "bus"
)

// Write is one recorded parameter write.
type Write struct {
	Target Target
	Index  int
	Param  string
	Value  any
}

type levelKey struct {
	kind  mixer.LevelKind
	index int
}

// Device is a simulated mixer.
type Device struct {
	mu sync.Mutex

	typ        mixer.Type
	connected  bool
	failLogins int
	attempts   int
	writeErr   error

	snap     *mixer.Snapshot
	dirty    bool
	writes   []Write
	commands []string
	levels   map[levelKey]mixer.Level
}

var _ mixer.Device = (*Device)(nil)

// New creates a simulated mixer of the given model with every parameter at
// its zero value.
func New(typ mixer.Type) *Device {
	strips, buses := typ.Counts()
	snap := &mixer.Snapshot{
		Strips: make([]mixer.Params, strips),
		Buses:  make([]mixer.Params, buses),
	}
	for i := range snap.Strips {
		snap.Strips[i] = mixer.NewParams(i, fmt.Sprintf("Strip %d", i+1))
	}
	for i := range snap.Buses {
		snap.Buses[i] = mixer.NewParams(i, fmt.Sprintf("Bus %d", i+1))
	}
	return &Device{
		typ:    typ,
		snap:   snap,
		levels: make(map[levelKey]mixer.Level),
	}
}

// FailLogins makes the next n Login calls fail.
func (d *Device) FailLogins(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failLogins = n
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// LoginAttempts returns how many times Login was called.
func (d *Device) LoginAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// Connected reports whether the last Login succeeded and Logout was not called.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) Login(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.failLogins > 0 {
		d.failLogins--
		return mixer.ErrNotFound
	}
	d.connected = true
	d.dirty = true
	return nil
}

func (d *Device) Logout() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *Device) TestConnection(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) DeviceInfo(ctx context.Context) (mixer.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return mixer.Info{}, mixer.ErrNotConnected
	}
	return mixer.Info{Type: d.typ, Version: "simulated"}, nil
}

func (d *Device) GetAllParameters(ctx context.Context) (*mixer.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, mixer.ErrNotConnected
	}
	d.dirty = false
	return d.snap.Clone(), nil
}

func (d *Device) IsParametersDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected && d.dirty
}

func (d *Device) SetStripParameter(name string, index int, value any) error {
	return d.write(TargetStrip, name, index, value)
}

func (d *Device) SetBusParameter(name string, index int, value any) error {
	return d.write(TargetBus, name, index, value)
}

func (d *Device) write(target Target, name string, index int, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return mixer.ErrNotConnected
	}
	if d.writeErr != nil {
		return d.writeErr
	}
	if err := d.apply(target, name, index, value); err != nil {
		return err
	}
	d.writes = append(d.writes, Write{Target: target, Index: index, Param: mixer.Normalize(name), Value: value})
	log.Trace().
		Str("target", string(target)).
		Int("index", index).
		Str("param", name).
		Interface("value", value).
		Msg("Simulated write")
	return nil
}

func (d *Device) apply(target Target, name string, index int, value any) error {
	list := d.snap.Strips
	if target == TargetBus {
		list = d.snap.Buses
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%s index %d out of range", target, index)
	}
	if err := list[index].Set(name, value); err != nil {
		return err
	}
	d.dirty = true
	return nil
}

func (d *Device) GetLevel(kind mixer.LevelKind, index int) (mixer.Level, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return mixer.Level{}, false
	}
	l, ok := d.levels[levelKey{kind: kind, index: index}]
	return l, ok
}

func (d *Device) SendRawCommand(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return mixer.ErrNotConnected
	}
	if d.writeErr != nil {
		return d.writeErr
	}
	d.commands = append(d.commands, text)
	return nil
}

// SetStrip changes a strip parameter as if the mixer changed on its own.
func (d *Device) SetStrip(index int, name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.apply(TargetStrip, name, index, value); err != nil {
		log.Error().Err(err).Msg("Simulated strip change rejected")
	}
}

// SetBus changes a bus parameter as if the mixer changed on its own.
func (d *Device) SetBus(index int, name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.apply(TargetBus, name, index, value); err != nil {
		log.Error().Err(err).Msg("Simulated bus change rejected")
	}
}

// SetLevel sets the meter reading returned by GetLevel.
func (d *Device) SetLevel(kind mixer.LevelKind, index int, level mixer.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[levelKey{kind: kind, index: index}] = level
}

// Writes returns every parameter write in the order it was issued.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Write, len(d.writes))
	copy(out, d.writes)
	return out
}

// ResetWrites forgets recorded writes and commands.
func (d *Device) ResetWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
	d.commands = nil
}

// Commands returns every raw command sent.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.commands))
	copy(out, d.commands)
	return out
}

// Snapshot returns the current state without touching the dirty flag.
func (d *Device) Snapshot() *mixer.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap.Clone()
}
