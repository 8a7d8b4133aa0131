// Package mackie drives a Mackie-Control-style MIDI control surface.
//
// The surface shows eight channels at a time. Bank 0 shows the mixer strips,
// bank 1 the buses and bank 2, when enabled, the strip limiters; the bank
// left/right buttons step between them. Channel k uses:
//
//	fader       pitch bend on MIDI channel k
//	run (rec)   note 0+k
//	solo        note 8+k (unused)
//	mute        note 16+k
//	assign      note 24+k (select)
//	meter       channel pressure on MIDI channel 0, (k<<4)|segments
//
// LEDs are lit with NoteOn velocity 127 and cleared with velocity 0.
package mackie

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/dokzlo13/mixd/internal/surface"
)

const (
	Channels = 8

	noteRun       = 0
	noteSolo      = 8
	noteMute      = 16
	noteAssign    = 24
	noteBankLeft  = 46
	noteBankRight = 47

	meterSegments = 12
	faderMax      = 16383
)

// Config holds surface port and button mapping.
type Config struct {
	InPort  string
	OutPort string
	// Buttons maps free-standing button names to note numbers.
	Buttons map[string]uint8
}

// Surface is a MIDI control surface bound to a Host. It implements
// surface.Renderer.
type Surface struct {
	host    *surface.Host
	in      drivers.In
	out     drivers.Out
	buttons map[uint8]string

	// bank is touched only on the event loop.
	bank int

	sendMu sync.Mutex
	stop   func()
}

var _ surface.Renderer = (*Surface)(nil)

// Open finds the configured ports by name and creates a surface.
func Open(host *surface.Host, cfg Config) (*Surface, error) {
	in, err := midi.FindInPort(cfg.InPort)
	if err != nil {
		return nil, fmt.Errorf("MIDI input port %q: %w", cfg.InPort, err)
	}
	out, err := midi.FindOutPort(cfg.OutPort)
	if err != nil {
		return nil, fmt.Errorf("MIDI output port %q: %w", cfg.OutPort, err)
	}
	return New(host, in, out, cfg.Buttons), nil
}

// New creates a surface on already resolved ports.
func New(host *surface.Host, in drivers.In, out drivers.Out, buttons map[string]uint8) *Surface {
	s := &Surface{
		host:    host,
		in:      in,
		out:     out,
		buttons: make(map[uint8]string, len(buttons)),
	}
	for name, note := range buttons {
		s.buttons[note] = name
	}
	return s
}

// Start opens the ports and begins listening for input.
func (s *Surface) Start() error {
	if err := s.in.Open(); err != nil {
		return fmt.Errorf("failed to open MIDI input: %w", err)
	}
	if err := s.out.Open(); err != nil {
		return fmt.Errorf("failed to open MIDI output: %w", err)
	}

	stop, err := midi.ListenTo(s.in, s.onMessage)
	if err != nil {
		return fmt.Errorf("failed to listen on MIDI input: %w", err)
	}
	s.stop = stop

	log.Info().
		Str("in", s.in.String()).
		Str("out", s.out.String()).
		Msg("Control surface started")
	return nil
}

// Close stops listening and closes the ports.
func (s *Surface) Close() error {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	if err := s.in.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close MIDI input")
	}
	return s.out.Close()
}

// onMessage runs on the MIDI driver goroutine and only posts work.
func (s *Surface) onMessage(msg midi.Message, _ int32) {
	var channel, key, velocity uint8
	var relative int16
	var absolute uint16

	switch {
	case msg.GetPitchBend(&channel, &relative, &absolute):
		volume := float64(absolute) / faderMax
		k := int(channel)
		s.host.Post(func() {
			if a := s.visible(k); a != nil {
				a.Emit(surface.Event{Kind: surface.VolumeChanged, Volume: volume})
			}
		})

	case msg.GetNoteStart(&channel, &key, &velocity):
		s.host.Post(func() { s.press(key) })
	}
}

// press handles a button press on the event loop.
func (s *Surface) press(key uint8) {
	switch {
	case key == noteBankLeft:
		s.setBank(s.bank - 1)
	case key == noteBankRight:
		s.setBank(s.bank + 1)
	case key < noteSolo:
		s.pressChannel(int(key-noteRun), surface.RunPressed)
	case key >= noteMute && key < noteMute+Channels:
		s.pressChannel(int(key-noteMute), surface.MutePressed)
	case key >= noteAssign && key < noteAssign+Channels:
		s.pressChannel(int(key-noteAssign), surface.AssignPressed)
	default:
		name, ok := s.buttons[key]
		if !ok {
			log.Debug().Uint8("note", key).Msg("Unmapped surface button")
			return
		}
		if b := s.host.Button(name); b != nil {
			b.Press()
		}
	}
}

func (s *Surface) pressChannel(k int, kind surface.EventKind) {
	if a := s.visible(k); a != nil {
		a.Press(kind)
	}
}

// visible returns the assignment shown on surface channel k.
func (s *Surface) visible(k int) *surface.Assignment {
	switch s.bank {
	case 1:
		return s.host.Bus(k)
	case 2:
		return s.host.Limiter(k)
	default:
		return s.host.Strip(k)
	}
}

func (s *Surface) setBank(bank int) {
	last := 1
	if len(s.host.Limiters()) > 0 {
		last = 2
	}
	bank = min(max(bank, 0), last)
	if s.bank == bank {
		return
	}
	s.bank = bank
	s.Redraw()
}

// Bank returns the active bank.
func (s *Surface) Bank() int {
	return s.bank
}

// Redraw pushes the full display state of every visible channel and button.
// Must run on the event loop.
func (s *Surface) Redraw() {
	for k := 0; k < Channels; k++ {
		a := s.visible(k)
		if a == nil {
			s.send(midi.Pitchbend(uint8(k), faderValue(0)))
			s.send(led(noteRun+k, false))
			s.send(led(noteMute+k, false))
			s.send(led(noteAssign+k, false))
			s.send(midi.AfterTouch(0, meterValue(k, 0)))
			continue
		}
		for _, f := range []surface.Field{surface.FieldVolume, surface.FieldMuted, surface.FieldAssigned, surface.FieldRunning, surface.FieldMeter} {
			s.renderField(k, a, f)
		}
	}
	for _, b := range s.host.Buttons() {
		s.RenderButton(b)
	}
}

func (s *Surface) RenderAssignment(a *surface.Assignment, f surface.Field) {
	k := a.Index()
	if k >= Channels || s.visible(k) != a {
		return
	}
	s.renderField(k, a, f)
}

func (s *Surface) renderField(k int, a *surface.Assignment, f surface.Field) {
	switch f {
	case surface.FieldVolume:
		s.send(midi.Pitchbend(uint8(k), faderValue(a.Volume())))
	case surface.FieldMuted:
		s.send(led(noteMute+k, a.Muted()))
	case surface.FieldAssigned:
		s.send(led(noteAssign+k, a.Assigned()))
	case surface.FieldRunning:
		s.send(led(noteRun+k, a.Running()))
	case surface.FieldMeter:
		s.send(midi.AfterTouch(0, meterValue(k, a.Meter())))
	}
}

func (s *Surface) RenderButton(b *surface.Button) {
	for note, name := range s.buttons {
		if name == b.Name() {
			s.send(led(int(note), b.Active()))
		}
	}
}

func (s *Surface) send(msg midi.Message) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.out.Send(msg); err != nil {
		log.Warn().Err(err).Str("msg", msg.String()).Msg("Failed to send MIDI message")
	}
}

func led(note int, on bool) midi.Message {
	var velocity uint8
	if on {
		velocity = 127
	}
	return midi.NoteOn(0, uint8(note), velocity)
}

// faderValue converts a [0,1] position to a relative pitch bend value.
func faderValue(v float64) int16 {
	return int16(math.Round(v*faderMax)) - 8192
}

// meterValue packs channel and lit segment count into a pressure byte.
func meterValue(k int, v float64) uint8 {
	segments := int(math.Round(v * meterSegments))
	return uint8(k<<4 | segments)
}
