package mixer

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by device operations issued before Login
// succeeded or after Logout.
var ErrNotConnected = errors.New("mixer not connected")

// ErrNotFound is returned by Login when no mixer answered.
var ErrNotFound = errors.New("mixer not found")

// LevelKind selects which metering point GetLevel reads.
type LevelKind int

const (
	LevelPreFaderInput LevelKind = iota
	LevelPostFaderInput
	LevelPostMuteInput
	LevelOutput
)

// String returns a human-readable name for the level kind.
func (k LevelKind) String() string {
	switch k {
	case LevelPreFaderInput:
		return "pre_fader_input"
	case LevelPostFaderInput:
		return "post_fader_input"
	case LevelPostMuteInput:
		return "post_mute_input"
	case LevelOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Level is a stereo meter reading.
type Level struct {
	L float64
	R float64
}

// Info describes the connected mixer.
type Info struct {
	Type    Type
	Version string
}

// Device is the mixer collaborator. Implementations must be safe to call from
// the engine's event loop while their own transport goroutines update state.
type Device interface {
	Login(ctx context.Context) error
	Logout() error
	TestConnection(ctx context.Context) bool
	DeviceInfo(ctx context.Context) (Info, error)

	// GetAllParameters returns a fresh snapshot and clears the dirty flag.
	GetAllParameters(ctx context.Context) (*Snapshot, error)
	// IsParametersDirty reports whether the device has state not yet read
	// through GetAllParameters.
	IsParametersDirty() bool

	SetStripParameter(name string, index int, value any) error
	SetBusParameter(name string, index int, value any) error

	GetLevel(kind LevelKind, index int) (Level, bool)
	SendRawCommand(text string) error
}
