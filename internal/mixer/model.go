package mixer

import "strings"

// Type is the detected mixer model. The model fixes how many strips and
// buses exist for the lifetime of a session.
type Type int

const (
	TypeUnknown Type = iota
	TypeStandard
	TypeBanana
	TypePotato
)

// String returns the model name.
func (t Type) String() string {
	switch t {
	case TypeStandard:
		return "standard"
	case TypeBanana:
		return "banana"
	case TypePotato:
		return "potato"
	default:
		return "unknown"
	}
}

// Counts returns the strip and bus counts for the model.
func (t Type) Counts() (strips, buses int) {
	switch t {
	case TypeStandard:
		return 3, 2
	case TypeBanana:
		return 5, 5
	case TypePotato:
		return 8, 8
	default:
		return 0, 0
	}
}

// ParseType maps a model name reported by a device to a Type.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "voicemeeter", "basic", "1":
		return TypeStandard
	case "banana", "2":
		return TypeBanana
	case "potato", "3":
		return TypePotato
	default:
		return TypeUnknown
	}
}
