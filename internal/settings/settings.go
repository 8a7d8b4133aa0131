// Package settings holds the user-editable mixer settings: the fader dB range,
// the toggle-group grammars and feature switches.
package settings

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Setting keys as stored.
const (
	KeyMaxDB             = "maxdb"
	KeyMinDB             = "mindb"
	KeyBusToggles        = "BusToggles"
	KeyCustomStripAssign = "customStripAssign"
	KeyCustomStripMute   = "customStripMute"
	KeyCustomStripRun    = "customStripRun"
	KeyLimiter           = "limiter"
)

const (
	DefaultMaxDB = 12.0
	DefaultMinDB = -60.0
)

var knownKeys = []string{
	KeyMaxDB,
	KeyMinDB,
	KeyBusToggles,
	KeyCustomStripAssign,
	KeyCustomStripMute,
	KeyCustomStripRun,
	KeyLimiter,
}

// Keys returns every known setting key, sorted.
func Keys() []string {
	out := append([]string(nil), knownKeys...)
	sort.Strings(out)
	return out
}

// IsKnownKey reports whether key is a recognized setting.
func IsKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Settings is the parsed settings set.
type Settings struct {
	MaxDB float64
	MinDB float64

	// Raw toggle-group grammars.
	BusToggles        string
	CustomStripAssign string
	CustomStripMute   string
	CustomStripRun    string

	Limiter bool
}

// Defaults returns settings with every value at its default.
func Defaults() Settings {
	return Settings{
		MaxDB: DefaultMaxDB,
		MinDB: DefaultMinDB,
	}
}

// FromMap builds settings from raw stored values. Missing or unparsable
// numbers fall back to their defaults, and an inverted dB range falls back to
// the default range.
func FromMap(m map[string]string) Settings {
	s := Defaults()
	s.MaxDB = parseFloat(m[KeyMaxDB], DefaultMaxDB)
	s.MinDB = parseFloat(m[KeyMinDB], DefaultMinDB)
	if s.MaxDB <= s.MinDB {
		log.Warn().
			Float64("maxdb", s.MaxDB).
			Float64("mindb", s.MinDB).
			Msg("Invalid dB range, using defaults")
		s.MaxDB = DefaultMaxDB
		s.MinDB = DefaultMinDB
	}
	s.BusToggles = m[KeyBusToggles]
	s.CustomStripAssign = m[KeyCustomStripAssign]
	s.CustomStripMute = m[KeyCustomStripMute]
	s.CustomStripRun = m[KeyCustomStripRun]
	if v, err := strconv.ParseBool(strings.TrimSpace(m[KeyLimiter])); err == nil {
		s.Limiter = v
	}
	return s
}

func parseFloat(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return v
}

// ToGain converts a fader level in [0,1] to a gain in dB.
func (s Settings) ToGain(level float64) float64 {
	return level*(s.MaxDB-s.MinDB) + s.MinDB
}

// ToVolume converts a gain in dB to a fader level. The result is not clamped.
func (s Settings) ToVolume(gain float64) float64 {
	return (gain - s.MinDB) / (s.MaxDB - s.MinDB)
}
