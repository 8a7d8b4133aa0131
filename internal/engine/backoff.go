package engine

import (
	"errors"
	"time"
)

// ErrMaxReconnectsExceeded is returned when the maximum number of connect attempts is exceeded.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// Backoff controls connect retries.
type Backoff struct {
	Min           time.Duration // Minimum delay between attempts
	Max           time.Duration // Maximum delay between attempts
	Multiplier    float64       // Delay multiplier
	MaxReconnects int           // Max attempts, 0 = infinite
}

// DefaultBackoff returns sensible defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:           1 * time.Second,
		Max:           2 * time.Minute,
		Multiplier:    2.0,
		MaxReconnects: 0, // infinite
	}
}

// Next returns the delay after current, capped at Max.
func (b Backoff) Next(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * b.Multiplier)
	if next < b.Min {
		next = b.Min
	}
	if b.Max > 0 && next > b.Max {
		next = b.Max
	}
	return next
}

// Exhausted reports whether attempt (1-based) was the last one allowed.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxReconnects > 0 && attempt >= b.MaxReconnects
}
