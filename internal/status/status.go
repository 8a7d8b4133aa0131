// Package status keeps the user-visible connection status string and a short
// history of notifications.
package status

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const maxNotifications = 50

// Notification is a one-off message shown to the user.
type Notification struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Snapshot is a copy of the current status.
type Snapshot struct {
	Status        string         `json:"status"`
	Since         time.Time      `json:"since"`
	Connected     bool           `json:"connected"`
	SessionID     string         `json:"session_id,omitempty"`
	MixerType     string         `json:"mixer_type,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// Status is safe for concurrent use.
type Status struct {
	mu            sync.RWMutex
	text          string
	since         time.Time
	connected     bool
	sessionID     string
	mixerType     string
	notifications []Notification
}

func New() *Status {
	return &Status{text: "Idle", since: time.Now()}
}

// Set replaces the status string.
func (s *Status) Set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.text == text {
		return
	}
	s.text = text
	s.since = time.Now()
	log.Info().Str("status", text).Msg("Status changed")
}

// SetConnected records the connection state and the session it belongs to.
func (s *Status) SetConnected(connected bool, sessionID, mixerType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	s.sessionID = sessionID
	s.mixerType = mixerType
}

// Notify records a notification.
func (s *Status) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, Notification{Time: time.Now(), Message: msg})
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
	log.Info().Str("notification", msg).Msg("Notification")
}

// Text returns the status string.
func (s *Status) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Connected reports whether a mixer session is live.
func (s *Status) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := make([]Notification, len(s.notifications))
	copy(n, s.notifications)
	return Snapshot{
		Status:        s.text,
		Since:         s.since,
		Connected:     s.connected,
		SessionID:     s.sessionID,
		MixerType:     s.mixerType,
		Notifications: n,
	}
}
