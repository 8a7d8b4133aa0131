package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/ledger"
	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/status"
	"github.com/dokzlo13/mixd/internal/surface"
)

var errConnectionLost = errors.New("connection lost")

// SettingsLoader loads the current settings.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Recorder appends connection history.
type Recorder interface {
	Append(eventType ledger.EventType, sessionID string, payload map[string]any) error
}

// SessionConfig holds the scheduler timings.
type SessionConfig struct {
	PollInterval     time.Duration
	MeterInterval    time.Duration // 0 disables meters
	WatchdogInterval time.Duration // 0 disables the connection check
	Backoff          Backoff
}

// Session connects to the mixer, builds the controls and keeps polling
// until the context ends. A lost connection starts over.
type Session struct {
	cfg      SessionConfig
	dev      mixer.Device
	loop     *Loop
	host     *surface.Host
	settings SettingsLoader
	ledger   Recorder
	status   *status.Status

	// Buttons adds script buttons to every build.
	Buttons ButtonSource
	// Redraw is called on the loop after controls are rebuilt.
	Redraw func()

	id         string
	engine     *Engine // loop only
	pollQueued atomic.Bool
}

// NewSession creates a session. settings and ledger may be nil.
func NewSession(cfg SessionConfig, dev mixer.Device, loop *Loop, host *surface.Host, st SettingsLoader, rec Recorder, stat *status.Status) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.Backoff.Multiplier <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	if stat == nil {
		stat = status.New()
	}
	return &Session{
		cfg:      cfg,
		dev:      dev,
		loop:     loop,
		host:     host,
		settings: st,
		ledger:   rec,
		status:   stat,
	}
}

// Run connects and serves until ctx is cancelled. It returns
// ErrMaxReconnectsExceeded when connecting gave up.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err := s.serve(ctx)
		if ctx.Err() != nil {
			s.shutdown()
			return nil
		}

		log.Warn().Err(err).Str("session_id", s.id).Msg("Mixer connection lost")
		s.record(ledger.EventDisconnected, map[string]any{"error": err.Error()})
		s.status.SetConnected(false, "", "")
		s.status.Set("Disconnected")
		s.release(ctx)
		_ = s.dev.Logout()
	}
}

// connect retries until the mixer answers, ctx ends or attempts run out.
func (s *Session) connect(ctx context.Context) error {
	s.id = uuid.NewString()
	b := s.cfg.Backoff
	delay := b.Min

	for attempt := 1; ; attempt++ {
		s.status.Set("Connecting")
		s.record(ledger.EventConnectAttempt, map[string]any{"attempt": attempt})

		info, err := s.attempt(ctx)
		if err == nil {
			s.record(ledger.EventConnected, map[string]any{
				"attempt": attempt,
				"type":    info.Type.String(),
				"version": info.Version,
			})
			s.status.Set("Connected")
			s.status.SetConnected(true, s.id, info.Type.String())
			log.Info().
				Str("session_id", s.id).
				Str("type", info.Type.String()).
				Int("attempt", attempt).
				Msg("Connected to mixer")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.record(ledger.EventConnectFailed, map[string]any{"attempt": attempt, "error": err.Error()})
		if b.Exhausted(attempt) {
			s.status.Set("Failed to connect")
			log.Error().Err(err).Int("attempts", attempt).Msg("Giving up connecting to mixer")
			return fmt.Errorf("%w: %v", ErrMaxReconnectsExceeded, err)
		}

		s.status.Set(fmt.Sprintf("Failed to connect, retrying in %s", delay))
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Failed to connect to mixer, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = b.Next(delay)
	}
}

// attempt logs in, reads the model and the first snapshot, and builds the
// controls on the loop.
func (s *Session) attempt(ctx context.Context) (mixer.Info, error) {
	if err := s.dev.Login(ctx); err != nil {
		return mixer.Info{}, fmt.Errorf("login: %w", err)
	}
	info, err := s.dev.DeviceInfo(ctx)
	if err != nil {
		_ = s.dev.Logout()
		return mixer.Info{}, fmt.Errorf("device info: %w", err)
	}
	snap, err := s.dev.GetAllParameters(ctx)
	if err != nil {
		_ = s.dev.Logout()
		return mixer.Info{}, fmt.Errorf("initial parameters: %w", err)
	}

	st := settings.Defaults()
	if s.settings != nil {
		if loaded, err := s.settings.Load(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to load settings, using defaults")
		} else {
			st = loaded
		}
	}

	strips, buses := info.Type.Counts()
	err = s.loop.DoSyncWithResult(ctx, func(context.Context) error {
		if s.engine != nil {
			s.engine.Close()
		}
		s.engine = New(s.host, s.dev, strips, buses, Options{
			Settings:  st,
			Buttons:   s.Buttons,
			OnError:   s.onWriteError,
			Notify:    s.status.Notify,
			OnCommand: s.onCommand,
		})
		s.engine.Reconcile(snap)
		if s.Redraw != nil {
			s.Redraw()
		}
		return nil
	})
	if err != nil {
		_ = s.dev.Logout()
		return mixer.Info{}, fmt.Errorf("build controls: %w", err)
	}
	return info, nil
}

// serve runs the poll, meter and watchdog timers for one connection.
func (s *Session) serve(ctx context.Context) error {
	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()

	var meters, watchdog <-chan time.Time
	if s.cfg.MeterInterval > 0 {
		t := time.NewTicker(s.cfg.MeterInterval)
		defer t.Stop()
		meters = t.C
	}
	if s.cfg.WatchdogInterval > 0 {
		t := time.NewTicker(s.cfg.WatchdogInterval)
		defer t.Stop()
		watchdog = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			s.schedulePoll(ctx)
		case <-meters:
			s.loop.Do(ctx, func(context.Context) {
				if s.engine != nil {
					s.engine.UpdateMeters()
				}
			})
		case <-watchdog:
			if !s.dev.TestConnection(ctx) {
				return errConnectionLost
			}
		}
	}
}

// schedulePoll queues at most one poll at a time.
func (s *Session) schedulePoll(ctx context.Context) {
	if !s.pollQueued.CompareAndSwap(false, true) {
		return
	}
	if !s.loop.Do(ctx, s.poll) {
		s.pollQueued.Store(false)
	}
}

func (s *Session) poll(ctx context.Context) {
	defer s.pollQueued.Store(false)
	if s.engine == nil || !s.dev.IsParametersDirty() {
		return
	}
	snap, err := s.dev.GetAllParameters(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read mixer parameters")
		return
	}
	s.engine.Reconcile(snap)
}

// release drops the controls of a lost connection.
func (s *Session) release(ctx context.Context) {
	err := s.loop.DoSyncWithResult(ctx, func(context.Context) error {
		if s.engine != nil {
			s.engine.Close()
			s.engine = nil
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to release controls")
	}
}

func (s *Session) shutdown() {
	if err := s.dev.Logout(); err != nil {
		log.Warn().Err(err).Msg("Mixer logout failed")
	}
	s.status.SetConnected(false, "", "")
	s.status.Set("Stopped")
}

func (s *Session) onWriteError(err error) {
	s.status.Notify(fmt.Sprintf("Mixer write failed: %v", err))
}

func (s *Session) onCommand(text string, err error) {
	payload := map[string]any{"command": text}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.record(ledger.EventRawCommand, payload)
}

func (s *Session) record(eventType ledger.EventType, payload map[string]any) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Append(eventType, s.id, payload); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to write ledger entry")
	}
}
