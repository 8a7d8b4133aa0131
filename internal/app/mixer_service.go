package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/config"
	"github.com/dokzlo13/mixd/internal/engine"
	"github.com/dokzlo13/mixd/internal/ledger"
	"github.com/dokzlo13/mixd/internal/mixer"
	"github.com/dokzlo13/mixd/internal/mixer/memory"
	"github.com/dokzlo13/mixd/internal/mixer/oscmixer"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/status"
	"github.com/dokzlo13/mixd/internal/surface"
)

// MixerService wraps the mixer device and the session that keeps it in sync
// with the surface.
type MixerService struct {
	cfg     *config.Config
	Device  mixer.Device
	Session *engine.Session

	done chan struct{}
}

// NewMixerService creates the configured device and a session for it.
func NewMixerService(
	cfg *config.Config,
	loop *engine.Loop,
	host *surface.Host,
	store *settings.Store,
	l *ledger.Ledger,
	stat *status.Status,
) (*MixerService, error) {
	dev, err := newDevice(cfg.Mixer)
	if err != nil {
		return nil, err
	}

	sessionConfig := engine.SessionConfig{
		PollInterval:     cfg.Poll.Interval.Duration(),
		WatchdogInterval: cfg.Poll.Watchdog.Duration(),
		Backoff: engine.Backoff{
			Min:           cfg.Retry.MinRetryBackoff.Duration(),
			Max:           cfg.Retry.MaxRetryBackoff.Duration(),
			Multiplier:    cfg.Retry.RetryMultiplier,
			MaxReconnects: cfg.Retry.MaxReconnects,
		},
	}
	if !cfg.Meters.Disabled {
		sessionConfig.MeterInterval = cfg.Meters.Interval.Duration()
	}

	return &MixerService{
		cfg:     cfg,
		Device:  dev,
		Session: engine.NewSession(sessionConfig, dev, loop, host, store, l, stat),
		done:    make(chan struct{}),
	}, nil
}

func newDevice(cfg config.MixerConfig) (mixer.Device, error) {
	switch cfg.Driver {
	case "osc":
		log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("Using OSC mixer")
		return oscmixer.New(oscmixer.Config{
			Host:         cfg.Host,
			Port:         cfg.Port,
			ListenAddr:   cfg.Listen,
			LoginTimeout: cfg.LoginTimeout.Duration(),
			WriteRate:    cfg.WriteRate,
			QueueSize:    cfg.QueueSize,
		}), nil
	case "simulate":
		typ := mixer.ParseType(cfg.Type)
		if typ == mixer.TypeUnknown {
			return nil, fmt.Errorf("unknown mixer type %q", cfg.Type)
		}
		log.Info().Str("type", typ.String()).Msg("Using simulated mixer")
		return memory.New(typ), nil
	default:
		return nil, fmt.Errorf("unknown mixer driver %q", cfg.Driver)
	}
}

// Start runs the session in the background.
// The optional onFatalError callback is called when connecting gives up.
func (s *MixerService) Start(ctx context.Context, onFatalError func(error)) {
	go func() {
		defer close(s.done)
		if err := s.Session.Run(ctx); err != nil {
			if errors.Is(err, engine.ErrMaxReconnectsExceeded) {
				log.Error().Msg("Mixer: max reconnects exceeded, triggering shutdown")
				if onFatalError != nil {
					onFatalError(err)
				}
			} else {
				log.Error().Err(err).Msg("Mixer session error")
			}
		}
	}()
}

// Wait blocks until the session returned or the timeout passed.
func (s *MixerService) Wait(timeout time.Duration) {
	select {
	case <-s.done:
	case <-time.After(timeout):
		log.Warn().Msg("Mixer session did not stop in time")
	}
}
