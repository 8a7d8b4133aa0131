package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/config"
)

// App owns the services of one mixd process: the event loop, the mixer
// session, the surface and the HTTP health endpoint.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	fatal    error
	stopOnce sync.Once
	stopErr  error
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start runs the services until ctx is cancelled or the mixer session gives up.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx, a.onFatalError); err != nil {
		return err
	}

	ev := log.Info().
		Str("mixer", a.cfg.Mixer.Driver).
		Str("surface", a.cfg.Surface.Driver)
	if a.cfg.Mixer.Driver == "simulate" {
		ev = ev.Str("model", a.cfg.Mixer.Type)
	} else {
		ev = ev.Str("address", fmt.Sprintf("%s:%d", a.cfg.Mixer.Host, a.cfg.Mixer.Port))
	}
	if a.cfg.Script != "" {
		ev = ev.Str("script", a.cfg.Script)
	}
	ev.Msg("mixd started")
	return nil
}

// onFatalError records why the session stopped for good and shuts down.
func (a *App) onFatalError(err error) {
	log.Error().Err(err).Str("status", a.services.Status.Text()).Msg("Mixer session gave up, initiating shutdown")
	a.mu.Lock()
	if a.fatal == nil {
		a.fatal = err
	}
	a.mu.Unlock()
	a.cancel()
}

// Stop shuts the services down. It is safe to call more than once.
func (a *App) Stop() error {
	a.stopOnce.Do(func() {
		snap := a.services.Status.Snapshot()
		log.Info().
			Str("status", snap.Status).
			Str("session", snap.SessionID).
			Msg("Shutting down...")

		if a.cancel != nil {
			a.cancel()
		}
		a.stopErr = a.services.Stop()
	})
	return a.stopErr
}

// Wait blocks until the application context is cancelled. It returns the
// error that made the mixer session give up, or nil on a normal shutdown.
func (a *App) Wait() error {
	if a.ctx == nil {
		return nil
	}
	<-a.ctx.Done()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatal
}

// Services exposes the service container.
func (a *App) Services() *Services {
	return a.services
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
