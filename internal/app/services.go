package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/config"
	"github.com/dokzlo13/mixd/internal/db"
	"github.com/dokzlo13/mixd/internal/engine"
	"github.com/dokzlo13/mixd/internal/ledger"
	"github.com/dokzlo13/mixd/internal/settings"
	"github.com/dokzlo13/mixd/internal/status"
	"github.com/dokzlo13/mixd/internal/surface"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB
	Ledger   *ledger.Ledger
	Settings *settings.Store
	Status   *status.Status

	// Event loop and the widgets it owns
	Loop *engine.Loop
	Host *surface.Host

	// High-level services
	Mixer       *MixerService
	Surface     *SurfaceService
	Script      *ScriptService
	Maintenance *MaintenanceService
	Health      *HealthService

	wait chan struct{}
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg, wait: make(chan struct{})}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Settings = settings.NewStore(database.DB)
	if err := s.Settings.Seed(cfg.Settings); err != nil {
		s.Close()
		return nil, err
	}
	s.Status = status.New()

	s.Loop = engine.NewLoop(cfg.Loop.QueueSize)
	s.Host = surface.NewHost(s.Loop.Post, nil)

	s.Script, err = NewScriptService(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Surface = NewSurfaceService(cfg, s.Host)

	s.Mixer, err = NewMixerService(cfg, s.Loop, s.Host, s.Settings, s.Ledger, s.Status)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Mixer.Session.Buttons = s.Script.Buttons()
	s.Mixer.Session.Redraw = s.Surface.Redraw

	s.Maintenance = NewMaintenanceService(cfg, s.Ledger)
	s.Health = NewHealthService(cfg, s.Status)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Load the script before the loop starts touching Lua
	if err := s.Script.Load(); err != nil {
		return err
	}

	go func() {
		defer close(s.wait)
		s.Loop.Run(ctx)
	}()

	// The surface renders from the loop from now on
	if err := s.Loop.DoSyncWithResult(ctx, func(context.Context) error {
		return s.Surface.Start()
	}); err != nil {
		return err
	}

	s.Mixer.Start(ctx, onFatalError)
	s.Maintenance.Start(ctx)
	s.Health.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Loop.Close()
	select {
	case <-s.wait:
	case <-time.After(s.cfg.ShutdownTimeout.Duration()):
		log.Warn().Msg("Event loop did not stop in time")
	}
	s.Mixer.Wait(s.cfg.ShutdownTimeout.Duration())
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Surface != nil {
		s.Surface.Close()
	}
	if s.Script != nil {
		s.Script.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
