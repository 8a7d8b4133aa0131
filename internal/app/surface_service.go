package app

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/config"
	"github.com/dokzlo13/mixd/internal/surface"
	"github.com/dokzlo13/mixd/internal/surface/mackie"
)

// SurfaceService wraps the physical control surface, if one is configured.
type SurfaceService struct {
	cfg     *config.Config
	host    *surface.Host
	Surface *mackie.Surface
}

// NewSurfaceService creates a SurfaceService.
func NewSurfaceService(cfg *config.Config, host *surface.Host) *SurfaceService {
	return &SurfaceService{cfg: cfg, host: host}
}

// Start opens the MIDI ports and attaches the surface as renderer.
// Must run on the event loop.
func (s *SurfaceService) Start() error {
	switch s.cfg.Surface.Driver {
	case "none":
		log.Info().Msg("No control surface configured")
		return nil
	case "mackie":
	default:
		return fmt.Errorf("unknown surface driver %q", s.cfg.Surface.Driver)
	}

	surf, err := mackie.Open(s.host, mackie.Config{
		InPort:  s.cfg.Surface.InPort,
		OutPort: s.cfg.Surface.OutPort,
		Buttons: s.cfg.Surface.Buttons,
	})
	if err != nil {
		return err
	}
	if err := surf.Start(); err != nil {
		_ = surf.Close()
		return err
	}
	s.Surface = surf
	s.host.SetRenderer(surf)
	surf.Redraw()
	return nil
}

// Redraw pushes the full display. Must run on the event loop.
func (s *SurfaceService) Redraw() {
	if s.Surface != nil {
		s.Surface.Redraw()
	}
}

// Close releases the MIDI ports.
func (s *SurfaceService) Close() {
	if s.Surface == nil {
		return
	}
	if err := s.Surface.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close control surface")
	}
}
