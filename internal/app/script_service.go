package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/mixd/internal/config"
	"github.com/dokzlo13/mixd/internal/engine"
	"github.com/dokzlo13/mixd/internal/script"
)

// ScriptService wraps the optional Lua button script.
type ScriptService struct {
	cfg     *config.Config
	Runtime *script.Runtime
}

// NewScriptService creates a ScriptService. Without a configured script it
// does nothing.
func NewScriptService(cfg *config.Config) (*ScriptService, error) {
	s := &ScriptService{cfg: cfg}
	if cfg.Script != "" {
		s.Runtime = script.New()
	}
	return s, nil
}

// Load loads and executes the Lua script.
// Must be called before the event loop starts.
func (s *ScriptService) Load() error {
	if s.Runtime == nil {
		log.Debug().Msg("No Lua script configured")
		return nil
	}
	return s.Runtime.LoadFile(s.cfg.Script)
}

// Buttons returns the button source for sessions, or nil.
func (s *ScriptService) Buttons() engine.ButtonSource {
	if s.Runtime == nil {
		return nil
	}
	return s.Runtime.Buttons
}

// Close closes the Lua runtime.
func (s *ScriptService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
