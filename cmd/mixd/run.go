package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/mixd/internal/app"
)

var (
	simulate    bool
	noSurface   bool
	simulatedAs string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon",
	Long: `Connects to the mixer and the control surface and keeps them in sync
until interrupted.

Examples:
  mixd run -c /etc/mixd/config.yaml
  mixd run --simulate --type banana --no-surface`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&simulate, "simulate", false, "Use an in-process simulated mixer")
	runCmd.Flags().StringVar(&simulatedAs, "type", "", "Simulated mixer model (standard, banana, potato)")
	runCmd.Flags().BoolVar(&noSurface, "no-surface", false, "Run without a control surface")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simulate {
		cfg.Mixer.Driver = "simulate"
	}
	if simulatedAs != "" {
		cfg.Mixer.Type = simulatedAs
	}
	if noSurface {
		cfg.Surface.Driver = "none"
	}

	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Msg("Starting mixd")

	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	if err := application.Start(ctx); err != nil {
		_ = application.Stop()
		return err
	}

	// Wait for shutdown
	fatal := application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	return fatal
}
