package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/mixd/internal/db"
	"github.com/dokzlo13/mixd/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change stored settings",
	Long: `Reads and changes the settings stored in the database. A running daemon
picks up changes on its next connect.

Known keys: maxdb, mindb, BusToggles, customStripAssign, customStripMute,
customStripRun, limiter.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *settings.Store) error {
			return executeSettingsList(cmd.OutOrStdout(), s)
		})
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *settings.Store) error {
			return executeSettingsGet(cmd.OutOrStdout(), s, args[0])
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *settings.Store) error {
			return s.Set(args[0], args[1])
		})
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove one setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *settings.Store) error {
			return s.Delete(args[0])
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsUnsetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func withStore(fn func(*settings.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(settings.NewStore(database.DB))
}

func executeSettingsList(w io.Writer, s *settings.Store) error {
	all, err := s.All()
	if err != nil {
		return err
	}
	for _, k := range settings.Keys() {
		v, ok := all[k]
		if !ok {
			v = "(default)"
		}
		fmt.Fprintf(w, "%s = %s\n", k, v)
	}
	return nil
}

func executeSettingsGet(w io.Writer, s *settings.Store, key string) error {
	if !settings.IsKnownKey(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	v, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "(default)")
		return nil
	}
	fmt.Fprintln(w, v)
	return nil
}
