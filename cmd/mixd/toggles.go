package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/mixd/internal/toggle"
)

var flatGrammar bool

var togglesCmd = &cobra.Command{
	Use:   "toggles",
	Short: "Inspect toggle-group configuration",
}

var togglesParseCmd = &cobra.Command{
	Use:   "parse <raw>",
	Short: "Parse a toggle-group string and print the groups",
	Long: `Parses a toggle-group string the way the daemon does and prints one line
per group. Lines that do not parse are skipped silently, so an empty result
usually means a typo.

Examples:
  mixd toggles parse 'Strip0:A1,!B1;Strip2:A2'
  mixd toggles parse --flat 'A1,!B1'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeTogglesParse(cmd.OutOrStdout(), args[0], flatGrammar)
	},
}

func init() {
	togglesParseCmd.Flags().BoolVar(&flatGrammar, "flat", false, "Parse the comma-only strip grammar")
	togglesCmd.AddCommand(togglesParseCmd)
	rootCmd.AddCommand(togglesCmd)
}

func executeTogglesParse(w io.Writer, raw string, flat bool) error {
	var groups []toggle.Group
	if flat {
		if g := toggle.ParseFlat(raw); !g.Empty() {
			groups = append(groups, g)
		}
	} else {
		groups = toggle.Parse(raw)
	}

	if len(groups) == 0 {
		fmt.Fprintln(w, "no groups")
		return nil
	}
	for _, g := range groups {
		strip := "any"
		if g.Strip != toggle.NoStrip {
			strip = fmt.Sprintf("%d", g.Strip)
		}
		entries := make([]string, 0, len(g.Entries))
		for _, e := range g.Entries {
			entries = append(entries, fmt.Sprintf("%s=%v", e.Param, e.Expected()))
		}
		fmt.Fprintf(w, "strip %s: %s\n", strip, strings.Join(entries, " "))
	}
	return nil
}
