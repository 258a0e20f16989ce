// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/trellis/internal/config"
	"github.com/invowk/trellis/internal/issue"
)

// newConfigCommand creates the `trellis config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect trellis configuration",
		Long: `Inspect trellis configuration.

Configuration is read from, in order:
  - the file given with --config
  - ~/.config/trellis/config.cue (or $XDG_CONFIG_HOME/trellis/config.cue)
  - ./trellis.cue
Environment variables prefixed with TRELLIS_ override single values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.handleError(showConfig(cmd.Context(), app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.handleError(initConfig(app))
		},
	})
	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	loaded, err := config.LoadWithSource(ctx, app.loadOptions())
	if err != nil {
		return newServiceError(err, issue.ConfigLoadFailedId, "")
	}

	source := SubtitleStyle.Render("(using defaults)")
	if loaded.Path != "" {
		source = loaded.Path
	}
	fmt.Fprintf(app.stderr, "%s: %s\n\n", CmdStyle.Render("Config file"), source)

	cue, err := config.GenerateCUE(loaded.Config)
	if err != nil {
		return err
	}
	fmt.Fprint(app.stdout, cue)
	return nil
}

func initConfig(app *App) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	existing := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	if _, err := os.Stat(existing); err == nil {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Configuration already exists:"), existing)
		return nil
	}

	path, err := config.Save(config.DefaultConfig(), dir)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("write default configuration").
			WithSuggestion("Check that the configuration directory is writable").
			Wrap(err).
			BuildError()
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created"), path)
	return nil
}
