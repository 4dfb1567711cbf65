package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"precisebet/lib/configutil"
	"precisebet/lib/dataset"
	"precisebet/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	projectPath string
	configPath  string
	verbose     bool
)

// cfg is loaded before any subcommand runs.
var cfg = DefaultConfig()

var rootCmd = &cobra.Command{
	Use:           "precisebet",
	Short:         "precisebet scrapes football matches, odds, valuations and handicaps from 500.com.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		loaded, err := configutil.ReadConfig(configPath, DefaultConfig())
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config file, using defaults", "path", configPath)
		} else if err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		cfg = loaded

		if cmd.Flags().Changed("project-path") {
			cfg.ProjectPath = projectPath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectPath, "project-path", "data", "The directory holding the project tables.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "precisebet.json5", "The config file, a .local sibling is merged on top of it.")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug records and dump HTTP messages.")
}

func project() dataset.Project {
	return dataset.Project{Dir: cfg.ProjectPath}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
