// Package cmd implements the moltboard command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/V-SK/moltboard/infrastructure/config"
	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/internal/config"
)

const defaultConfigPath = "config.yml"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug logging and gin debug mode.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "moltboard",
		Short: "Caching proxy and live dashboard for the Moltbook API",
		Long: `moltboard proxies the Moltbook REST API, serves a cached agent leaderboard
and renders a live terminal dashboard from a running server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCommand(),
		newWatchCommand(),
		newSearchCommand(),
		newVersionCommand(),
	)
}

// loadConfig loads the config file, environment and flag overrides.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = infraconfig.GetConfigPath(defaultConfigPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger. Extra output paths replace stdout.
func newLogger(cfg *config.Config, format string, outputPaths ...string) (infralogger.Logger, error) {
	if format == "" {
		format = cfg.Logging.Format
	}

	log, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      format,
		Development: cfg.Service.Debug,
		OutputPaths: outputPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return log.With(infralogger.String("service", cfg.Service.Name)), nil
}
