package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stately/internal/cli"
	"github.com/aretw0/stately/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stately",
	Short: "Stately drives a recorded, replayable state store",
	Long: `Stately runs a counter store whose dispatched actions are recorded to a
key-value backend (memory, redis, sqlite or badger) and can be replayed later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "stately.yaml", "Path to the configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("backend", "", "Override the log backend: memory, redis, sqlite or badger")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level: debug, info, warn or error")
}

// loadConfig reads the configuration file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Backend = backend
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cfg.Validate()
}

// openSession loads the configuration and opens the session it describes.
func openSession(cmd *cobra.Command) (config.Config, *cli.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	s, err := cli.OpenSession(cfg, logger)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, s, nil
}
