package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/genricoloni/mpcpresence/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "mpcpresence",
	Short: "Show what MPC-HC is playing as Discord Rich Presence",
	Long: `mpcpresence - Discord Rich Presence for Media Player Classic - Home Cinema

Polls the MPC-HC web interface (or an MPRIS player on Linux), derives a clean
title from the playing file, finds a poster on IMDb and publishes it to the
local Discord client.

Edits to the overrides file are read at startup; restart the daemon to apply them.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the presence daemon (default)",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.AddCommand(runCmd)

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("mpcpresence {{.Version}}\n")
}

// loadConfig discovers and loads the configuration. Offline commands pass
// config.WithoutDiscord so a client id is not required.
func loadConfig(opts ...config.LoadOption) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	path, err := config.Discover(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, opts...)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("configuration invalid\n%s", cfgErr.Error())
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
