package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "mpcpresence", "config.toml")
}

// Discover finds the config file using the standard search order.
// Search order:
//  1. explicit path (--config flag)
//  2. MPCPRESENCE_CONFIG environment variable
//  3. ./config.toml (current directory)
//  4. $XDG_CONFIG_HOME/mpcpresence/config.toml
//
// An empty result with a nil error means no file exists and defaults apply.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("--config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%sCONFIG=%s: %w", EnvPrefix, envPath, err)
		}
		return envPath, nil
	}

	for _, p := range []string{"./config.toml", DefaultPath()} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}
