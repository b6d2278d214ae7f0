// Package config loads the daemon configuration from a TOML file, a .env
// file and MPCPRESENCE_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "MPCPRESENCE_"

type Config struct {
	Discord  DiscordConfig  `toml:"discord" envPrefix:"DISCORD_"`
	Player   PlayerConfig   `toml:"player" envPrefix:"PLAYER_"`
	Presence PresenceConfig `toml:"presence" envPrefix:"PRESENCE_"`
	Cleanup  CleanupConfig  `toml:"cleanup" envPrefix:"CLEANUP_"`
	Lookup   LookupConfig   `toml:"lookup" envPrefix:"LOOKUP_"`
	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`

	// Path is the file the configuration was read from, empty for defaults
	Path string `toml:"-"`
}

type DiscordConfig struct {
	ClientID        string `toml:"client_id" env:"CLIENT_ID"`
	ConnectAttempts uint   `toml:"connect_attempts" env:"CONNECT_ATTEMPTS"`
}

type PlayerConfig struct {
	// Source is "mpc" (web interface) or "mpris" (D-Bus)
	Source       string        `toml:"source" env:"SOURCE"`
	Port         int           `toml:"port" env:"PORT"`
	PollInterval time.Duration `toml:"poll_interval" env:"POLL_INTERVAL"`
	Timeout      time.Duration `toml:"timeout" env:"TIMEOUT"`
	MprisPlayer  string        `toml:"mpris_player" env:"MPRIS_PLAYER"`
}

type PresenceConfig struct {
	LargeImageKey     string        `toml:"large_image_key" env:"LARGE_IMAGE_KEY"`
	SmallImagePlaying string        `toml:"small_image_playing" env:"SMALL_IMAGE_PLAYING"`
	SmallImagePaused  string        `toml:"small_image_paused" env:"SMALL_IMAGE_PAUSED"`
	LargeImageTooltip string        `toml:"large_image_tooltip" env:"LARGE_IMAGE_TOOLTIP"`
	FlickerDelay      time.Duration `toml:"flicker_delay" env:"FLICKER_DELAY"`
}

type CleanupConfig struct {
	Advanced           bool `toml:"advanced" env:"ADVANCED"`
	IgnoreBrackets     bool `toml:"ignore_brackets" env:"IGNORE_BRACKETS"`
	ReplaceUnderscores bool `toml:"replace_underscores" env:"REPLACE_UNDERSCORES"`
	ReplaceDots        bool `toml:"replace_dots" env:"REPLACE_DOTS"`
}

type LookupConfig struct {
	BaseURL   string        `toml:"base_url" env:"BASE_URL"`
	Timeout   time.Duration `toml:"timeout" env:"TIMEOUT"`
	UserAgent string        `toml:"user_agent" env:"USER_AGENT"`
}

type StorageConfig struct {
	OverridesPath string `toml:"overrides_path" env:"OVERRIDES_PATH"`
	CachePath     string `toml:"cache_path" env:"CACHE_PATH"`
}

type LogConfig struct {
	Level      string `toml:"level" env:"LEVEL"`
	File       string `toml:"file" env:"FILE"`
	MaxSizeMB  int    `toml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `toml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `toml:"max_age_days" env:"MAX_AGE_DAYS"`
}

// Default returns the configuration used when no file sets a key.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{ConnectAttempts: 3},
		Player: PlayerConfig{
			Source:       "mpc",
			Port:         13579,
			PollInterval: 15 * time.Second,
			Timeout:      2 * time.Second,
		},
		Presence: PresenceConfig{
			LargeImageKey:     "mpc_logo_large",
			SmallImagePlaying: "play_icon",
			SmallImagePaused:  "pause_icon",
			LargeImageTooltip: "Media Player Classic - Home Cinema",
			FlickerDelay:      time.Second,
		},
		Cleanup: CleanupConfig{
			Advanced:           true,
			IgnoreBrackets:     true,
			ReplaceUnderscores: true,
			ReplaceDots:        true,
		},
		Lookup: LookupConfig{
			BaseURL: "https://www.imdb.com",
			Timeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			OverridesPath: "overrides.json",
			CachePath:     "thumbnail_cache.json",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadDotEnv exports the variables of the given .env files (default ".env")
// without overriding the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

type loadOptions struct {
	skipDiscord bool
}

// LoadOption adjusts validation in Load.
type LoadOption func(*loadOptions)

// WithoutDiscord skips the discord.* checks, for offline commands.
func WithoutDiscord() LoadOption {
	return func(o *loadOptions) {
		o.skipDiscord = true
	}
}

// Load reads path (if non-empty), applies environment overrides and validates
// the result. Validation problems are returned as a *ConfigError.
func Load(path string, opts ...LoadOption) (*Config, error) {
	var lo loadOptions
	for _, opt := range opts {
		opt(&lo)
	}

	cfg := Default()
	cfgErr := &ConfigError{Path: path}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		content, missing := substituteEnvVars(string(data))
		cfgErr.Missing = missing

		if _, err := toml.Decode(content, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		cfg.Path = path
		cfg.resolvePaths(filepath.Dir(path))
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfgErr.Missing = cfg.unresolved(cfgErr.Missing, lo.skipDiscord)
	cfgErr.Errors = cfg.Validate()
	if !lo.skipDiscord {
		cfgErr.Errors = append(cfg.validateDiscord(), cfgErr.Errors...)
	}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// resolvePaths anchors relative storage paths to the config file's directory.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Storage.OverridesPath, &c.Storage.CachePath, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// unresolved keeps the names whose ${VAR} reference is still present in the
// final configuration. Environment overrides replace a reference, and the
// discord section is ignored when skipDiscord is set.
func (c *Config) unresolved(names []string, skipDiscord bool) []string {
	if len(names) == 0 {
		return nil
	}

	view := *c
	if skipDiscord {
		view.Discord = DiscordConfig{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(view); err != nil {
		return names
	}

	var out []string
	for _, name := range names {
		if strings.Contains(buf.String(), "${"+name+"}") {
			out = append(out, name)
		}
	}
	return out
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands ${VAR} references and reports unset names.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)

	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if !seen[varName] {
			seen[varName] = true
			missing = append(missing, varName)
		}
		return match
	})
	return out, missing
}
