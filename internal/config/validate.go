package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validSources = map[string]bool{
	"mpc": true, "mpris": true,
}

// validateDiscord checks the settings only the daemon needs.
func (c *Config) validateDiscord() []string {
	var errs []string

	if c.Discord.ClientID == "" {
		errs = append(errs, "discord.client_id: required (set it in the config file or "+EnvPrefix+"DISCORD_CLIENT_ID)")
	} else if strings.Trim(c.Discord.ClientID, "0123456789") != "" {
		errs = append(errs, fmt.Sprintf("discord.client_id: must be a numeric application id, got %q", c.Discord.ClientID))
	}
	if c.Discord.ConnectAttempts == 0 {
		errs = append(errs, "discord.connect_attempts: must be at least 1")
	}
	return errs
}

// Validate checks the configuration for errors, excluding the discord section.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validSources[c.Player.Source] {
		errs = append(errs, fmt.Sprintf("player.source: must be one of mpc, mpris; got %q", c.Player.Source))
	}
	if c.Player.Port < 1 || c.Player.Port > 65535 {
		errs = append(errs, fmt.Sprintf("player.port: must be between 1 and 65535, got %d", c.Player.Port))
	}
	if c.Player.PollInterval <= 0 {
		errs = append(errs, "player.poll_interval: must be positive")
	}
	if c.Player.Timeout <= 0 {
		errs = append(errs, "player.timeout: must be positive")
	}

	if c.Presence.LargeImageKey == "" {
		errs = append(errs, "presence.large_image_key: required")
	}
	if c.Presence.FlickerDelay < 0 {
		errs = append(errs, "presence.flicker_delay: must not be negative")
	}

	if u, err := url.Parse(c.Lookup.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("lookup.base_url: must be an absolute URL, got %q", c.Lookup.BaseURL))
	}
	if c.Lookup.Timeout <= 0 {
		errs = append(errs, "lookup.timeout: must be positive")
	}

	if c.Storage.OverridesPath == "" {
		errs = append(errs, "storage.overrides_path: required")
	}
	if c.Storage.CachePath == "" {
		errs = append(errs, "storage.cache_path: required")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errs
}
