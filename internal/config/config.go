// Package config loads agent settings from a YAML file with environment
// variable overrides. A missing file yields pure defaults; environment
// variables (optionally from a .env file loaded at startup) win over both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config holds all agent settings.
type Config struct {
	// Device is the adb serial to attach to; empty uses the default device.
	Device string `yaml:"device"`

	// HostPackage and CastPackage are the two monitored applications.
	HostPackage string `yaml:"host_package"`
	CastPackage string `yaml:"cast_package"`

	// SettleDelayMS delays processing after a notification so the UI can
	// finish rendering.
	SettleDelayMS int `yaml:"settle_delay_ms"`
	// MinIntervalMS is the minimum spacing between processing cycles.
	MinIntervalMS int `yaml:"min_interval_ms"`
	// StuckTimeoutS resets a flow with no forward progress for this long.
	StuckTimeoutS int `yaml:"stuck_timeout_s"`
	// WatchIntervalMS is the device focus-poll interval that synthesizes
	// window-state-changed notifications.
	WatchIntervalMS int `yaml:"watch_interval_ms"`

	// Notify emits human-visible messages on completed steps.
	Notify bool `yaml:"notify"`
	// Enabled is the initial acceptance toggle state.
	Enabled bool `yaml:"enabled"`

	Log LogConfig `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HostPackage:     "com.remoteview.host",
		CastPackage:     "com.remoteview.cast",
		SettleDelayMS:   400,
		MinIntervalMS:   1000,
		StuckTimeoutS:   30,
		WatchIntervalMS: 500,
		Notify:          true,
		Enabled:         true,
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty and present) over defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setStr("AUTOSHARE_DEVICE", &cfg.Device)
	setStr("AUTOSHARE_HOST_PACKAGE", &cfg.HostPackage)
	setStr("AUTOSHARE_CAST_PACKAGE", &cfg.CastPackage)
	setInt("AUTOSHARE_SETTLE_DELAY_MS", &cfg.SettleDelayMS)
	setInt("AUTOSHARE_MIN_INTERVAL_MS", &cfg.MinIntervalMS)
	setInt("AUTOSHARE_STUCK_TIMEOUT_S", &cfg.StuckTimeoutS)
	setStr("AUTOSHARE_LOG_LEVEL", &cfg.Log.Level)
	setStr("AUTOSHARE_LOG_FORMAT", &cfg.Log.Format)
}

func (c Config) validate() error {
	if c.HostPackage == "" || c.CastPackage == "" {
		return fmt.Errorf("host_package and cast_package must be set")
	}
	if c.SettleDelayMS < 0 || c.MinIntervalMS < 0 || c.StuckTimeoutS <= 0 {
		return fmt.Errorf("delays must be non-negative and stuck_timeout_s positive")
	}
	return nil
}

// SettleDelay returns the settle delay as a duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// MinInterval returns the minimum cycle spacing as a duration.
func (c Config) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMS) * time.Millisecond
}

// StuckTimeout returns the stuck-state timeout as a duration.
func (c Config) StuckTimeout() time.Duration {
	return time.Duration(c.StuckTimeoutS) * time.Second
}

// WatchInterval returns the focus-poll interval as a duration.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalMS) * time.Millisecond
}
