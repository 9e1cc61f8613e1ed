// Package config loads server configuration from YAML with environment
// variable substitution, applies defaults, and validates the result.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Race    RaceConfig    `yaml:"race"`
	Bus     BusConfig     `yaml:"bus"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig covers the network surface.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	WSPath          string   `yaml:"ws_path"`
	PingInterval    Duration `yaml:"ping_interval"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// RaceConfig covers game rules shared by every room.
type RaceConfig struct {
	Text             string `yaml:"text"`
	Quorum           int    `yaml:"quorum"`
	CountdownSeconds int    `yaml:"countdown_seconds"`
}

// BusConfig covers the broadcast event bus.
type BusConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// SessionConfig covers per-connection limits.
type SessionConfig struct {
	KeystrokeRate  float64 `yaml:"keystroke_rate"`
	KeystrokeBurst int     `yaml:"keystroke_burst"`
}

// Duration parses YAML durations in time.ParseDuration form ("15s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"15s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads the config file at path. ${VAR} references are substituted
// from the environment before parsing. Defaults are applied to unset
// fields.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.Expand(string(raw), os.Getenv)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadAndValidate loads the config and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
