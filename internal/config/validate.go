package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with '/', got %q", c.Server.WSPath)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if c.Race.Text == "" {
		return errors.New("race.text is required")
	}
	if c.Race.Quorum < 2 {
		return fmt.Errorf("race.quorum must be >= 2, got %d", c.Race.Quorum)
	}
	if c.Race.CountdownSeconds < 1 {
		return fmt.Errorf("race.countdown_seconds must be >= 1, got %d", c.Race.CountdownSeconds)
	}

	if c.Bus.BufferSize < 1 {
		return fmt.Errorf("bus.buffer_size must be >= 1, got %d", c.Bus.BufferSize)
	}

	if c.Session.KeystrokeRate < 0 {
		return errors.New("session.keystroke_rate must not be negative")
	}
	if c.Session.KeystrokeRate > 0 && c.Session.KeystrokeBurst < 1 {
		return fmt.Errorf("session.keystroke_burst must be >= 1, got %d", c.Session.KeystrokeBurst)
	}

	return nil
}
