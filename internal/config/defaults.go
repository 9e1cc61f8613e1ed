package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort             = 3000
	DefaultWSPath           = "/ws"
	DefaultPingInterval     = 15 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultRaceText         = "The quick brown fox"
	DefaultQuorum           = 3
	DefaultCountdownSeconds = 3
	DefaultBusBufferSize    = 100
	DefaultKeystrokeRate    = 30
	DefaultKeystrokeBurst   = 60
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = Duration(DefaultPingInterval)
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}

	// Race defaults
	if c.Race.Text == "" {
		c.Race.Text = DefaultRaceText
	}
	if c.Race.Quorum == 0 {
		c.Race.Quorum = DefaultQuorum
	}
	if c.Race.CountdownSeconds == 0 {
		c.Race.CountdownSeconds = DefaultCountdownSeconds
	}

	// Bus defaults
	if c.Bus.BufferSize == 0 {
		c.Bus.BufferSize = DefaultBusBufferSize
	}

	// Session defaults
	if c.Session.KeystrokeRate == 0 {
		c.Session.KeystrokeRate = DefaultKeystrokeRate
	}
	if c.Session.KeystrokeBurst == 0 {
		c.Session.KeystrokeBurst = DefaultKeystrokeBurst
	}
}
