// Package config loads runtime configuration for the vault CLI.
//
// Precedence: built-in defaults, then an optional JSON file (-c/-config),
// then command-line flags.
package config

import "time"

// Config holds runtime settings for the vault CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the vault server.
//   - KeystorePath: JSON file holding account identities (private keys).
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerEndpointAddr string
	KeystorePath       string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.KeystorePath = "filevault-keys.json"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
