package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays Config fields from VAULT_* environment variables.
// Unset variables leave the existing values untouched.
func parseEnv(config *Config) error {
	return env.Parse(config)
}
