// Package config reads process-level settings from environment variables.
// The mock routing document is separate; see the routeconfig package.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port     string
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads configuration from the provided map; keys missing from it
// take their defaults. If env is nil, all values come from os.Getenv.
func LoadFrom(env map[string]string) (*Config, error) {
	get := func(key string) string {
		if env != nil {
			return env[key]
		}
		return os.Getenv(key)
	}

	cfg := &Config{}

	cfg.Port = getOrDefault(get, "PORT", "8080")
	if err := validatePort(cfg.Port); err != nil {
		return nil, err
	}

	cfg.LogLevel = getOrDefault(get, "LOG_LEVEL", "info")

	return cfg, nil
}

func getOrDefault(get func(string) string, key, defaultVal string) string {
	if v := get(key); v != "" {
		return v
	}
	return defaultVal
}

func validatePort(port string) error {
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid value for PORT: %q", port)
	}
	if n == 0 {
		return fmt.Errorf("invalid value for PORT: %q", port)
	}
	return nil
}
