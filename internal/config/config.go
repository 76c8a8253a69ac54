package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the runtime configuration shared by the CLI and the daemon.
// Everything is environment-driven so the same binary works both inside a
// Juju hook context and in a dev shell.
type Config struct {
	// UnitName is the Juju unit this daemon serves, e.g. "my-charm/0".
	UnitName string
	// DataDir holds the unit's socket and pid file.
	DataDir string
	// CharmDir is the charm root containing lucky.yaml and the charm scripts.
	CharmDir string
	// LogLevel is the zerolog level name. "off" disables CLI-side logging
	// entirely; the daemon logs on its own, so hook scripts stay quiet.
	LogLevel string
	// HookTimeout bounds a single hook execution.
	HookTimeout time.Duration
	// StartTimeout bounds how long "daemon start" waits for readiness.
	StartTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		UnitName:     getEnv("LUCKY_UNIT_NAME", os.Getenv("JUJU_UNIT_NAME")),
		DataDir:      getEnv("LUCKY_DATA_DIR", "/run/lucky"),
		CharmDir:     getEnv("LUCKY_CHARM_DIR", os.Getenv("JUJU_CHARM_DIR")),
		LogLevel:     getEnv("LUCKY_LOG_LEVEL", "info"),
		HookTimeout:  getDuration("LUCKY_HOOK_TIMEOUT", 5*time.Minute),
		StartTimeout: getDuration("LUCKY_START_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

// UnitID is the unit name mangled for filesystem use ("my-charm/0" ->
// "my-charm_0"). An empty unit name maps to "local" so dev runs outside a
// hook context still get stable paths.
func (c *Config) UnitID() string {
	if c.UnitName == "" {
		return "local"
	}
	return strings.ReplaceAll(c.UnitName, "/", "_")
}

// SocketPath is the unix socket the daemon listens on for this unit.
func (c *Config) SocketPath() string {
	return filepath.Join(c.DataDir, c.UnitID()+".sock")
}

// PIDPath is the daemon pid file for this unit.
func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, c.UnitID()+".pid")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
