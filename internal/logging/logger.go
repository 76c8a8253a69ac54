package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/config"
)

// NewLogger creates a structured zerolog.Logger with the unit context from
// the config. A LogLevel of "off" disables output entirely, which hook
// scripts use to avoid duplicating messages the daemon already logs.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stderr).With().Timestamp()

	if cfg.UnitName != "" {
		ctx = ctx.Str("unit", cfg.UnitName)
	}

	logger := ctx.Logger()

	if cfg.LogLevel == "off" {
		return logger.Level(zerolog.Disabled)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
