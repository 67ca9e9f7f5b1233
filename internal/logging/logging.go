// Package logging constructs the zerolog logger shared across the service.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string `yaml:"level" env:"LOG_LEVEL,default=info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY,default=false"`
}

// New builds a logger writing JSON to stdout, or a console writer when
// Pretty is set.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().
		Timestamp().
		Str("service", "redvault").
		Logger()
}

// NewDefault returns an info-level JSON logger tagged with component.
func NewDefault(component string) zerolog.Logger {
	return New(Config{Level: "info"}).With().Str("component", component).Logger()
}
