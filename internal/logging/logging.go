// Package logging wires the engine's structured logger. Every component
// logs through the package-level zerolog logger configured here rather
// than reaching for the standard library's log package directly.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Init configures the global zerolog logger. level is parsed with
// zerolog.ParseLevel ("debug", "info", "warn", "error"); an unrecognized
// or empty value falls back to info. Safe to call more than once; only
// the first call takes effect.
func Init(level string) {
	once.Do(func() {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(lvl)
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	})
}

// Component returns a child logger tagged with a "component" field, so
// log lines from the store, the ANN index, the parser, and the
// geocoder are distinguishable without per-package boilerplate.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
