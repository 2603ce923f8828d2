package main

import (
	"os"

	"github.com/mcdev12/gametimer/go/internal/config"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/mcdev12/gametimer/go/internal/timers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(level zerolog.Level) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(level)
}

// loadTimerDefinitions reads the configured timers file, falling back to the
// built-in set when none is configured.
func loadTimerDefinitions(cfg config.Config) ([]models.TimerDefinition, error) {
	if cfg.TimersConfig == "" {
		log.Info().Msg("no TIMERS_CONFIG set, using built-in timers")
		return timers.DefaultDefinitions(), nil
	}

	defs, err := timers.LoadDefinitions(cfg.TimersConfig)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", cfg.TimersConfig).
		Int("timers", len(defs)).
		Msg("loaded timer definitions")
	return defs, nil
}
