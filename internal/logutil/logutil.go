package logutil

import (
	"os"

	"cloud.google.com/go/compute/metadata"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the variable holding the minimum log level.
const LevelEnv = "UTVIEW_LOG_LEVEL"

func ConfigureLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(LevelFromEnv(zerolog.InfoLevel))
	log.Logger = log.With().Caller().Stack().Logger()
	if metadata.OnGCE() {
		log.Logger = log.Hook(ErrorHook{})
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// LevelFromEnv parses UTVIEW_LOG_LEVEL, falling back when it is unset or
// invalid.
func LevelFromEnv(fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(LevelEnv)
	if v == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(v)
	if err != nil {
		return fallback
	}
	return lvl
}

type ErrorHook struct{}

func (h ErrorHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", level.String())
}
