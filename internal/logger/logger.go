package logger

import (
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger.Level(zerolog.InfoLevel)
}

// WithLevel rebuilds the logger at the configured level, falling back to info
// when the level string does not parse.
func WithLevel(base zerolog.Logger, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		base.Warn().Str("level", level).Msg("unknown log level, keeping info")
		return base.Level(zerolog.InfoLevel)
	}
	return base.Level(parsed)
}

var Module = fx.Provide(New)
