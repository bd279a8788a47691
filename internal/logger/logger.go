package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/version"
)

const service = "review-mailer"

// New builds the process logger from cfg and writes to stdout.
func New(cfg config.Config) zerolog.Logger {
	return NewWriter(os.Stdout, cfg.AppEnv, cfg.LogLevel)
}

// NewWriter builds a logger on w. Development environments get the console
// format; everything else emits one JSON object per line. level overrides
// the environment default (debug in development, info otherwise) when it
// parses.
func NewWriter(w io.Writer, appEnv, level string) zerolog.Logger {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	dev := env == "development" || env == "dev"

	lvl := zerolog.InfoLevel
	if dev {
		lvl = zerolog.DebugLevel
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && l != zerolog.NoLevel {
		lvl = l
	}

	out := w
	if dev {
		out = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
			cw.NoColor = w != os.Stdout
			cw.TimeFormat = "15:04:05.000"
		})
	}
	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Str("svc", service)
	if env != "" && !dev {
		ctx = ctx.Str("env", env)
	}
	if !dev {
		ctx = ctx.Str("version", version.String())
	}
	return ctx.Logger()
}

// Nop discards everything.
func Nop() zerolog.Logger {
	return zerolog.New(io.Discard)
}
