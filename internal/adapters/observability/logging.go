package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger tagged with the binary name.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env, service string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, env, service)
}

// NewLoggerTo is NewLogger writing to w; CLIs log to stderr so their report
// on stdout stays clean.
func NewLoggerTo(w io.Writer, env, service string) zerolog.Logger {
	out := w
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}
