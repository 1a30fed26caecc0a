// Package logger provides a configured zerolog logger.
package logger

import (
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a zerolog.Logger for the named service. The level comes from
// TIMEWARDEN_LOG_LEVEL (default info). Call sites should use .Stack() on
// error events to include stacks.
func New(serviceName string) zerolog.Logger {
	// Marshal github.com/pkg/errors stack traces, attaching one to plain
	// errors so .Stack() always has something to render.
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	level := zerolog.InfoLevel
	if raw := os.Getenv("TIMEWARDEN_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
