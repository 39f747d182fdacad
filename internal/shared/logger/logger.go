// Package logger configures zerolog for the service and derives
// request-scoped loggers that carry request and trace identifiers.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// New builds a logger writing JSON to w, or console output when pretty is set.
func New(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Init replaces the global logger and makes it the fallback for zerolog.Ctx.
func Init(level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	log.Logger = New(os.Stderr, lvl, pretty)
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// Ctx returns the logger attached to ctx, enriched with trace_id and span_id
// when ctx carries a valid span.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}

	enriched := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &enriched
}
