package telemetry

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
)

// Logger writes events to slog.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Logger. A nil logger falls back to the context logger
// on every call.
func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) logger(ctx context.Context) *slog.Logger {
	if l.log != nil {
		return l.log
	}
	return slogx.FromContext(ctx)
}

func (l *Logger) Start(ctx context.Context, api API, correlationID string) *Event {
	event := NewEvent(api, correlationID)
	l.started(ctx, event)
	return event
}

func (l *Logger) started(ctx context.Context, event *Event) {
	l.logger(ctx).DebugContext(ctx, "operation started",
		"event_id", event.ID.String(),
		"api", string(event.API),
		"correlation_id", event.CorrelationID,
	)
}

func (l *Logger) Stop(ctx context.Context, event *Event, err error) {
	attrs := []any{
		"event_id", event.ID.String(),
		"api", string(event.API),
		"correlation_id", event.CorrelationID,
		"duration_ms", event.Duration().Milliseconds(),
	}
	if account := event.Account(); account != "" {
		attrs = append(attrs, "account", account)
	}

	if err != nil {
		attrs = append(attrs, "error", slogx.MaskPII(err.Error()))
		l.logger(ctx).InfoContext(ctx, "operation failed", attrs...)
		return
	}
	l.logger(ctx).InfoContext(ctx, "operation completed", attrs...)
}
