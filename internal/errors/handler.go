package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/pkg/logger"
	"github.com/Proton-105/arbor-bot/pkg/metrics"
)

// Handler logs application errors and picks the catalog key of the text shown to the user.
// High and critical errors are logged at error level, which is what the logger forwards to Sentry.
type Handler struct {
	log *slog.Logger
}

func NewHandler(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// Handle records err and returns the i18n key of the message for the user.
func (h *Handler) Handle(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		attrs := []slog.Attr{
			slog.String("code", appErr.Code),
			slog.String("message", appErr.Message),
			slog.String("severity", string(appErr.Severity)),
		}
		if cause := appErr.Unwrap(); cause != nil {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			attrs = append(attrs, slog.String("correlation_id", correlationID))
		}

		metrics.RecordError(appErr.Code, string(appErr.Severity))
		log.LogAttrs(ctx, levelFor(appErr.Severity), "application error", attrs...)

		if appErr.MessageKey == "" {
			return i18n.KeyError
		}
		return appErr.MessageKey
	}

	attrs := []slog.Attr{
		slog.String("message", err.Error()),
		slog.String("severity", string(SeverityHigh)),
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	metrics.RecordError("unknown", string(SeverityHigh))
	log.LogAttrs(ctx, slog.LevelError, "unknown error", attrs...)

	return i18n.KeyError
}

func levelFor(severity Severity) slog.Level {
	switch severity {
	case SeverityHigh, SeverityCritical:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
