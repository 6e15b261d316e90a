package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/idempotency"
)

// interactionTTL is how long a handled interaction id is remembered.
const interactionTTL = 24 * time.Hour

// Idempotency ensures handlers execute at most once per interaction id, which matters when
// several bot instances share a token or the gateway redelivers an event.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			if c.InteractionID() == "" {
				return next(c)
			}

			key := idempotency.GenerateKey("interaction", c.InteractionID())
			ran := false

			result, err := manager.Execute(c.Context(), key, interactionTTL, func(context.Context) error {
				ran = true
				return next(c)
			})
			if ran {
				return err
			}

			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				log.Info("interaction already being handled", slog.String("interaction_id", c.InteractionID()))
				return nil
			case err != nil:
				log.Warn("idempotency store unavailable, handling interaction anyway",
					slog.String("interaction_id", c.InteractionID()),
					slog.Any("error", err),
				)
				return next(c)
			}

			if result != nil && result.Duplicate {
				log.Info("duplicate interaction skipped",
					slog.String("interaction_id", c.InteractionID()),
					slog.String("status", result.Status),
				)
			}
			return nil
		}
	}
}
