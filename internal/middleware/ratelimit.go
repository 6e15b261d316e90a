package middleware

import (
	"log/slog"
	"math"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces the per-user and per-command limits.
type RateLimitMiddleware struct {
	guard *ratelimit.Guard
	log   *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(guard *ratelimit.Guard, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		guard: guard,
		log:   log,
	}
}

// Handle rejects the command with a rate limit error once the user exceeds a limit.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c handlers.Context) error {
		wait := m.guard.Check(c.Context(), c.UserID(), c.Command())
		if wait <= 0 {
			return next(c)
		}

		retry := int(math.Ceil(wait.Seconds()))
		if retry < 1 {
			retry = 1
		}
		return apperrors.NewRateLimitError(retry)
	}
}
