package bot

import (
	"log/slog"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	errors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/idempotency"
	"github.com/Proton-105/arbor-bot/internal/middleware"
	"github.com/Proton-105/arbor-bot/internal/state"
)

// Dependencies are the components used by the middleware chain. RateLimit and Idempotency
// are optional.
type Dependencies struct {
	FSM          state.StateMachine
	Translations *i18n.Manager
	ErrHandler   *errors.Handler
	RateLimit    *middleware.RateLimitMiddleware
	Idempotency  idempotency.Manager
}

// NewCommandRouter builds the router with the full middleware chain and registers commands.
func NewCommandRouter(commands map[string]handlers.Handler, deps Dependencies, log *slog.Logger) *Router {
	router := NewRouter(log)

	router.Use(RecoveryMiddleware(log, deps.ErrHandler, deps.Translations))
	router.Use(ErrorHandlingMiddleware(log, deps.ErrHandler, deps.Translations))
	router.Use(LoggingMiddleware(log))
	if deps.RateLimit != nil {
		router.Use(deps.RateLimit.Handle)
	}
	router.Use(middleware.Metrics)
	router.Use(middleware.Idempotency(deps.Idempotency, log))
	router.Use(PrivateChannelMiddleware(deps.FSM, deps.Translations, log))

	for name, h := range commands {
		router.RegisterCommand(name, h)
	}

	return router
}
