package bot

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
)

// Router dispatches slash commands to their handlers through the middleware chain.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a slash command name.
func (r *Router) RegisterCommand(name string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// Use appends a middleware to the chain. The first registered middleware runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Commands returns the registered command names in sorted order.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route runs the handler registered for the invoked command. Unknown commands are ignored.
func (r *Router) Route(c handlers.Context) error {
	if c == nil {
		return nil
	}

	handler := r.getCommandHandler(c.Command())
	if handler == nil {
		r.log.Warn("no handler for command",
			slog.String("command", c.Command()),
			slog.String("user_id", c.UserID()),
		)
		return nil
	}

	wrapped := r.applyMiddlewares(handler)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) getCommandHandler(name string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
