package errors

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned without calling the guarded function while the circuit is open.
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per dependency: 0 closed, 1 open, 2 half-open",
		},
		[]string{"name"},
	)
	breakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"name", "from", "to"},
	)
)

// BreakerSettings tunes a CircuitBreaker. The circuit opens once at least MinRequests calls
// were counted and FailureRatio of them failed.
type BreakerSettings struct {
	Name             string
	FailureRatio     float64
	MinRequests      int
	OpenTimeout      time.Duration
	HalfOpenRequests int
	// IsFailure reports whether an error counts against the dependency. Errors it rejects
	// are returned to the caller but leave the counters untouched. Nil counts every error.
	IsFailure func(error) bool
}

// DefaultBreakerSettings returns the settings used for a dependency called name.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:             name,
		FailureRatio:     0.5,
		MinRequests:      10,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for OpenTimeout, then lets
// HalfOpenRequests calls through to decide whether it recovered.
type CircuitBreaker struct {
	settings BreakerSettings
	log      *slog.Logger

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	inFlight        int
	lastFailureTime time.Time
	now             func() time.Time
}

func NewCircuitBreaker(settings BreakerSettings, log *slog.Logger) *CircuitBreaker {
	defaults := DefaultBreakerSettings(settings.Name)
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = defaults.FailureRatio
	}
	if settings.MinRequests <= 0 {
		settings.MinRequests = defaults.MinRequests
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.HalfOpenRequests <= 0 {
		settings.HalfOpenRequests = defaults.HalfOpenRequests
	}
	if log == nil {
		log = slog.Default()
	}

	breakerState.WithLabelValues(settings.Name).Set(float64(StateClosed))

	return &CircuitBreaker{
		settings: settings,
		log:      log,
		state:    StateClosed,
		now:      time.Now,
	}
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureTime) >= cb.settings.OpenTimeout {
			cb.setStateLocked(StateHalfOpen)
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen && cb.requests+cb.inFlight >= cb.settings.HalfOpenRequests {
		cb.mu.Unlock()
		return errHalfOpenTooManyRequests
	}
	cb.inFlight++
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.inFlight--

	switch {
	case callErr != nil && !cb.counts(callErr):
		return callErr
	case callErr != nil:
		cb.failures++
		cb.requests++

		if cb.state == StateHalfOpen {
			cb.setStateLocked(StateOpen)
		} else {
			cb.evaluateState()
		}

		return callErr
	}

	cb.successes++
	cb.requests++

	if cb.state == StateHalfOpen && cb.successes >= cb.settings.HalfOpenRequests {
		cb.setStateLocked(StateClosed)
	}

	return nil
}

func (cb *CircuitBreaker) counts(err error) bool {
	return cb.settings.IsFailure == nil || cb.settings.IsFailure(err)
}

func (cb *CircuitBreaker) evaluateState() {
	if cb.state != StateClosed || cb.requests < cb.settings.MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= cb.settings.FailureRatio {
		cb.setStateLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(to State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
	if to == StateOpen {
		cb.lastFailureTime = cb.now()
	}

	breakerState.WithLabelValues(cb.settings.Name).Set(float64(to))
	breakerTransitionsTotal.WithLabelValues(cb.settings.Name, from.String(), to.String()).Inc()

	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	cb.log.Log(context.Background(), level, "circuit breaker state changed",
		slog.String("name", cb.settings.Name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
