package ratelimit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Rate limit decisions by backend, scope kind and result.",
	}, []string{"backend", "scope", "result"})

	backendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Redis errors that sent a decision to the in-memory fallback.",
	})
)

func init() {
	prometheus.MustRegister(decisionsTotal, backendErrorsTotal)
}

// AdaptiveLimiter asks Redis first and falls back to the in-memory limiter with half the
// limit while Redis is failing, since each replica then counts on its own.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter combines a shared primary backend with a local fallback.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Allow charges the invocation on the primary backend, or on the fallback when it errors.
func (a *AdaptiveLimiter) Allow(ctx context.Context, scope Scope, rule Rule) (Decision, error) {
	decision, err := a.primary.Allow(ctx, scope, rule)
	if err == nil {
		record("redis", scope, decision)
		return decision, nil
	}

	backendErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory",
		slog.String("key", scope.Key()),
		slog.Any("error", err),
	)

	strict := rule
	strict.Limit = rule.Limit / 2
	if strict.Limit <= 0 {
		strict.Limit = 1
	}

	decision, err = a.fallback.Allow(ctx, scope, strict)
	if err != nil {
		return decision, err
	}
	record("fallback", scope, decision)
	return decision, nil
}

func record(backend string, scope Scope, decision Decision) {
	result := "allowed"
	if !decision.Allowed {
		result = "refused"
	}
	decisionsTotal.WithLabelValues(backend, scope.kind(), result).Inc()
}
