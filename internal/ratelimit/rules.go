package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/arbor-bot/pkg/config"
)

// Rules holds the parsed limits: one budget shared by all commands of a user, and optional
// tighter budgets for single commands such as send, create and recover.
type Rules struct {
	enabled   bool
	whitelist map[string]struct{}
	perUser   Rule
	commands  map[string]Rule
}

// Charge is one budget an invocation is counted against.
type Charge struct {
	Scope Scope
	Rule  Rule
}

// NewRules parses the configured limits. A rule with a zero limit is disabled.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	r := &Rules{
		enabled:   cfg.Enabled,
		whitelist: make(map[string]struct{}, len(cfg.Whitelist)),
		commands:  make(map[string]Rule, len(cfg.Commands)),
	}
	for _, id := range cfg.Whitelist {
		r.whitelist[id] = struct{}{}
	}

	var err error
	if r.perUser, err = parseRule(cfg.PerUser); err != nil {
		return nil, fmt.Errorf("rate_limit.per_user: %w", err)
	}
	for command, raw := range cfg.Commands {
		rule, err := parseRule(raw)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.commands.%s: %w", command, err)
		}
		if rule.Limit > 0 {
			r.commands[command] = rule
		}
	}

	return r, nil
}

// For lists the budgets charged when userID runs command, the per-user budget first.
// Disabled throttling and whitelisted users yield none.
func (r *Rules) For(userID, command string) []Charge {
	if r == nil || !r.enabled {
		return nil
	}
	if _, ok := r.whitelist[userID]; ok {
		return nil
	}

	var charges []Charge
	if r.perUser.Limit > 0 {
		charges = append(charges, Charge{Scope: UserScope(userID), Rule: r.perUser})
	}
	if rule, ok := r.commands[command]; ok {
		charges = append(charges, Charge{Scope: CommandScope(userID, command), Rule: rule})
	}
	return charges
}

func parseRule(raw config.RateLimitRule) (Rule, error) {
	if raw.Limit < 0 {
		return Rule{}, fmt.Errorf("negative limit %d", raw.Limit)
	}
	if raw.Limit == 0 {
		return Rule{}, nil
	}

	window, err := time.ParseDuration(raw.Window)
	if err != nil {
		return Rule{}, fmt.Errorf("window: %w", err)
	}
	if window <= 0 {
		return Rule{}, fmt.Errorf("window must be positive, got %s", raw.Window)
	}
	return Rule{Limit: raw.Limit, Window: window}, nil
}

// Guard charges command invocations against the rules that apply to them.
type Guard struct {
	limiter Limiter
	rules   *Rules
	log     *slog.Logger
}

// NewGuard binds a limiter to the configured rules.
func NewGuard(limiter Limiter, rules *Rules, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{limiter: limiter, rules: rules, log: log}
}

// Check charges one invocation of command by userID. It returns how long the user has to wait
// when a budget is exhausted, or zero when the command may run. The per-command budget is not
// charged once the per-user budget refuses. Backend failures let the command through.
func (g *Guard) Check(ctx context.Context, userID, command string) time.Duration {
	if g == nil || g.limiter == nil {
		return 0
	}

	for _, charge := range g.rules.For(userID, command) {
		decision, err := g.limiter.Allow(ctx, charge.Scope, charge.Rule)
		if err != nil {
			g.log.Warn("rate limiter unavailable", slog.String("key", charge.Scope.Key()), slog.Any("error", err))
			continue
		}
		if !decision.Allowed {
			g.log.Warn("rate limit exceeded",
				slog.String("user_id", userID),
				slog.String("command", command),
				slog.String("key", charge.Scope.Key()),
				slog.Duration("retry_after", decision.RetryAfter),
			)
			return decision.RetryAfter
		}
	}
	return 0
}
