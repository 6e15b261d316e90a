// Package ratelimit throttles slash commands per user and per command.
package ratelimit

import (
	"context"
	"time"
)

// Scope names the counter an invocation is charged to. An empty Command is the budget
// shared by every command of the user.
type Scope struct {
	UserID  string
	Command string
}

// UserScope is the budget shared by all commands of userID.
func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

// CommandScope is the budget of one command for userID.
func CommandScope(userID, command string) Scope {
	return Scope{UserID: userID, Command: command}
}

// Key is the storage key of the scope without the backend prefix.
func (s Scope) Key() string {
	if s.Command == "" {
		return "user:" + s.UserID
	}
	return "cmd:" + s.Command + ":" + s.UserID
}

func (s Scope) kind() string {
	if s.Command == "" {
		return "user"
	}
	return "command"
}

// Rule allows Limit invocations per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of charging one invocation. RetryAfter is set when the invocation
// was refused and tells how long until the oldest counted invocation leaves the window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter charges invocations against sliding windows. Refused invocations are not counted.
type Limiter interface {
	Allow(ctx context.Context, scope Scope, rule Rule) (Decision, error)
}

func refuse(rule Rule, oldest, now time.Time) Decision {
	retry := oldest.Add(rule.Window).Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Decision{RetryAfter: retry}
}
