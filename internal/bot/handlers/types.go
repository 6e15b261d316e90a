package handlers

import (
	"context"

	"github.com/Proton-105/arbor-bot/internal/wallet"
)

// Context is a single slash command invocation.
type Context interface {
	// Context carries request scoped values such as the correlation id.
	Context() context.Context
	SetContext(ctx context.Context)

	InteractionID() string
	UserID() string
	Command() string
	// Option returns the string value of a command option, or "" when absent.
	Option(name string) string
	Locale() string
	// InDM reports whether the command was invoked inside the user's direct messages.
	InDM() bool

	// Replied reports whether the interaction has already been answered.
	Replied() bool
	// Reply answers the interaction, or sends a follow-up when it was already answered.
	Reply(content string) error
	// ReplyEphemeral answers the interaction visibly to the invoking user only.
	ReplyEphemeral(content string) error

	// OpenConversation opens the private channel with the user. Conversation returns it
	// afterwards and nil before.
	OpenConversation() (wallet.Conversation, error)
	Conversation() wallet.Conversation
}

// Handler processes a slash command.
type Handler func(c Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler
