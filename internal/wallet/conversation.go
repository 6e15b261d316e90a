package wallet

import (
	"context"
	"errors"
)

// ErrTimeout is returned by Conversation methods when the user did not answer in time.
var ErrTimeout = errors.New("conversation timed out")

// Choice is one option of a selection prompt.
type Choice struct {
	Label       string
	Value       string
	Description string
	Default     bool
}

// Conversation is the private channel with the user who invoked a command.
type Conversation interface {
	// Locale is the user's client locale, e.g. "en-US".
	Locale() string
	// Defer acknowledges the command before a slow call.
	Defer(ctx context.Context) error
	Send(ctx context.Context, content string) error
	// Ask sends prompt and waits for the user's next message.
	Ask(ctx context.Context, prompt string) (string, error)
	// ShowSecret sends content with a Delete button and removes the message once the user
	// clicks it or the wait expires.
	ShowSecret(ctx context.Context, content string) error
	// Choose shows a selection menu and returns the chosen value.
	Choose(ctx context.Context, prompt string, choices []Choice) (string, error)
	// Paginate shows pages[0] with navigation buttons until the wait expires.
	Paginate(ctx context.Context, pages []string) error
}
