// Package handlerstest provides an in-memory handlers.Context for middleware and router tests.
package handlerstest

import (
	"context"
	"sync"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/wallet"
)

// Reply is an answer recorded by Context.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Context records everything a handler does with the interaction.
type Context struct {
	ID      string
	User    string
	Cmd     string
	Lang    string
	DM      bool
	Options map[string]string

	// Conv is returned by OpenConversation unless OpenErr is set.
	Conv    wallet.Conversation
	OpenErr error

	mu      sync.Mutex
	ctx     context.Context
	replies []Reply
	opened  bool
}

var _ handlers.Context = (*Context)(nil)

// New returns a guild invocation of command by user.
func New(user, command string) *Context {
	return &Context{
		ID:      "interaction-" + command,
		User:    user,
		Cmd:     command,
		Lang:    "en-US",
		Options: map[string]string{},
	}
}

func (c *Context) Context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *Context) SetContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

func (c *Context) InteractionID() string { return c.ID }
func (c *Context) UserID() string        { return c.User }
func (c *Context) Command() string       { return c.Cmd }
func (c *Context) Locale() string        { return c.Lang }
func (c *Context) InDM() bool            { return c.DM }

func (c *Context) Option(name string) string {
	return c.Options[name]
}

func (c *Context) Replied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies) > 0
}

func (c *Context) Reply(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Reply{Content: content})
	return nil
}

func (c *Context) ReplyEphemeral(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Reply{Content: content, Ephemeral: true})
	return nil
}

func (c *Context) OpenConversation() (wallet.Conversation, error) {
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = true
	return c.Conv, nil
}

func (c *Context) Conversation() wallet.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened {
		return nil
	}
	return c.Conv
}

// Replies returns the recorded answers in order.
func (c *Context) Replies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reply, len(c.replies))
	copy(out, c.replies)
	return out
}
