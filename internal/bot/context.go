package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/wallet"
	"github.com/Proton-105/arbor-bot/pkg/logger"
)

type ackState int

const (
	ackNone ackState = iota
	ackDeferred
	ackResponded
)

// responder tracks whether the interaction token has been used for the initial response.
type responder struct {
	session     Session
	interaction *discordgo.Interaction

	mu    sync.Mutex
	state ackState
}

func (r *responder) replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != ackNone
}

// reply answers the interaction, fills in a deferred response or sends a follow-up.
func (r *responder) reply(content string, flags discordgo.MessageFlags) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == ackNone:
		err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
		})
		if err != nil {
			return fmt.Errorf("respond to interaction: %w", err)
		}
	case r.state == ackDeferred && flags == 0:
		if _, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
			return fmt.Errorf("edit deferred response: %w", err)
		}
	default:
		if _, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{Content: content, Flags: flags}); err != nil {
			return fmt.Errorf("send follow-up: %w", err)
		}
	}

	r.state = ackResponded
	return nil
}

// deferReply shows the "thinking" state while nothing has been answered yet.
func (r *responder) deferReply() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != ackNone {
		return nil
	}
	if err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return fmt.Errorf("defer interaction: %w", err)
	}

	r.state = ackDeferred
	return nil
}

// respondWith posts content as the interaction response and returns the message. ok is false
// once the response has already been used, in which case the caller posts to the channel.
func (r *responder) respondWith(content string, components []discordgo.MessageComponent) (*discordgo.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == ackResponded {
		return nil, false, nil
	}

	if r.state == ackNone {
		if err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			return nil, true, fmt.Errorf("defer interaction: %w", err)
		}
		r.state = ackDeferred
	}

	edit := &discordgo.WebhookEdit{Content: &content}
	if components != nil {
		edit.Components = &components
	}
	msg, err := r.session.InteractionResponseEdit(r.interaction, edit)
	if err != nil {
		return nil, true, fmt.Errorf("edit deferred response: %w", err)
	}

	r.state = ackResponded
	return msg, true, nil
}

// interactionContext implements handlers.Context for an application command interaction.
type interactionContext struct {
	responder *responder
	opener    *conversations
	user      *discordgo.User
	data      discordgo.ApplicationCommandInteractionData

	mu   sync.Mutex
	ctx  context.Context
	conv *dmConversation
}

var _ handlers.Context = (*interactionContext)(nil)

func newInteractionContext(ctx context.Context, session Session, opener *conversations, i *discordgo.Interaction) *interactionContext {
	user := interactionUser(i)
	if user == nil {
		user = &discordgo.User{}
	}

	return &interactionContext{
		responder: &responder{session: session, interaction: i},
		opener:    opener,
		user:      user,
		data:      i.ApplicationCommandData(),
		ctx:       logger.WithCorrelationID(ctx, i.ID),
	}
}

func (c *interactionContext) Context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *interactionContext) SetContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

func (c *interactionContext) InteractionID() string { return c.responder.interaction.ID }
func (c *interactionContext) UserID() string        { return c.user.ID }
func (c *interactionContext) Command() string       { return c.data.Name }
func (c *interactionContext) InDM() bool            { return c.responder.interaction.GuildID == "" }

func (c *interactionContext) Locale() string {
	return string(c.responder.interaction.Locale)
}

func (c *interactionContext) Option(name string) string {
	for _, opt := range c.data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func (c *interactionContext) Replied() bool {
	return c.responder.replied()
}

func (c *interactionContext) Reply(content string) error {
	return c.responder.reply(content, 0)
}

func (c *interactionContext) ReplyEphemeral(content string) error {
	return c.responder.reply(content, discordgo.MessageFlagsEphemeral)
}

func (c *interactionContext) OpenConversation() (wallet.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conv != nil {
		return c.conv, nil
	}

	conv, err := c.opener.open(c)
	if err != nil {
		return nil, err
	}
	c.conv = conv
	return conv, nil
}

func (c *interactionContext) Conversation() wallet.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conv == nil {
		return nil
	}
	return c.conv
}
