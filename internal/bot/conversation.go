package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Proton-105/arbor-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/wallet"
)

// Component actions used in custom ids.
const (
	actionDelete = "delete"
	actionSelect = "select"
	actionPage   = "page"
)

// conversations opens direct message conversations for interactions.
type conversations struct {
	session      Session
	waiter       *Waiter
	translations *i18n.Manager
	timeout      time.Duration
	log          *slog.Logger
}

func (o *conversations) open(c *interactionContext) (*dmConversation, error) {
	conv := &dmConversation{
		session: o.session,
		waiter:  o.waiter,
		userID:  c.UserID(),
		locale:  c.Locale(),
		tr:      o.translations.Translator(c.Locale()),
		timeout: o.timeout,
		log:     o.log.With(slog.String("user_id", c.UserID()), slog.String("command", c.Command())),
	}

	if c.InDM() {
		conv.channelID = c.responder.interaction.ChannelID
		conv.responder = c.responder
		return conv, nil
	}

	channel, err := o.session.UserChannelCreate(c.UserID())
	if err != nil {
		return nil, fmt.Errorf("open direct message channel: %w", err)
	}
	conv.channelID = channel.ID
	return conv, nil
}

// dmConversation implements wallet.Conversation over a Discord DM channel. When the command
// was invoked inside the DM, the first message answers the interaction itself.
type dmConversation struct {
	session   Session
	waiter    *Waiter
	responder *responder
	channelID string
	userID    string
	locale    string
	tr        i18n.Translator
	timeout   time.Duration
	log       *slog.Logger

	delivered  bool
	responseID string
}

var _ wallet.Conversation = (*dmConversation)(nil)

func (c *dmConversation) Locale() string {
	return c.locale
}

func (c *dmConversation) Defer(context.Context) error {
	if c.responder != nil {
		return c.responder.deferReply()
	}
	if err := c.session.ChannelTyping(c.channelID); err != nil {
		c.log.Debug("typing indicator failed", slog.Any("error", err))
	}
	return nil
}

func (c *dmConversation) Send(_ context.Context, content string) error {
	_, err := c.post(content, nil)
	return err
}

func (c *dmConversation) Ask(ctx context.Context, prompt string) (string, error) {
	answers, cancel := c.waiter.Messages(c.channelID, c.userID)
	defer cancel()

	if _, err := c.post(prompt, nil); err != nil {
		return "", err
	}

	return await(ctx, answers, c.timeout)
}

func (c *dmConversation) ShowSecret(ctx context.Context, content string) error {
	rows, err := keyboard.NewBuilder().
		AddButtons(keyboard.Button{
			Label:  c.tr.T(i18n.KeyButtonDelete),
			Action: actionDelete,
			Style:  discordgo.DangerButton,
		}).
		Build()
	if err != nil {
		return err
	}

	msg, err := c.post(content, rows)
	if err != nil {
		return err
	}

	clicks, cancel := c.waiter.Components(msg.ID, c.userID)
	defer cancel()

	click, waitErr := await(ctx, clicks, c.timeout)
	if waitErr == nil {
		c.acknowledge(click)
	}

	if err := c.remove(msg); err != nil {
		c.log.Warn("failed to delete secret message", slog.String("message_id", msg.ID), slog.Any("error", err))
	}

	if waitErr != nil && !errors.Is(waitErr, wallet.ErrTimeout) {
		return waitErr
	}
	return nil
}

func (c *dmConversation) Choose(ctx context.Context, prompt string, choices []wallet.Choice) (string, error) {
	rows, err := c.selectRows(choices, "", false)
	if err != nil {
		return "", err
	}

	msg, err := c.post(prompt, rows)
	if err != nil {
		return "", err
	}

	clicks, cancel := c.waiter.Components(msg.ID, c.userID)
	defer cancel()

	for {
		click, err := await(ctx, clicks, c.timeout)
		if err != nil {
			if closed, buildErr := c.selectRows(choices, "", true); buildErr == nil {
				if editErr := c.edit(msg, prompt, closed); editErr != nil {
					c.log.Warn("failed to disable select menu", slog.Any("error", editErr))
				}
			}
			return "", err
		}

		values := click.MessageComponentData().Values
		if len(values) == 0 {
			c.acknowledge(click)
			continue
		}

		chosen := values[0]
		closed, err := c.selectRows(choices, chosen, true)
		if err != nil {
			return "", err
		}
		if err := c.update(click, prompt, closed); err != nil {
			c.log.Warn("failed to disable select menu", slog.Any("error", err))
		}
		return chosen, nil
	}
}

func (c *dmConversation) Paginate(ctx context.Context, pages []string) error {
	switch len(pages) {
	case 0:
		return nil
	case 1:
		_, err := c.post(pages[0], nil)
		return err
	}

	page := 0
	rows, err := c.pageRows(page, len(pages))
	if err != nil {
		return err
	}

	msg, err := c.post(pages[page], rows)
	if err != nil {
		return err
	}

	clicks, cancel := c.waiter.Components(msg.ID, c.userID)
	defer cancel()

	for {
		click, err := await(ctx, clicks, c.timeout)
		if errors.Is(err, wallet.ErrTimeout) {
			if editErr := c.edit(msg, pages[page], []discordgo.MessageComponent{}); editErr != nil {
				c.log.Warn("failed to remove pagination buttons", slog.Any("error", editErr))
			}
			return nil
		}
		if err != nil {
			return err
		}

		if _, data, decodeErr := keyboard.DecodeCustomID(click.MessageComponentData().CustomID); decodeErr == nil {
			if next, ok := keyboard.PageFromData(data, len(pages)); ok {
				page = next
			}
		}

		rows, err := c.pageRows(page, len(pages))
		if err != nil {
			return err
		}
		if err := c.update(click, pages[page], rows); err != nil {
			c.log.Warn("failed to change page", slog.Int("page", page), slog.Any("error", err))
		}
	}
}

func (c *dmConversation) selectRows(choices []wallet.Choice, chosen string, disabled bool) ([]discordgo.MessageComponent, error) {
	options := make([]discordgo.SelectMenuOption, 0, len(choices))
	for _, choice := range choices {
		isDefault := choice.Default
		if chosen != "" {
			isDefault = choice.Value == chosen
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       choice.Label,
			Value:       choice.Value,
			Description: choice.Description,
			Default:     isDefault,
		})
	}

	return keyboard.NewBuilder().
		AddSelect(actionSelect, c.tr.T(i18n.KeySelectPlaceholder), options, disabled).
		Build()
}

func (c *dmConversation) pageRows(page, total int) ([]discordgo.MessageComponent, error) {
	return keyboard.NewBuilder().
		AddButtons(keyboard.PaginationButtons(c.tr, actionPage, page, total)...).
		Build()
}

// post sends a new message to the user.
func (c *dmConversation) post(content string, components []discordgo.MessageComponent) (*discordgo.Message, error) {
	if c.responder != nil {
		msg, ok, err := c.responder.respondWith(content, components)
		if ok {
			if err != nil {
				return nil, err
			}
			if msg == nil {
				msg = &discordgo.Message{ChannelID: c.channelID}
			}
			c.responseID = msg.ID
			c.delivered = true
			return msg, nil
		}
	}

	msg, err := c.session.ChannelMessageSendComplex(c.channelID, &discordgo.MessageSend{
		Content:    content,
		Components: components,
	})
	if err != nil {
		if !c.delivered {
			return nil, apperrors.NewPrivateChannelError(err)
		}
		return nil, fmt.Errorf("send direct message: %w", err)
	}

	c.delivered = true
	return msg, nil
}

func (c *dmConversation) edit(msg *discordgo.Message, content string, components []discordgo.MessageComponent) error {
	if c.responder != nil && msg.ID == c.responseID {
		_, err := c.session.InteractionResponseEdit(c.responder.interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Components: &components,
		})
		return err
	}

	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         msg.ID,
		Channel:    c.channelID,
		Content:    &content,
		Components: &components,
	})
	return err
}

func (c *dmConversation) remove(msg *discordgo.Message) error {
	if c.responder != nil && msg.ID == c.responseID {
		return c.session.InteractionResponseDelete(c.responder.interaction)
	}
	return c.session.ChannelMessageDelete(c.channelID, msg.ID)
}

// update answers a component click by rewriting the message it belongs to.
func (c *dmConversation) update(click *discordgo.Interaction, content string, components []discordgo.MessageComponent) error {
	return c.session.InteractionRespond(click, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}

// acknowledge answers a component click without changing the message.
func (c *dmConversation) acknowledge(click *discordgo.Interaction) {
	err := c.session.InteractionRespond(click, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		c.log.Warn("failed to acknowledge component", slog.Any("error", err))
	}
}

// await returns the next value from ch, wallet.ErrTimeout after timeout, or the context error.
func await[T any](ctx context.Context, ch <-chan T, timeout time.Duration) (T, error) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v, nil
	case <-timer.C:
		return zero, wallet.ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
