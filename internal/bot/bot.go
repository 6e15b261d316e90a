// Package bot connects the Discord gateway to the wallet command handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/pkg/config"
)

const listeningTo = "the Arbor Wallet"

// gateway is the part of the discordgo session that manages the connection.
type gateway interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Bot wraps the discordgo session with the router and the conversation waiter.
type Bot struct {
	session *discordgo.Session
	gateway gateway
	self    func() *discordgo.User
	api     Session
	cfg     config.DiscordConfig
	router  *Router
	waiter  *Waiter
	convs   *conversations
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
	removers []func()
}

// New builds a Discord bot instance configured according to the application settings.
func New(cfg config.Config, router *Router, translations *i18n.Manager, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	session, err := discordgo.New("Bot " + cfg.Discord.APIToken)
	if err != nil {
		return nil, fmt.Errorf("initialize discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages

	return newBot(session, session, cfg, router, translations, log), nil
}

func newBot(session *discordgo.Session, api Session, cfg config.Config, router *Router, translations *i18n.Manager, log *slog.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	waiter := NewWaiter(log)

	b := &Bot{
		session: session,
		api:     api,
		cfg:     cfg.Discord,
		router:  router,
		waiter:  waiter,
		convs: &conversations{
			session:      api,
			waiter:       waiter,
			translations: translations,
			timeout:      cfg.Conversation.Timeout,
			log:          log,
		},
		log:    log.With(slog.String("component", "discord")),
		ctx:    ctx,
		cancel: cancel,
	}
	if session != nil {
		b.gateway = session
		b.self = func() *discordgo.User { return session.State.User }
	}
	return b
}

// Start connects to the gateway and registers the slash commands. The gateway is closed
// again when the commands cannot be registered.
func (b *Bot) Start() error {
	if b.gateway == nil {
		return errors.New("discord session is not initialized")
	}

	b.mu.Lock()
	b.removers = append(b.removers,
		b.gateway.AddHandler(b.onReady),
		b.gateway.AddHandler(b.onInteraction),
		b.gateway.AddHandler(b.onMessage),
	)
	b.mu.Unlock()

	if err := b.gateway.Open(); err != nil {
		b.removeHandlers()
		return fmt.Errorf("open discord gateway: %w", err)
	}

	self := b.self()
	commands, err := b.gateway.ApplicationCommandBulkOverwrite(self.ID, b.cfg.GuildID, Commands())
	if err != nil {
		b.removeHandlers()
		return errors.Join(fmt.Errorf("register slash commands: %w", err), b.gateway.Close())
	}

	b.log.Info("discord bot started",
		slog.String("user", self.Username),
		slog.String("guild_id", b.cfg.GuildID),
		slog.Int("commands", len(commands)),
	)
	return nil
}

// Stop ends running conversations, waits for their handlers and closes the gateway.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	b.removeHandlers()
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("waiting for running commands: %w", ctx.Err())
	}

	b.log.Info("stopping discord bot...")
	if b.gateway == nil {
		return waitErr
	}
	return errors.Join(waitErr, b.gateway.Close())
}

func (b *Bot) removeHandlers() {
	b.mu.Lock()
	removers := b.removers
	b.removers = nil
	b.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
}

// HealthCheck reports whether the gateway connection is up.
func (b *Bot) HealthCheck(context.Context) error {
	if b.session == nil {
		return errors.New("discord session is not initialized")
	}

	b.session.RLock()
	ready := b.session.DataReady
	b.session.RUnlock()

	if !ready {
		return errors.New("discord gateway is not connected")
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	if err := s.UpdateListeningStatus(listeningTo); err != nil {
		b.log.Warn("failed to set presence", slog.Any("error", err))
	}
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(i.Interaction)
}

func (b *Bot) handleInteraction(i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		if b.waiter.DeliverComponent(i) {
			return
		}
		// Stale buttons of a finished conversation.
		err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
		if err != nil {
			b.log.Debug("failed to acknowledge stale component", slog.Any("error", err))
		}
	}
}

func (b *Bot) handleCommand(i *discordgo.Interaction) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	c := newInteractionContext(b.ctx, b.api, b.convs, i)
	if err := b.router.Route(c); err != nil {
		b.log.Error("command failed", slog.String("command", c.Command()), slog.Any("error", err))
	}
}

func (b *Bot) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return
	}
	b.waiter.DeliverMessage(m.ChannelID, m.Author.ID, m.Content)
}
