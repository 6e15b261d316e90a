package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/wallet"
	"github.com/Proton-105/arbor-bot/pkg/config"
)

func newTestBot(t *testing.T, router *Router) (*Bot, *fakeSession) {
	t.Helper()

	session := &fakeSession{}
	cfg := config.Config{Conversation: config.ConversationConfig{Timeout: time.Second}}
	return newBot(nil, session, cfg, router, testTranslations(t), testLogger()), session
}

func TestBot_RoutesCommandsWithOptions(t *testing.T) {
	router := NewRouter(testLogger())

	var got handlers.Context
	router.RegisterCommand(wallet.CommandCreate, func(c handlers.Context) error {
		got = c
		return nil
	})

	b, _ := newTestBot(t, router)
	b.handleInteraction(commandInteraction(wallet.CommandCreate, false, map[string]string{"wallet": "main"}))

	require.NotNil(t, got)
	assert.Equal(t, testUser, got.UserID())
	assert.Equal(t, "main", got.Option(handlers.OptionWallet))
	assert.Equal(t, "", got.Option(handlers.OptionAmount))
	assert.Equal(t, "en-US", got.Locale())
	assert.False(t, got.InDM())
	assert.Equal(t, "interaction-1", got.InteractionID())
}

func TestBot_DirectMessagesReachConversation(t *testing.T) {
	b, _ := newTestBot(t, NewRouter(testLogger()))

	ch, cancel := b.waiter.Messages("dm-"+testUser, testUser)
	defer cancel()

	b.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "dm-" + testUser, GuildID: "guild-1", Content: "guild message",
		Author: &discordgo.User{ID: testUser},
	}})
	b.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "dm-" + testUser, Content: "from a bot",
		Author: &discordgo.User{ID: testUser, Bot: true},
	}})
	b.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "dm-" + testUser, Content: "hunter2",
		Author: &discordgo.User{ID: testUser},
	}})

	assert.Equal(t, "hunter2", <-ch)
}

func TestBot_StaleComponentAcknowledged(t *testing.T) {
	b, session := newTestBot(t, NewRouter(testLogger()))

	b.handleInteraction(componentInteraction("old-message", testUser, "page:1"))

	resp := session.lastResponse()
	require.NotNil(t, resp)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, resp.Type)
}

func TestBot_StopCancelsConversations(t *testing.T) {
	router := NewRouter(testLogger())
	started := make(chan struct{})
	var once sync.Once
	router.RegisterCommand(wallet.CommandCreate, func(c handlers.Context) error {
		once.Do(func() { close(started) })
		<-c.Context().Done()
		return c.Context().Err()
	})

	b, _ := newTestBot(t, router)
	done := make(chan struct{})
	go func() {
		b.handleInteraction(commandInteraction(wallet.CommandCreate, true, nil))
		close(done)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Stop(ctx))
	<-done

	// Commands arriving after Stop are dropped.
	b.handleInteraction(commandInteraction(wallet.CommandCreate, true, nil))
}

func TestBot_HealthCheckWithoutSession(t *testing.T) {
	b, _ := newTestBot(t, NewRouter(testLogger()))
	assert.Error(t, b.HealthCheck(context.Background()))
}

type fakeGateway struct {
	handlers   int
	removed    int
	opened     bool
	closed     bool
	openErr    error
	commandErr error
	registered []*discordgo.ApplicationCommand
}

func (g *fakeGateway) AddHandler(interface{}) func() {
	g.handlers++
	return func() { g.removed++ }
}

func (g *fakeGateway) Open() error {
	if g.openErr != nil {
		return g.openErr
	}
	g.opened = true
	return nil
}

func (g *fakeGateway) Close() error {
	g.closed = true
	return nil
}

func (g *fakeGateway) ApplicationCommandBulkOverwrite(_ string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	if g.commandErr != nil {
		return nil, g.commandErr
	}
	g.registered = commands
	return commands, nil
}

func withGateway(b *Bot, gw *fakeGateway) {
	b.gateway = gw
	b.self = func() *discordgo.User {
		return &discordgo.User{ID: "app-1", Username: "arbor"}
	}
}

func TestBot_StartRegistersCommands(t *testing.T) {
	b, _ := newTestBot(t, NewRouter(testLogger()))
	gw := &fakeGateway{}
	withGateway(b, gw)

	require.NoError(t, b.Start())
	assert.True(t, gw.opened)
	assert.False(t, gw.closed)
	assert.Equal(t, 3, gw.handlers)
	assert.Len(t, gw.registered, len(Commands()))

	require.NoError(t, b.Stop(context.Background()))
	assert.True(t, gw.closed)
	assert.Equal(t, 3, gw.removed)
}

func TestBot_StartClosesGatewayWhenRegistrationFails(t *testing.T) {
	b, _ := newTestBot(t, NewRouter(testLogger()))
	gw := &fakeGateway{commandErr: errors.New("missing access")}
	withGateway(b, gw)

	err := b.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, gw.commandErr)
	assert.True(t, gw.opened)
	assert.True(t, gw.closed)
	assert.Equal(t, 3, gw.removed)
}

func TestBot_StartOpenFailure(t *testing.T) {
	b, _ := newTestBot(t, NewRouter(testLogger()))
	gw := &fakeGateway{openErr: errors.New("invalid token")}
	withGateway(b, gw)

	assert.ErrorIs(t, b.Start(), gw.openErr)
	assert.False(t, gw.closed)
	assert.Equal(t, 3, gw.removed)

	bare, _ := newTestBot(t, NewRouter(testLogger()))
	assert.Error(t, bare.Start())
}
