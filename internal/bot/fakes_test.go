package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/wallet"
)

const testUser = "1001"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTranslations(t *testing.T) *i18n.Manager {
	t.Helper()
	translations, err := i18n.Load("en")
	require.NoError(t, err)
	return translations
}

// fakeSession records the Discord REST calls.
type fakeSession struct {
	mu sync.Mutex

	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams
	sent      []*discordgo.MessageSend
	messEdits []*discordgo.MessageEdit
	deleted   []string
	respDel   int
	typing    int

	dmErr   error
	sendErr error
	nextID  int
}

var _ Session = (*fakeSession)(nil)

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{ID: "response", ChannelID: "dm-" + testUser}, nil
}

func (f *fakeSession) InteractionResponseDelete(*discordgo.Interaction, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respDel++
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{ID: "followup"}, nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeSession) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, data)
	f.nextID++
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", f.nextID), ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messEdits = append(f.messEdits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) sentContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Content)
	}
	return out
}

func (f *fakeSession) lastResponse() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil
	}
	return f.responses[len(f.responses)-1]
}

func commandInteraction(command string, inDM bool, options map[string]string) *discordgo.Interaction {
	opts := make([]*discordgo.ApplicationCommandInteractionDataOption, 0, len(options))
	for name, value := range options {
		opts = append(opts, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  name,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: value,
		})
	}

	i := &discordgo.Interaction{
		ID:     "interaction-1",
		Type:   discordgo.InteractionApplicationCommand,
		Locale: discordgo.EnglishUS,
		Data:   discordgo.ApplicationCommandInteractionData{Name: command, Options: opts},
	}
	user := &discordgo.User{ID: testUser, Username: "alice"}
	if inDM {
		i.ChannelID = "dm-" + testUser
		i.User = user
	} else {
		i.GuildID = "guild-1"
		i.ChannelID = "general"
		i.Member = &discordgo.Member{User: user}
	}
	return i
}

func componentInteraction(messageID, userID, customID string, values ...string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "component-" + customID,
		Type:    discordgo.InteractionMessageComponent,
		User:    &discordgo.User{ID: userID},
		Message: &discordgo.Message{ID: messageID},
		Data: discordgo.MessageComponentInteractionData{
			CustomID: customID,
			Values:   values,
		},
	}
}

type convHarness struct {
	session *fakeSession
	waiter  *Waiter
	convs   *conversations
}

func newConvHarness(t *testing.T, timeout time.Duration) *convHarness {
	t.Helper()

	session := &fakeSession{}
	waiter := NewWaiter(testLogger())
	return &convHarness{
		session: session,
		waiter:  waiter,
		convs: &conversations{
			session:      session,
			waiter:       waiter,
			translations: testTranslations(t),
			timeout:      timeout,
			log:          testLogger(),
		},
	}
}

func (h *convHarness) context(command string, inDM bool, options map[string]string) *interactionContext {
	return newInteractionContext(context.Background(), h.session, h.convs, commandInteraction(command, inDM, options))
}

// waitPending blocks until n subscriptions are registered with the waiter.
func (h *convHarness) waitPending(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.waiter.Pending() >= n }, time.Second, time.Millisecond)
}

// recordingConversation is a wallet.Conversation that records sent messages.
type recordingConversation struct {
	mu   sync.Mutex
	sent []string
}

var _ wallet.Conversation = (*recordingConversation)(nil)

func (r *recordingConversation) Locale() string              { return "en-US" }
func (r *recordingConversation) Defer(context.Context) error { return nil }

func (r *recordingConversation) Send(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, content)
	return nil
}

func (r *recordingConversation) Ask(context.Context, string) (string, error) {
	return "", wallet.ErrTimeout
}

func (r *recordingConversation) ShowSecret(ctx context.Context, content string) error {
	return r.Send(ctx, content)
}

func (r *recordingConversation) Choose(context.Context, string, []wallet.Choice) (string, error) {
	return "", wallet.ErrTimeout
}

func (r *recordingConversation) Paginate(ctx context.Context, pages []string) error {
	return r.Send(ctx, pages[0])
}

func (r *recordingConversation) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}
