package bot

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Waiter hands direct messages and component clicks to the conversation waiting for them.
// Message waits are keyed by DM channel id and component waits by message id. Only the
// conversation's user is delivered; everything else is dropped.
type Waiter struct {
	mu         sync.Mutex
	messages   map[string]*subscription[string]
	components map[string]*subscription[*discordgo.Interaction]
	log        *slog.Logger
}

type subscription[T any] struct {
	userID string
	ch     chan T
}

// NewWaiter creates an empty registry.
func NewWaiter(log *slog.Logger) *Waiter {
	if log == nil {
		log = slog.Default()
	}

	return &Waiter{
		messages:   make(map[string]*subscription[string]),
		components: make(map[string]*subscription[*discordgo.Interaction]),
		log:        log,
	}
}

// Messages subscribes to the messages userID writes in channelID. cancel must be called once
// the conversation stops listening.
func (w *Waiter) Messages(channelID, userID string) (<-chan string, func()) {
	sub := &subscription[string]{userID: userID, ch: make(chan string, 1)}

	w.mu.Lock()
	w.messages[channelID] = sub
	w.mu.Unlock()

	return sub.ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.messages[channelID] == sub {
			delete(w.messages, channelID)
		}
	}
}

// Components subscribes to the clicks userID makes on the components of messageID.
func (w *Waiter) Components(messageID, userID string) (<-chan *discordgo.Interaction, func()) {
	sub := &subscription[*discordgo.Interaction]{userID: userID, ch: make(chan *discordgo.Interaction, 1)}

	w.mu.Lock()
	w.components[messageID] = sub
	w.mu.Unlock()

	return sub.ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.components[messageID] == sub {
			delete(w.components, messageID)
		}
	}
}

// DeliverMessage reports whether a conversation accepted the message.
func (w *Waiter) DeliverMessage(channelID, authorID, content string) bool {
	w.mu.Lock()
	sub := w.messages[channelID]
	w.mu.Unlock()

	if sub == nil || sub.userID != authorID {
		return false
	}
	return offer(sub.ch, content)
}

// DeliverComponent reports whether a conversation accepted the component interaction.
func (w *Waiter) DeliverComponent(i *discordgo.Interaction) bool {
	if i == nil || i.Message == nil {
		return false
	}
	user := interactionUser(i)
	if user == nil {
		return false
	}

	w.mu.Lock()
	sub := w.components[i.Message.ID]
	w.mu.Unlock()

	if sub == nil || sub.userID != user.ID {
		w.log.Debug("component interaction without waiter",
			slog.String("message_id", i.Message.ID),
			slog.String("user_id", user.ID),
		)
		return false
	}
	return offer(sub.ch, i)
}

// Pending returns the number of active subscriptions.
func (w *Waiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages) + len(w.components)
}

// offer never blocks the gateway goroutine; a value is dropped while the previous one is unread.
func offer[T any](ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
