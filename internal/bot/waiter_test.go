package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestWaiter_Messages(t *testing.T) {
	w := NewWaiter(testLogger())

	ch, cancel := w.Messages("dm-1", "1")
	assert.Equal(t, 1, w.Pending())

	assert.False(t, w.DeliverMessage("dm-1", "2", "not you"))
	assert.False(t, w.DeliverMessage("dm-other", "1", "wrong channel"))
	assert.True(t, w.DeliverMessage("dm-1", "1", "hello"))
	assert.False(t, w.DeliverMessage("dm-1", "1", "dropped while unread"))

	assert.Equal(t, "hello", <-ch)

	cancel()
	assert.Equal(t, 0, w.Pending())
	assert.False(t, w.DeliverMessage("dm-1", "1", "late"))
}

func TestWaiter_CancelKeepsNewerSubscription(t *testing.T) {
	w := NewWaiter(testLogger())

	_, cancelOld := w.Messages("dm-1", "1")
	ch, cancelNew := w.Messages("dm-1", "1")
	defer cancelNew()

	cancelOld()
	assert.True(t, w.DeliverMessage("dm-1", "1", "still listening"))
	assert.Equal(t, "still listening", <-ch)
}

func TestWaiter_Components(t *testing.T) {
	w := NewWaiter(testLogger())

	ch, cancel := w.Components("msg-1", "1")
	defer cancel()

	assert.False(t, w.DeliverComponent(nil))
	assert.False(t, w.DeliverComponent(&discordgo.Interaction{User: &discordgo.User{ID: "1"}}))
	assert.False(t, w.DeliverComponent(componentInteraction("msg-1", "2", "delete")))
	assert.False(t, w.DeliverComponent(componentInteraction("msg-2", "1", "delete")))

	click := componentInteraction("msg-1", "1", "delete")
	assert.True(t, w.DeliverComponent(click))
	assert.Same(t, click, <-ch)
}

func TestWaiter_GuildMemberClick(t *testing.T) {
	w := NewWaiter(testLogger())

	ch, cancel := w.Components("msg-1", "1")
	defer cancel()

	click := &discordgo.Interaction{
		Member:  &discordgo.Member{User: &discordgo.User{ID: "1"}},
		Message: &discordgo.Message{ID: "msg-1"},
	}
	assert.True(t, w.DeliverComponent(click))
	assert.Same(t, click, <-ch)
}
