package state

import "time"

// State represents a conversation state for a single command invocation.
type State string

const (
	// StateIdle indicates that the user has no command in progress.
	StateIdle State = "idle"
	// StateAwaitingPrivateChannel indicates that the bot is opening a direct message channel.
	StateAwaitingPrivateChannel State = "awaiting_private_channel"
	// StateAwaitingReply indicates that the bot is waiting for a direct message, button or menu selection.
	StateAwaitingReply State = "awaiting_reply"
	// StateCallingRemote indicates that the wallet service is being called.
	StateCallingRemote State = "calling_remote"
	// StatePersisting indicates that wallet records are being written.
	StatePersisting State = "persisting"
	// StateReplied indicates that the final answer has been delivered.
	StateReplied State = "replied"
	// StateError indicates that the command failed and the conversation is over.
	StateError State = "error"
)

// Active reports whether the state belongs to a conversation that is still running.
func (s State) Active() bool {
	switch s {
	case StateIdle, StateReplied, StateError, "":
		return false
	default:
		return true
	}
}

// UserState captures the current conversation state for a Discord user.
type UserState struct {
	UserID       string                 `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
