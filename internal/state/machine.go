package state

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
	// ErrConversationActive indicates that the user already has a command waiting on them.
	ErrConversationActive = errors.New("conversation already in progress")
)

const contextKeyCommand = "command"

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	// Begin starts a conversation for command, failing with ErrConversationActive while another one runs.
	Begin(ctx context.Context, userID, command string) error
	GetState(ctx context.Context, userID string) (*UserState, error)
	TransitionTo(ctx context.Context, userID string, newState State) error
	ClearState(ctx context.Context, userID string) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// machine is a concrete implementation of StateMachine backed by Storage and a per-user Locker.
type machine struct {
	storage Storage
	locker  Locker
	log     *slog.Logger
}

// NewStateMachine creates a FSM controller using the provided storage backend and locker.
// A nil locker falls back to an in-process lock.
func NewStateMachine(storage Storage, locker Locker, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}

	return &machine{
		storage: storage,
		locker:  locker,
		log:     log,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, userID string) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

// GetAllStates returns every persisted user state.
func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// Begin moves an inactive user into StateAwaitingPrivateChannel under the user lock.
func (m *machine) Begin(ctx context.Context, userID, command string) error {
	if err := m.locker.Lock(ctx, userID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, userID)

	current, err := m.currentState(ctx, userID)
	if err != nil {
		return err
	}

	if current.CurrentState.Active() {
		m.log.Info("conversation already active",
			slog.String("user_id", userID),
			slog.String("state", string(current.CurrentState)),
		)
		return ErrConversationActive
	}

	transitionRecorder(string(StateIdle), string(StateAwaitingPrivateChannel))

	return m.saveState(ctx, userID, StateAwaitingPrivateChannel, map[string]interface{}{
		contextKeyCommand: command,
	})
}

// TransitionTo changes the state if the transition is allowed, guarded by a lock.
func (m *machine) TransitionTo(ctx context.Context, userID string, newState State) error {
	if err := m.locker.Lock(ctx, userID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, userID)

	current, err := m.currentState(ctx, userID)
	if err != nil {
		return err
	}

	if !IsTransitionAllowed(current.CurrentState, newState) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", current.CurrentState, "to", newState)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current.CurrentState), string(newState))

	return m.saveState(ctx, userID, newState, current.Context)
}

// ClearState removes the stored state via the backing storage while holding the lock.
func (m *machine) ClearState(ctx context.Context, userID string) error {
	if err := m.locker.Lock(ctx, userID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, userID)

	return m.storage.ClearState(ctx, userID)
}

func (m *machine) currentState(ctx context.Context, userID string) (*UserState, error) {
	stored, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return &UserState{UserID: userID, CurrentState: StateIdle}, nil
		}
		return nil, err
	}
	if stored == nil {
		return &UserState{UserID: userID, CurrentState: StateIdle}, nil
	}

	return stored, nil
}

func (m *machine) saveState(ctx context.Context, userID string, state State, contextData map[string]interface{}) error {
	userState := &UserState{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	}

	return m.storage.SetState(ctx, userID, userState)
}

// Command returns the command recorded by Begin, if any.
func (s *UserState) Command() string {
	if s == nil || s.Context == nil {
		return ""
	}
	command, _ := s.Context[contextKeyCommand].(string)
	return command
}
