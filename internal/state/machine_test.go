package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID string) (*UserState, error) {
	args := m.Called(ctx, userID)
	state, _ := args.Get(0).(*UserState)
	return state, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID string, state *UserState) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func TestStateMachine_Begin(t *testing.T) {
	ctx := context.Background()
	userID := "1001"

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		expectedErr error
	}{
		{
			name: "new user",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(state *UserState) bool {
					return state.CurrentState == StateAwaitingPrivateChannel && state.Command() == "send"
				})).Return(nil).Once()
			},
		},
		{
			name: "previous conversation finished",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{UserID: userID, CurrentState: StateReplied}, nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "conversation in progress",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{UserID: userID, CurrentState: StateAwaitingReply}, nil).Once()
			},
			expectedErr: ErrConversationActive,
		},
		{
			name: "storage failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), errStorageFailure).Once()
			},
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, nil, testLogger())
			err := fsm.Begin(ctx, userID, "send")

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_TransitionTo(t *testing.T) {
	ctx := context.Background()
	userID := "42"

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "successful transition keeps command",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{
						UserID:       userID,
						CurrentState: StateAwaitingPrivateChannel,
						Context:      map[string]interface{}{"command": "create"},
					}, nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(state *UserState) bool {
					return state.CurrentState == StateAwaitingReply && state.Command() == "create"
				})).Return(nil).Once()
			},
			newState: StateAwaitingReply,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
			},
			newState:    StatePersisting,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "error is always reachable",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(state *UserState) bool {
					return state.CurrentState == StateError
				})).Return(nil).Once()
			},
			newState: StateError,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, nil, testLogger())
			err := fsm.TransitionTo(ctx, userID, tc.newState)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_GetState(t *testing.T) {
	ctx := context.Background()
	userID := "7"

	ms := &mockStorage{}
	ms.On("GetState", mock.Anything, userID).
		Return(&UserState{UserID: userID, CurrentState: StateCallingRemote}, nil).Once()
	ms.On("GetState", mock.Anything, "8").
		Return((*UserState)(nil), ErrStateNotFound).Once()

	fsm := NewStateMachine(ms, nil, testLogger())

	state, err := fsm.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StateCallingRemote, state.CurrentState)

	state, err = fsm.GetState(ctx, "8")
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)

	ms.AssertExpectations(t)
}

func TestStateMachine_ClearState(t *testing.T) {
	ctx := context.Background()
	userID := "13"

	testCases := []struct {
		name      string
		storeErr  error
		expectErr error
	}{
		{name: "clear state success"},
		{name: "clear state error", storeErr: errStorageFailure, expectErr: errStorageFailure},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			ms.On("ClearState", mock.Anything, userID).Return(tc.storeErr).Once()

			fsm := NewStateMachine(ms, nil, testLogger())
			err := fsm.ClearState(ctx, userID)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_ConcurrentBegin(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	lockers := map[string]Locker{
		"redis": NewRedisLocker(client, testLogger()),
		"local": NewLocalLocker(),
	}

	for name, locker := range lockers {
		locker := locker
		t.Run(name, func(t *testing.T) {
			storage := &slowStorage{MemoryStorage: NewMemoryStorage(), delay: 100 * time.Millisecond}
			fsm := NewStateMachine(storage, locker, testLogger())

			ctx := context.Background()
			userID := "77"

			var wg sync.WaitGroup
			errCh := make(chan error, 2)

			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errCh <- fsm.Begin(ctx, userID, "balance")
				}()
			}

			wg.Wait()
			close(errCh)

			var success, rejected int
			for err := range errCh {
				switch {
				case err == nil:
					success++
				case errors.Is(err, ErrStateLocked), errors.Is(err, ErrConversationActive):
					rejected++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}

			assert.Equal(t, 1, success)
			assert.Equal(t, 1, rejected)

			assert.ErrorIs(t, fsm.Begin(ctx, userID, "wallet"), ErrConversationActive)
			require.NoError(t, fsm.ClearState(ctx, userID))
			assert.NoError(t, fsm.Begin(ctx, userID, "wallet"))
		})
	}
}

func TestStateMachine_TransitionRecorder(t *testing.T) {
	var recorded []string
	RegisterTransitionRecorder(func(from, to string) {
		recorded = append(recorded, from+"->"+to)
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	fsm := NewStateMachine(NewMemoryStorage(), nil, testLogger())
	ctx := context.Background()

	require.NoError(t, fsm.Begin(ctx, "5", "receive"))
	require.NoError(t, fsm.TransitionTo(ctx, "5", StateReplied))

	assert.Equal(t, []string{
		"idle->awaiting_private_channel",
		"awaiting_private_channel->replied",
	}, recorded)
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func (s *slowStorage) SetState(ctx context.Context, userID string, state *UserState) error {
	time.Sleep(s.delay)
	return s.MemoryStorage.SetState(ctx, userID, state)
}
