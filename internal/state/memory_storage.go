package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps conversation states in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[string]UserState
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{states: make(map[string]UserState)}
}

// GetState returns a copy of the stored state or ErrStateNotFound.
func (s *MemoryStorage) GetState(_ context.Context, userID string) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return &stored, nil
}

// SetState stores a copy of state.
func (s *MemoryStorage) SetState(_ context.Context, userID string, state *UserState) error {
	state.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.states[userID] = *state
	s.mu.Unlock()
	return nil
}

// ClearState forgets the user's state.
func (s *MemoryStorage) ClearState(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
	return nil
}

// GetAllStates returns copies of every stored state.
func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*UserState, 0, len(s.states))
	for _, stored := range s.states {
		copied := stored
		result = append(result, &copied)
	}
	return result, nil
}
