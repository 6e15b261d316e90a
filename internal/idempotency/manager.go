// Package idempotency makes sure an interaction delivered more than once is handled once.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned while another worker holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

const defaultLockTTL = 10 * time.Minute

type Operation func(ctx context.Context) error

type Result struct {
	// Duplicate is set when the key had already been handled and fn was not run.
	Duplicate bool
	Status    string
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	lockTTL time.Duration
	log     *slog.Logger
}

// NewManager returns a Manager backed by store. lockTTL bounds how long a crashed worker can
// hold a key and should outlast the longest conversation.
func NewManager(store Store, lockTTL time.Duration, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &manager{
		store:   store,
		lockTTL: lockTTL,
		log:     log,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return &Result{Duplicate: true, Status: record.Status}, nil
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestInProgress
	}
	defer func() {
		if releaseErr := m.store.ReleaseLock(context.WithoutCancel(ctx), key); releaseErr != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", releaseErr))
		}
	}()

	runErr := fn(ctx)

	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	if err := m.store.Set(context.WithoutCancel(ctx), key, &Record{Status: status}, ttl); err != nil {
		m.log.Error("failed to store idempotency record", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{Status: status}, runErr
}
