package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/Proton-105/arbor-bot/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// EnsureUser creates the user row when missing; calling it twice is harmless.
	EnsureUser(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// SelectWallet points the user at one of their own wallets.
	SelectWallet(ctx context.Context, userID string, walletID int64) error
}

// execer is the part of *sql.DB and *sql.Tx used by ensureUser.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const ensureUserQuery = `
		INSERT INTO users (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// EnsureUser inserts the user if the row does not exist yet.
func (r *userRepository) EnsureUser(ctx context.Context, id string) error {
	return ensureUser(ctx, r.db, r.log, id)
}

func ensureUser(ctx context.Context, db execer, log *slog.Logger, id string) error {
	if _, err := db.ExecContext(ctx, ensureUserQuery, id); err != nil {
		log.Warn("failed to ensure user", slog.String("user_id", id), slog.Any("error", err))
		return dbError("insert user", err)
	}

	return nil
}

// FindByID retrieves a user by Discord identifier.
func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, wallet_id, created_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.WalletID,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		r.log.Warn("failed to fetch user", slog.String("user_id", id), slog.Any("error", err))
		return nil, dbError("select user", err)
	}

	return &user, nil
}

// SelectWallet updates the selected wallet; the wallet must belong to the user.
func (r *userRepository) SelectWallet(ctx context.Context, userID string, walletID int64) error {
	const query = `
		UPDATE users
		SET wallet_id = $2
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM wallets WHERE id = $2 AND user_id = $1)
	`

	res, err := r.db.ExecContext(ctx, query, userID, walletID)
	if err != nil {
		r.log.Warn("failed to select wallet", slog.String("user_id", userID), slog.Int64("wallet_id", walletID), slog.Any("error", err))
		return dbError("update selected wallet", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return dbError("update selected wallet", err)
	}
	if affected != 1 {
		return ErrWalletNotFound
	}

	return nil
}
