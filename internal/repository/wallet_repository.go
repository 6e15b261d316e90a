package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/Proton-105/arbor-bot/internal/domain"
)

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	ExistsByName(ctx context.Context, userID, name string) (bool, error)
	FindByName(ctx context.Context, userID, name string) (*domain.Wallet, error)
	FindByID(ctx context.Context, id int64) (*domain.Wallet, error)
	// FindSelected returns the wallet referenced by the user's selection.
	FindSelected(ctx context.Context, userID string) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Wallet, error)
	// CreateAndSelect stores the wallet and selects it in one transaction, creating the user on first use.
	CreateAndSelect(ctx context.Context, wallet *domain.Wallet) (int64, error)
	Delete(ctx context.Context, id int64) error
}

const walletColumns = `id, user_id, name, address, private_key, public_key, password, created_at`

type walletRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewWalletRepository creates a new SQL-backed wallet repository.
func NewWalletRepository(db *sql.DB, log *slog.Logger) WalletRepository {
	if log == nil {
		log = slog.Default()
	}

	return &walletRepository{
		db:  db,
		log: log,
	}
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Name,
		&w.Address,
		&w.PrivateKey,
		&w.PublicKey,
		&w.Password,
		&w.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *walletRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.Wallet, error) {
	wallet, err := scanWallet(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}

		r.log.Warn("failed to fetch wallet", slog.String("op", op), slog.Any("error", err))
		return nil, dbError(op, err)
	}

	return wallet, nil
}

// ExistsByName reports whether the user owns a wallet named name.
func (r *walletRepository) ExistsByName(ctx context.Context, userID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1 AND name = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, name).Scan(&exists); err != nil {
		r.log.Warn("failed to check wallet name", slog.String("user_id", userID), slog.Any("error", err))
		return false, dbError("check wallet name", err)
	}

	return exists, nil
}

// FindByName looks a wallet up by owner and name.
func (r *walletRepository) FindByName(ctx context.Context, userID, name string) (*domain.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND name = $2`
	return r.findOne(ctx, "select wallet by name", query, userID, name)
}

// FindByID looks a wallet up by primary key.
func (r *walletRepository) FindByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return r.findOne(ctx, "select wallet by id", query, id)
}

// FindSelected resolves users.wallet_id in a single query.
func (r *walletRepository) FindSelected(ctx context.Context, userID string) (*domain.Wallet, error) {
	const query = `
		SELECT w.id, w.user_id, w.name, w.address, w.private_key, w.public_key, w.password, w.created_at
		FROM users u
		JOIN wallets w ON w.id = u.wallet_id
		WHERE u.id = $1
	`
	return r.findOne(ctx, "select selected wallet", query, userID)
}

// ListByUser returns the user's wallets in creation order.
func (r *walletRepository) ListByUser(ctx context.Context, userID string) ([]domain.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.log.Warn("failed to list wallets", slog.String("user_id", userID), slog.Any("error", err))
		return nil, dbError("list wallets", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, dbError("scan wallet", err)
		}
		wallets = append(wallets, *wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("iterate wallets", err)
	}

	return wallets, nil
}

// CreateAndSelect inserts the wallet, then makes it the user's selected wallet.
func (r *walletRepository) CreateAndSelect(ctx context.Context, wallet *domain.Wallet) (int64, error) {
	const insertQuery = `
		INSERT INTO wallets (user_id, name, address, private_key, public_key, password)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	const selectQuery = `UPDATE users SET wallet_id = $2 WHERE id = $1`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, dbError("begin create wallet", err)
	}
	defer rollback(tx)

	if err := ensureUser(ctx, tx, r.log, wallet.UserID); err != nil {
		return 0, err
	}

	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		wallet.UserID,
		wallet.Name,
		wallet.Address,
		wallet.PrivateKey,
		wallet.PublicKey,
		wallet.Password,
	).Scan(&wallet.ID, &wallet.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrWalletExists
		}

		r.log.Warn("failed to insert wallet", slog.String("user_id", wallet.UserID), slog.Any("error", err))
		return 0, dbError("insert wallet", err)
	}

	if _, err := tx.ExecContext(ctx, selectQuery, wallet.UserID, wallet.ID); err != nil {
		r.log.Warn("failed to select new wallet", slog.String("user_id", wallet.UserID), slog.Any("error", err))
		return 0, dbError("select new wallet", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, dbError("commit create wallet", err)
	}

	return wallet.ID, nil
}

// Delete removes exactly one wallet.
func (r *walletRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM wallets WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.log.Warn("failed to delete wallet", slog.Int64("wallet_id", id), slog.Any("error", err))
		return dbError("delete wallet", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return dbError("delete wallet", err)
	}
	if affected != 1 {
		return ErrWalletNotFound
	}

	return nil
}
