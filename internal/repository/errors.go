package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "github.com/Proton-105/arbor-bot/internal/errors"
)

var (
	// ErrUserNotFound is returned when the Discord user has no row yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrWalletNotFound is returned when no wallet matches the lookup.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletExists is returned when the user already owns a wallet with the same name.
	ErrWalletExists = errors.New("wallet already exists")
)

const uniqueViolation = "23505"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// dbError wraps driver failures into the application taxonomy.
func dbError(op string, err error) error {
	return apperrors.NewDatabaseError(fmt.Errorf("%s: %w", op, err))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
