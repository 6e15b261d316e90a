package domain

import (
	"crypto/subtle"
	"time"
)

// MaxNameLength bounds wallet names and passwords.
const MaxNameLength = 64

// Wallet is a named keypair owned by a user. Keys are produced by the Arbor wallet service.
type Wallet struct {
	ID         int64
	UserID     string
	Name       string
	Address    string
	PrivateKey string
	PublicKey  string
	// Password is stored as typed by the user.
	Password  string
	CreatedAt time.Time
}

// CheckPassword compares the candidate against the stored password.
func (w *Wallet) CheckPassword(candidate string) bool {
	if w == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(w.Password), []byte(candidate)) == 1
}
