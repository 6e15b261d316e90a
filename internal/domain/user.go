package domain

import (
	"database/sql"
	"time"
)

// User is a Discord account known to the bot.
type User struct {
	// ID is the Discord snowflake of the account.
	ID string
	// WalletID references the currently selected wallet, if any.
	WalletID  sql.NullInt64
	CreatedAt time.Time
}

// HasSelectedWallet reports whether the user picked a wallet.
func (u *User) HasSelectedWallet() bool {
	return u != nil && u.WalletID.Valid
}
