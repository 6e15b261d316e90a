package domain

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWallet_CheckPassword(t *testing.T) {
	w := &Wallet{Password: "hunter2"}

	assert.True(t, w.CheckPassword("hunter2"))
	assert.False(t, w.CheckPassword("hunter3"))
	assert.False(t, w.CheckPassword(""))

	var nilWallet *Wallet
	assert.False(t, nilWallet.CheckPassword("hunter2"))
}

func TestUser_HasSelectedWallet(t *testing.T) {
	assert.False(t, (&User{ID: "1"}).HasSelectedWallet())
	assert.True(t, (&User{ID: "1", WalletID: sql.NullInt64{Int64: 4, Valid: true}}).HasSelectedWallet())

	var nilUser *User
	assert.False(t, nilUser.HasSelectedWallet())
}
