package handlers

import (
	"github.com/Proton-105/arbor-bot/internal/wallet"
)

// Option names of the slash commands.
const (
	OptionWallet      = "wallet"
	OptionAmount      = "amount"
	OptionDestination = "destination"
)

// WalletHandlers maps every wallet slash command to its flow in svc. The handlers expect the
// conversation to be opened by the middleware chain.
func WalletHandlers(svc *wallet.Service) map[string]Handler {
	return map[string]Handler{
		wallet.CommandCreate: func(c Context) error {
			return svc.Create(c.Context(), c.UserID(), c.Option(OptionWallet), c.Conversation())
		},
		wallet.CommandRecover: func(c Context) error {
			return svc.Recover(c.Context(), c.UserID(), c.Option(OptionWallet), c.Conversation())
		},
		wallet.CommandDelete: func(c Context) error {
			return svc.Delete(c.Context(), c.UserID(), c.Option(OptionWallet), c.Conversation())
		},
		wallet.CommandWallet: func(c Context) error {
			return svc.Select(c.Context(), c.UserID(), c.Conversation())
		},
		wallet.CommandBalance: func(c Context) error {
			return svc.Balance(c.Context(), c.UserID(), c.Conversation())
		},
		wallet.CommandReceive: func(c Context) error {
			return svc.Receive(c.Context(), c.UserID(), c.Conversation())
		},
		wallet.CommandTransactions: func(c Context) error {
			return svc.Transactions(c.Context(), c.UserID(), c.Conversation())
		},
		wallet.CommandSend: func(c Context) error {
			return svc.Send(c.Context(), c.UserID(), c.Option(OptionAmount), c.Option(OptionDestination), c.Conversation())
		},
	}
}
