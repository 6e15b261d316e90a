// Package wallet implements the conversations behind the wallet slash commands.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/arbor-bot/internal/arbor"
	"github.com/Proton-105/arbor-bot/internal/domain"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/present"
	"github.com/Proton-105/arbor-bot/internal/repository"
	"github.com/Proton-105/arbor-bot/internal/state"
)

// Command names as registered with Discord.
const (
	CommandCreate       = "create"
	CommandDelete       = "delete"
	CommandRecover      = "recover"
	CommandWallet       = "wallet"
	CommandBalance      = "balance"
	CommandReceive      = "receive"
	CommandTransactions = "transactions"
	CommandSend         = "send"
)

// maxSelectOptions is the Discord limit for select menu options.
const maxSelectOptions = 25

// API is the subset of the Arbor wallet service used by the flows.
type API interface {
	Keygen(ctx context.Context) (*arbor.KeygenResponse, error)
	CreateWallet(ctx context.Context, publicKey string) (*arbor.WalletResponse, error)
	Recover(ctx context.Context, phrase string) (*arbor.RecoverResponse, error)
	Balance(ctx context.Context, address string) (*arbor.BalanceResponse, error)
	Transactions(ctx context.Context, address string) (*arbor.TransactionsResponse, error)
	Send(ctx context.Context, privateKey string, amount decimal.Decimal, destination string) (*arbor.SendResponse, error)
}

// Service runs wallet command conversations. Returned errors are unexpected failures; every
// expected outcome, including validation errors and timeouts, is reported to the user and
// returns nil.
type Service struct {
	api     API
	users   repository.UserRepository
	wallets repository.WalletRepository
	fsm     state.StateMachine
	i18n    *i18n.Manager
	log     *slog.Logger
}

// NewService wires the flows. fsm may be nil when conversation tracking is not needed.
func NewService(
	api API,
	users repository.UserRepository,
	wallets repository.WalletRepository,
	fsm state.StateMachine,
	translations *i18n.Manager,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		api:     api,
		users:   users,
		wallets: wallets,
		fsm:     fsm,
		i18n:    translations,
		log:     log.With(slog.String("component", "wallet_service")),
	}
}

// Create generates a new keypair, stores it as wallet name and selects it.
func (s *Service) Create(ctx context.Context, userID, name string, conv Conversation) error {
	f := s.newFlow(ctx, CommandCreate, userID, conv)

	if !withinLimit(name) {
		return f.reply(f.tr.T(i18n.KeyNameTooLong))
	}

	exists, err := s.wallets.ExistsByName(ctx, userID, name)
	if err != nil {
		return err
	}
	if exists {
		return f.reply(f.tr.T(i18n.KeyWalletExists))
	}

	password, ok, err := f.askBounded(f.tr.T(i18n.KeyAskNewPassword), i18n.KeyPasswordTooLong)
	if !ok {
		return err
	}

	f.enter(state.StateCallingRemote)

	keys, err := s.api.Keygen(ctx)
	if err != nil {
		return err
	}
	if !keys.Success {
		return f.reply(f.tr.T(i18n.KeyCreateKeygenFailed))
	}

	created, err := s.api.CreateWallet(ctx, keys.PublicKey)
	if err != nil {
		return err
	}
	if !created.Success {
		return f.reply(f.tr.T(i18n.KeyCreateWalletFailed))
	}

	if done, err := f.persist(&domain.Wallet{
		UserID:     userID,
		Name:       name,
		Address:    created.Address,
		PrivateKey: keys.PrivateKey,
		PublicKey:  keys.PublicKey,
		Password:   password,
	}); done {
		return err
	}

	f.enter(state.StateAwaitingReply)
	if err := conv.ShowSecret(ctx, f.tr.Tf(i18n.KeyCreatePhrase, keys.Phrase)); err != nil {
		return err
	}

	return f.reply(f.tr.Tf(i18n.KeyCreateDone, created.Address))
}

// Recover rebuilds a wallet from its mnemonic phrase and selects it.
func (s *Service) Recover(ctx context.Context, userID, name string, conv Conversation) error {
	f := s.newFlow(ctx, CommandRecover, userID, conv)

	if !withinLimit(name) {
		return f.reply(f.tr.T(i18n.KeyNameTooLong))
	}

	exists, err := s.wallets.ExistsByName(ctx, userID, name)
	if err != nil {
		return err
	}
	if exists {
		return f.reply(f.tr.T(i18n.KeyWalletExists))
	}

	phrase, ok, err := f.ask(f.tr.T(i18n.KeyRecoverAskPhrase))
	if !ok {
		return err
	}

	password, ok, err := f.askBounded(f.tr.T(i18n.KeyAskNewPassword), i18n.KeyPasswordTooLong)
	if !ok {
		return err
	}

	f.enter(state.StateCallingRemote)

	keys, err := s.api.Recover(ctx, phrase)
	if err != nil {
		return err
	}
	if !keys.Success {
		return f.reply(f.tr.T(i18n.KeyRecoverKeypairFailed))
	}

	created, err := s.api.CreateWallet(ctx, keys.PublicKey)
	if err != nil {
		return err
	}
	if !created.Success {
		return f.reply(f.tr.T(i18n.KeyRecoverWalletFailed))
	}

	if done, err := f.persist(&domain.Wallet{
		UserID:     userID,
		Name:       name,
		Address:    created.Address,
		PrivateKey: keys.PrivateKey,
		PublicKey:  keys.PublicKey,
		Password:   password,
	}); done {
		return err
	}

	return f.reply(f.tr.Tf(i18n.KeyRecoverDone, created.Address))
}

// Delete removes wallet name after checking its password.
func (s *Service) Delete(ctx context.Context, userID, name string, conv Conversation) error {
	f := s.newFlow(ctx, CommandDelete, userID, conv)

	if !withinLimit(name) {
		return f.reply(f.tr.T(i18n.KeyNameTooLong))
	}

	wallet, err := s.wallets.FindByName(ctx, userID, name)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return f.reply(f.tr.T(i18n.KeyWalletMissing))
	}
	if err != nil {
		return err
	}

	if ok, err := f.checkPassword(wallet); !ok {
		return err
	}

	f.enter(state.StatePersisting)

	err = s.wallets.Delete(ctx, wallet.ID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return f.reply(f.tr.T(i18n.KeyWalletMissing))
	}
	if err != nil {
		return err
	}

	return f.reply(f.tr.Tf(i18n.KeyDeleteDone, wallet.Address))
}

// Select lets the user pick the wallet used by balance, receive, transactions and send.
func (s *Service) Select(ctx context.Context, userID string, conv Conversation) error {
	f := s.newFlow(ctx, CommandWallet, userID, conv)

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return f.reply(f.tr.T(i18n.KeyNoneCreated))
	}
	if err != nil {
		return err
	}

	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return f.reply(f.tr.T(i18n.KeyNoneCreated))
	}

	if len(wallets) > maxSelectOptions {
		s.log.Warn("too many wallets for a select menu, truncating",
			slog.String("user_id", userID),
			slog.Int("wallets", len(wallets)),
		)
		wallets = wallets[:maxSelectOptions]
	}

	choices := make([]Choice, 0, len(wallets))
	for _, w := range wallets {
		choices = append(choices, Choice{
			Label:       w.Name,
			Value:       strconv.FormatInt(w.ID, 10),
			Description: w.Address,
			Default:     user.HasSelectedWallet() && user.WalletID.Int64 == w.ID,
		})
	}

	f.enter(state.StateAwaitingReply)
	value, err := conv.Choose(ctx, f.tr.T(i18n.KeySelectPrompt), choices)
	if errors.Is(err, ErrTimeout) {
		return f.timeout()
	}
	if err != nil {
		return err
	}

	var chosen *domain.Wallet
	for i := range wallets {
		if strconv.FormatInt(wallets[i].ID, 10) == value {
			chosen = &wallets[i]
			break
		}
	}
	if chosen == nil {
		return f.reply(f.tr.T(i18n.KeyWalletMissing))
	}

	f.enter(state.StatePersisting)

	err = s.users.SelectWallet(ctx, userID, chosen.ID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return f.reply(f.tr.T(i18n.KeyWalletMissing))
	}
	if err != nil {
		return err
	}

	return f.reply(f.tr.Tf(i18n.KeySelectDone, chosen.Name))
}

// Balance shows the balance of the selected wallet.
func (s *Service) Balance(ctx context.Context, userID string, conv Conversation) error {
	f := s.newFlow(ctx, CommandBalance, userID, conv)

	wallet, ok, err := f.selectedWallet()
	if !ok {
		return err
	}

	if err := conv.Defer(ctx); err != nil {
		return err
	}
	f.enter(state.StateCallingRemote)

	resp, err := s.api.Balance(ctx, wallet.Address)
	if err != nil {
		return err
	}
	if !resp.Success {
		return f.reply(f.tr.T(i18n.KeyBalanceFailed))
	}

	return f.reply(f.tr.Tf(i18n.KeyBalanceDone, present.FormatAmount(resp.Balance, resp.Fork.Precision)))
}

// Receive shows the address of the selected wallet.
func (s *Service) Receive(ctx context.Context, userID string, conv Conversation) error {
	f := s.newFlow(ctx, CommandReceive, userID, conv)

	wallet, ok, err := f.selectedWallet()
	if !ok {
		return err
	}

	return f.reply(f.tr.Tf(i18n.KeyReceiveDone, wallet.Address))
}

// Transactions shows the history of the selected wallet, ten entries per page.
func (s *Service) Transactions(ctx context.Context, userID string, conv Conversation) error {
	f := s.newFlow(ctx, CommandTransactions, userID, conv)

	wallet, ok, err := f.selectedWallet()
	if !ok {
		return err
	}

	if err := conv.Defer(ctx); err != nil {
		return err
	}
	f.enter(state.StateCallingRemote)

	resp, err := s.api.Transactions(ctx, wallet.Address)
	if err != nil {
		return err
	}
	if !resp.Success {
		return f.reply(f.tr.T(i18n.KeyTransactionsFailed))
	}
	if len(resp.Transactions) == 0 {
		return f.reply(f.tr.T(i18n.KeyTransactionsEmpty))
	}

	pages := present.RenderPages(f.tr, resp.Transactions, resp.Fork.Precision)
	if len(pages) > 1 {
		f.enter(state.StateAwaitingReply)
	}
	if err := conv.Paginate(ctx, pages); err != nil {
		return err
	}

	f.enter(state.StateReplied)
	return nil
}

// Send transfers amount from the selected wallet to destination after checking the password.
func (s *Service) Send(ctx context.Context, userID, amountText, destination string, conv Conversation) error {
	f := s.newFlow(ctx, CommandSend, userID, conv)

	wallet, ok, err := f.selectedWallet()
	if !ok {
		return err
	}

	amount, valid := present.ParseUserAmount(amountText)
	if !valid {
		return f.reply(f.tr.T(i18n.KeySendInvalidAmount))
	}

	if ok, err := f.checkPassword(wallet); !ok {
		return err
	}

	f.enter(state.StateCallingRemote)

	resp, err := s.api.Send(ctx, wallet.PrivateKey, amount, destination)
	if err != nil {
		return err
	}
	if !resp.Success {
		return f.reply(f.tr.Tf(i18n.KeySendFailed, resp.Reason()))
	}

	return f.reply(f.tr.Tf(i18n.KeySendDone, present.FormatUserAmount(amount), destination))
}

func withinLimit(text string) bool {
	return utf8.RuneCountInString(text) <= domain.MaxNameLength
}
