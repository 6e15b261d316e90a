package wallet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/arbor-bot/internal/domain"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/repository"
	"github.com/Proton-105/arbor-bot/internal/state"
	"github.com/Proton-105/arbor-bot/pkg/metrics"
)

// flow carries one command invocation through its steps.
type flow struct {
	s       *Service
	ctx     context.Context
	command string
	userID  string
	conv    Conversation
	tr      i18n.Translator
}

func (s *Service) newFlow(ctx context.Context, command, userID string, conv Conversation) *flow {
	return &flow{
		s:       s,
		ctx:     ctx,
		command: command,
		userID:  userID,
		conv:    conv,
		tr:      s.i18n.Translator(conv.Locale()),
	}
}

// enter records the conversation phase. Tracking failures never abort a command.
func (f *flow) enter(next state.State) {
	if f.s.fsm == nil {
		return
	}

	if err := f.s.fsm.TransitionTo(f.ctx, f.userID, next); err != nil {
		f.s.log.Warn("conversation state not updated",
			slog.String("user_id", f.userID),
			slog.String("command", f.command),
			slog.String("state", string(next)),
			slog.Any("error", err),
		)
	}
}

// reply sends the final message of the conversation.
func (f *flow) reply(content string) error {
	if err := f.conv.Send(f.ctx, content); err != nil {
		return err
	}
	f.enter(state.StateReplied)
	return nil
}

func (f *flow) timeout() error {
	metrics.RecordConversationTimeout(f.command)
	f.s.log.Info("conversation timed out",
		slog.String("user_id", f.userID),
		slog.String("command", f.command),
	)

	if err := f.conv.Send(f.ctx, f.tr.T(i18n.KeyTimeout)); err != nil {
		return err
	}
	f.enter(state.StateError)
	return nil
}

// ask returns ok=false when the flow must stop; err is then the error to return, if any.
func (f *flow) ask(prompt string) (string, bool, error) {
	f.enter(state.StateAwaitingReply)

	answer, err := f.conv.Ask(f.ctx, prompt)
	if errors.Is(err, ErrTimeout) {
		return "", false, f.timeout()
	}
	if err != nil {
		return "", false, err
	}

	return answer, true, nil
}

// askBounded is ask with the name/password length limit applied to the answer.
func (f *flow) askBounded(prompt, tooLongKey string) (string, bool, error) {
	answer, ok, err := f.ask(prompt)
	if !ok {
		return "", false, err
	}

	if !withinLimit(answer) {
		return "", false, f.reply(f.tr.T(tooLongKey))
	}

	return answer, true, nil
}

func (f *flow) checkPassword(wallet *domain.Wallet) (bool, error) {
	password, ok, err := f.askBounded(f.tr.Tf(i18n.KeyAskPassword, wallet.Name), i18n.KeyPasswordTooLong)
	if !ok {
		return false, err
	}

	if !wallet.CheckPassword(password) {
		return false, f.reply(f.tr.T(i18n.KeyWrongPassword))
	}

	return true, nil
}

func (f *flow) selectedWallet() (*domain.Wallet, bool, error) {
	wallet, err := f.s.wallets.FindSelected(f.ctx, f.userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return nil, false, f.reply(f.tr.T(i18n.KeyNoneSelected))
	}
	if err != nil {
		return nil, false, err
	}

	return wallet, true, nil
}

// persist stores a new wallet; done reports that the flow ended here.
func (f *flow) persist(wallet *domain.Wallet) (bool, error) {
	f.enter(state.StatePersisting)

	_, err := f.s.wallets.CreateAndSelect(f.ctx, wallet)
	if errors.Is(err, repository.ErrWalletExists) {
		return true, f.reply(f.tr.T(i18n.KeyWalletExists))
	}
	if err != nil {
		return true, err
	}

	f.s.log.Info("wallet stored",
		slog.String("user_id", f.userID),
		slog.String("command", f.command),
		slog.Int64("wallet_id", wallet.ID),
	)
	return false, nil
}
