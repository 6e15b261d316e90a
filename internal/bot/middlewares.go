package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	errors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/state"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, translations *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("command", c.Command()),
						slog.String("stack", string(debug.Stack())),
					)

					notifyUser(c, log, errHandler, translations, fmt.Errorf("panic recovered: %v", r))
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(log *slog.Logger, errHandler *errors.Handler, translations *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			if err := next(c); err != nil {
				notifyUser(c, log, errHandler, translations, err)
			}
			return nil
		}
	}
}

// notifyUser answers the interaction when it is still open. Otherwise the message goes to
// the direct message conversation, or to an ephemeral follow-up when the DM itself failed.
// The text is translated into the user's locale.
func notifyUser(c handlers.Context, log *slog.Logger, errHandler *errors.Handler, translations *i18n.Manager, err error) {
	key := i18n.KeyError
	if errHandler != nil {
		if k := errHandler.Handle(c.Context(), err); k != "" {
			key = k
		}
	}
	userMsg := translations.Translator(c.Locale()).T(key)

	var appErr *errors.AppError
	dmFailed := stdErrors.As(err, &appErr) && appErr.Code == errors.CodePrivateChannel

	var sendErr error
	switch conv := c.Conversation(); {
	case !c.Replied() && c.InDM():
		sendErr = c.Reply(userMsg)
	case !c.Replied(), dmFailed, conv == nil:
		sendErr = c.ReplyEphemeral(userMsg)
	default:
		sendErr = conv.Send(context.WithoutCancel(c.Context()), userMsg)
	}

	if sendErr != nil {
		log.Error("failed to notify user about error",
			slog.String("user_id", c.UserID()),
			slog.String("command", c.Command()),
			slog.Any("error", sendErr),
		)
	}
}

// LoggingMiddleware logs every command with its duration and outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			start := time.Now()
			attrs := []any{
				slog.String("user_id", c.UserID()),
				slog.String("command", c.Command()),
				slog.String("interaction_id", c.InteractionID()),
				slog.Bool("dm", c.InDM()),
			}

			log.InfoContext(c.Context(), "handling command", attrs...)
			err := next(c)
			log.InfoContext(c.Context(), "handled command",
				append(attrs, slog.Duration("duration", time.Since(start)), slog.Any("error", err))...,
			)

			return err
		}
	}
}

// PrivateChannelMiddleware starts the conversation state for the user, opens the direct
// message channel and tells the user where to look when the command came from a guild.
// The conversation state is cleared once the handler returns.
func PrivateChannelMiddleware(fsm state.StateMachine, translations *i18n.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			ctx := c.Context()
			userID := c.UserID()

			if fsm != nil {
				if err := fsm.Begin(ctx, userID, c.Command()); err != nil {
					if stdErrors.Is(err, state.ErrConversationActive) || stdErrors.Is(err, state.ErrStateLocked) {
						return errors.NewStateError(err.Error())
					}
					return err
				}
				defer func() {
					if err := fsm.ClearState(context.WithoutCancel(ctx), userID); err != nil {
						log.Warn("failed to clear conversation state", slog.String("user_id", userID), slog.Any("error", err))
					}
				}()
			}

			if _, err := c.OpenConversation(); err != nil {
				if fsm != nil {
					_ = fsm.TransitionTo(ctx, userID, state.StateError)
				}
				return errors.NewPrivateChannelError(err)
			}

			if !c.InDM() {
				tr := translations.Translator(c.Locale())
				if err := c.ReplyEphemeral(tr.T(i18n.KeyDMSent)); err != nil {
					log.Warn("failed to point user to direct messages", slog.String("user_id", userID), slog.Any("error", err))
				}
			}

			return next(c)
		}
	}
}
