package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ohaddad/shopsnap/pkg/observability"
)

// Handler processes one Telegram update.
type Handler func(ctx context.Context, update tgbotapi.Update) error

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(Handler) Handler

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Recovery returns middleware that catches panics in the handler and
// converts them to errors. The bot keeps consuming updates after a panic
// is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, update tgbotapi.Update) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = fmt.Errorf("update handler panic: %v", r)
				}
			}()
			return next(ctx, update)
		}
	}
}

// Logging returns middleware that emits a structured log entry for each
// update: kind, update ID, chat, duration, and the error if handling
// failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, update tgbotapi.Update) error {
			start := time.Now()

			err := next(ctx, update)

			attrs := []slog.Attr{
				slog.String("kind", updateKind(update)),
				slog.Int("update_id", update.UpdateID),
				slog.Int64("chat_id", chatIDFor(update)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "update failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "update handled", attrs...)
			}

			return err
		}
	}
}

// Metrics returns middleware that counts consumed updates by kind.
func Metrics() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, update tgbotapi.Update) error {
			observability.UpdatesTotal.WithLabelValues(updateKind(update)).Inc()
			return next(ctx, update)
		}
	}
}

// updateKind classifies an update for logs and metrics.
func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message != nil && update.Message.IsCommand():
		return "command"
	case update.Message != nil && len(update.Message.Photo) > 0:
		return "photo"
	default:
		return "other"
	}
}

// chatIDFor extracts the chat an update belongs to, or 0 when it carries
// none.
func chatIDFor(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}
