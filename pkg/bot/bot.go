package bot

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ohaddad/shopsnap/pkg/recognize"
	"github.com/ohaddad/shopsnap/pkg/storage"
)

// API is the slice of the Telegram client surface the bot uses.
// Satisfied by *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Recognizer runs the provider plan against one photo.
type Recognizer interface {
	Recognize(ctx context.Context, req recognize.Request) (*recognize.Result, error)
	Plan() []recognize.Target
}

var _ Recognizer = (*recognize.Orchestrator)(nil)

// Config holds chat behavior settings.
type Config struct {
	// AffiliateTag is attached to Amazon search links. Empty disables
	// links.
	AffiliateTag string

	// Supersede cancels a chat's in-flight recognition when a new photo
	// arrives. When false the new photo is rejected until the previous
	// one finishes.
	Supersede bool

	// Prompt overrides the built-in identification prompt. It must match
	// the recognizer's configured prompt so captions fold into the same
	// instruction the plain-photo path uses.
	Prompt string

	// MaxPhotoBytes rejects a photo before any fetch when even its smallest
	// rendition declares a size above this (0 = 10 MiB).
	MaxPhotoBytes int
}

// Bot routes Telegram updates to command, callback and photo handlers.
type Bot struct {
	api        API
	recognizer Recognizer
	store      storage.Store
	config     Config
	inflight   *InFlightRegistry
	client     *http.Client
	logger     *slog.Logger
	handler    Handler
	startedAt  time.Time
}

// New assembles a Bot with the default middleware chain.
func New(api API, recognizer Recognizer, store storage.Store, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bot{
		api:        api,
		recognizer: recognizer,
		store:      store,
		config:     cfg,
		inflight:   NewInFlightRegistry(),
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		startedAt:  time.Now(),
	}
	b.handler = Chain(Metrics(), Logging(logger), Recovery())(b.dispatch)
	return b
}

// Run consumes updates until ctx is cancelled or the channel closes. Each
// update is handled on its own goroutine; Run waits for in-flight handlers
// before returning. Handler errors are logged by the middleware chain, not
// returned.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, draining in-flight updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.handler(ctx, u)
			}(update)
		}
	}
}

// dispatch routes one update by kind.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
		return nil
	case update.Message.IsCommand():
		return b.handleCommand(ctx, update.Message)
	case len(update.Message.Photo) > 0:
		return b.handlePhoto(ctx, update.Message)
	default:
		lang := b.language(ctx, senderID(update.Message))
		return b.reply(update.Message, Message(lang, "send_photo_hint"))
	}
}

// language returns the sender's stored language, or the default when they
// never picked one.
func (b *Bot) language(ctx context.Context, userID int64) string {
	lang, err := b.store.Language(ctx, userID)
	if err != nil {
		return defaultLanguage
	}
	return lang
}

// prompt returns the base identification instruction captions are folded
// into.
func (b *Bot) prompt() string {
	if b.config.Prompt != "" {
		return b.config.Prompt
	}
	return recognize.DefaultPrompt
}

// photoBudget returns the per-photo size cap.
func (b *Bot) photoBudget() int {
	if b.config.MaxPhotoBytes > 0 {
		return b.config.MaxPhotoBytes
	}
	return maxPhotoBytes
}

// senderID extracts the sending user, or 0 for channel posts.
func senderID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
