package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ohaddad/shopsnap/pkg/debug"
	"github.com/ohaddad/shopsnap/pkg/recognize"
	"github.com/ohaddad/shopsnap/pkg/storage"
)

// handleCommand answers the bot commands. Unknown commands get the help
// text rather than silence.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	lang := b.language(ctx, senderID(msg))

	switch msg.Command() {
	case "start":
		return b.reply(msg, Message(lang, "welcome"))
	case "lang":
		return b.sendLanguageKeyboard(msg, lang)
	case "health":
		return b.handleHealth(ctx, msg, lang)
	default:
		return b.reply(msg, Message(lang, "help"))
	}
}

// sendLanguageKeyboard offers the language choices as inline buttons. The
// pick comes back as a "lang:<code>" callback.
func (b *Bot) sendLanguageKeyboard(msg *tgbotapi.Message, lang string) error {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range supportedLanguages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l.Name, "lang:"+l.Code))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, Message(lang, "choose_language"))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("sending language keyboard: %w", err)
	}
	return nil
}

// handleHealth reports storage reachability and the recognition targets.
func (b *Bot) handleHealth(ctx context.Context, msg *tgbotapi.Message, lang string) error {
	storageStatus := "ok"
	hctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := b.store.HealthCheck(hctx); err != nil {
		storageStatus = "unreachable"
	}

	plan := b.recognizer.Plan()
	targets := make([]string, 0, len(plan))
	for _, t := range plan {
		targets = append(targets, t.String())
	}

	return b.reply(msg, fmt.Sprintf(Message(lang, "health_report"),
		time.Since(b.startedAt).Round(time.Second),
		storageStatus, strings.Join(targets, ", ")))
}

// handleCallback processes inline keyboard picks. Only language picks
// exist; anything else is acknowledged and dropped.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	code, ok := strings.CutPrefix(cq.Data, "lang:")
	if !ok || !supportedLanguage(code) {
		b.api.Request(tgbotapi.NewCallback(cq.ID, ""))
		return nil
	}

	if err := b.store.SetLanguage(ctx, cq.From.ID, code); err != nil {
		b.logger.Warn("storing language preference failed",
			"user_id", cq.From.ID,
			"error", err.Error())
	}
	debug.Log("bot", "language changed", "user_id", cq.From.ID, "lang", code)

	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}

	if cq.Message != nil {
		out := tgbotapi.NewMessage(cq.Message.Chat.ID, Message(code, "language_set"))
		if _, err := b.api.Send(out); err != nil {
			return fmt.Errorf("confirming language change: %w", err)
		}
	}
	return nil
}

// handlePhoto runs one photo through recognition and replies with the
// product name and a shopping link.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID := senderID(msg)
	lang := b.language(ctx, userID)

	if photoOverCap(msg.Photo, b.photoBudget()) {
		return b.reply(msg, Message(lang, "photo_too_large"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var token uint64
	if b.config.Supersede {
		token = b.inflight.Replace(chatID, cancel)
	} else {
		var ok bool
		token, ok = b.inflight.TryRegister(chatID, cancel)
		if !ok {
			return b.reply(msg, Message(lang, "busy"))
		}
	}
	defer b.inflight.Release(chatID, token)

	b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	req := recognize.Request{Variants: photoVariants(b.api, b.client, msg.Photo)}
	if msg.Caption != "" {
		req.Prompt = b.prompt() + "\nUser caption: " + msg.Caption
	}

	res, err := b.recognizer.Recognize(runCtx, req)

	// A superseded or shut-down run stays silent; whoever cancelled it
	// owns the conversation now.
	if runCtx.Err() != nil {
		debug.Log("bot", "recognition cancelled", "chat_id", chatID)
		return nil
	}

	b.record(ctx, userID, chatID, res, err)

	switch {
	case err == nil:
		return b.replyWithProduct(msg, lang, res.Text)
	case errors.Is(err, recognize.ErrNoUsableImage):
		return b.reply(msg, Message(lang, "no_image"))
	default:
		return b.reply(msg, Message(lang, "recognition_failed"))
	}
}

// record appends the run to the audit trail. Trail failures are logged,
// never surfaced to the chat.
func (b *Bot) record(ctx context.Context, userID, chatID int64, res *recognize.Result, err error) {
	rec := &storage.Recognition{UserID: userID, ChatID: chatID}

	var exhausted *recognize.ExhaustedError
	switch {
	case err == nil:
		rec.Outcome = "success"
		rec.Text = res.Text
		rec.Provider = res.Target.Provider
		rec.Model = res.Target.Model
		rec.Attempts = totalTries(res.Attempts)
		rec.ElapsedMS = res.Elapsed.Milliseconds()
	case errors.Is(err, recognize.ErrNoUsableImage):
		rec.Outcome = "no_image"
	case errors.As(err, &exhausted):
		rec.Outcome = "exhausted"
		rec.Attempts = totalTries(exhausted.Attempts)
	default:
		rec.Outcome = "error"
	}

	if err := b.store.RecordRecognition(ctx, rec); err != nil {
		b.logger.Warn("recording recognition failed", "error", err.Error())
	}
}

// replyWithProduct formats the recognition result: bold product name,
// shopping link button when one applies.
func (b *Bot) replyWithProduct(msg *tgbotapi.Message, lang, text string) error {
	name := ProductName(text)
	if name == "" || isUnknown(name) {
		return b.reply(msg, Message(lang, "unknown_product"))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID,
		"*"+tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, name)+"*")
	out.ParseMode = tgbotapi.ModeMarkdownV2
	out.ReplyToMessageID = msg.MessageID

	if link := SearchLink(name, b.config.AffiliateTag); link != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(Message(lang, "search_amazon"), link),
			),
		)
	}

	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("sending product reply: %w", err)
	}
	return nil
}

// reply sends a plain text message to the chat msg came from.
func (b *Bot) reply(msg *tgbotapi.Message, text string) error {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

// totalTries sums the provider calls made across attempts.
func totalTries(attempts []recognize.Attempt) int {
	n := 0
	for _, a := range attempts {
		n += a.Tries
	}
	return n
}
