package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	// maxMessageLen is the Telegram limit for one text message, in characters.
	maxMessageLen = 4096

	sendMessageTimeout = 10 * time.Second
)

// sendText sends text to chatID, splitting it into several messages when it is too
// long. markup is attached to the first part.
func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string, markup models.ReplyMarkup) {
	for i, part := range splitText(text, maxMessageLen) {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if i == 0 && markup != nil {
			params.ReplyMarkup = markup
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		_, err := b.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			log.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "part", i, "error", err)
			return
		}
	}
}

// editText replaces the text of the message a callback came from. Overflow goes out
// as new messages; inaccessible messages are answered with a fresh message.
func editText(ctx context.Context, b *bot.Bot, log *slog.Logger, q *models.CallbackQuery, text string, markup models.ReplyMarkup) {
	msg := q.Message.Message
	if msg == nil {
		sendText(ctx, b, log, q.From.ID, text, markup)
		return
	}

	parts := splitText(text, maxMessageLen)
	params := &bot.EditMessageTextParams{ChatID: msg.Chat.ID, MessageID: msg.ID, Text: parts[0]}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	editCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	_, err := b.EditMessageText(editCtx, params)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to edit message", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
		return
	}
	if len(parts) > 1 {
		sendText(ctx, b, log, msg.Chat.ID, strings.Join(parts[1:], ""), nil)
	}
}

// answer acknowledges a callback query, optionally with an alert.
func answer(ctx context.Context, b *bot.Bot, log *slog.Logger, q *models.CallbackQuery, alert string) {
	params := &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}
	if alert != "" {
		params.Text = alert
		params.ShowAlert = true
	}
	if _, err := b.AnswerCallbackQuery(ctx, params); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "callback_query_id", q.ID, "error", err)
	}
}

// splitText cuts s into pieces of at most limit characters, preferring line breaks.
func splitText(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var parts []string
	for s != "" {
		r := []rune(s)
		if len(r) <= limit {
			parts = append(parts, s)
			break
		}
		cut := limit
		if nl := strings.LastIndex(string(r[:limit]), "\n"); nl > 0 {
			cut = utf8.RuneCountInString(string(r[:limit])[:nl+1])
		}
		parts = append(parts, string(r[:cut]))
		s = string(r[cut:])
	}
	return parts
}
