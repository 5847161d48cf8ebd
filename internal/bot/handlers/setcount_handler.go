package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/prompt"
)

var (
	errCountUsage   = errors.New("count missing or not a number")
	errCountTooLow  = fmt.Errorf("count must be at least %d", prompt.MinSuggestCount)
	errCountTooHigh = fmt.Errorf("count must be at most %d", prompt.MaxSuggestCount)
)

// parseSuggestCount reads the argument of "/setcount <n>".
func parseSuggestCount(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, errCountUsage
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, errCountUsage
	}
	switch {
	case n < prompt.MinSuggestCount:
		return 0, errCountTooLow
	case n > prompt.MaxSuggestCount:
		return 0, errCountTooHigh
	}
	return n, nil
}

// NewSetCountHandler returns a handler for /setcount.
func NewSetCountHandler(deps HandlerDeps) bot.HandlerFunc {
	return setCountHandler{deps}.Handle
}

// setCountHandler stores how many recent messages reply suggestions use.
type setCountHandler struct {
	deps HandlerDeps
}

func (h setCountHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "setcount")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID, userID := update.Message.Chat.ID, update.Message.From.ID
	msgs := h.deps.messages(ctx, userID)

	n, err := parseSuggestCount(update.Message.Text)
	switch {
	case errors.Is(err, errCountTooLow):
		sendText(ctx, b, log, chatID, msgs.SetCountTooLow, nil)
		return
	case errors.Is(err, errCountTooHigh):
		sendText(ctx, b, log, chatID, msgs.SetCountTooHigh, nil)
		return
	case err != nil:
		sendText(ctx, b, log, chatID, msgs.SetCountUsage, nil)
		return
	}

	if err := h.deps.Store.SetSuggestCount(ctx, userID, n); err != nil {
		log.ErrorContext(ctx, "Failed to store suggest count", "user_id", userID, "error", err)
		sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.ErrorOccurred, err), nil)
		return
	}
	sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.SetCountDone, n), nil)
}
