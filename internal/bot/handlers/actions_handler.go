package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewActionsHandler returns a handler for /actions.
func NewActionsHandler(deps HandlerDeps) bot.HandlerFunc {
	return actionsHandler{deps}.Handle
}

// actionsHandler offers today's report across groups or a single group's items.
type actionsHandler struct {
	deps HandlerDeps
}

func (h actionsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "actions")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	msgs := h.deps.messages(ctx, update.Message.From.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, msgs.SelectActionsMode, actionsModeKeyboard(msgs))
}
