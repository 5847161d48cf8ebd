package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLangHandler returns a handler for the /lang command.
func NewLangHandler(deps HandlerDeps) bot.HandlerFunc {
	return langHandler{deps}.Handle
}

// langHandler shows the language picker. The choice is stored by the callback handler.
type langHandler struct {
	deps HandlerDeps
}

func (h langHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "lang")

	if update.Message == nil || update.Message.From == nil {
		return
	}

	msgs := h.deps.messages(ctx, update.Message.From.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, msgs.LangSelect, languageKeyboard())
}
