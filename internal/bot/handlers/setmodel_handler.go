package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewSetModelHandler returns a handler for /setmodel.
func NewSetModelHandler(deps HandlerDeps) bot.HandlerFunc {
	return setModelHandler{deps}.Handle
}

// setModelHandler lists the configured models with the active one marked.
type setModelHandler struct {
	deps HandlerDeps
}

func (h setModelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "setmodel")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	msgs := h.deps.messages(ctx, update.Message.From.ID)
	current := h.deps.LLM.Model()
	sendText(ctx, b, log, update.Message.Chat.ID,
		fmt.Sprintf(msgs.SetModelSelect, current),
		modelKeyboard(h.deps.LLM.Models(), current))
}
