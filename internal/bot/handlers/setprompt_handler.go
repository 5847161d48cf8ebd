package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/session"
)

// NewSetPromptHandler returns a handler for /setprompt.
func NewSetPromptHandler(deps HandlerDeps) bot.HandlerFunc {
	return setPromptHandler{deps}.Handle
}

// setPromptHandler starts the prompt wizard by asking which prompt to edit.
type setPromptHandler struct {
	deps HandlerDeps
}

func (h setPromptHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "setprompt")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	msgs := h.deps.messages(ctx, update.Message.From.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, msgs.SetPromptSelect, promptKeyboard(msgs))
}

// NewCancelHandler returns a handler for /cancel.
func NewCancelHandler(deps HandlerDeps) bot.HandlerFunc {
	return cancelHandler{deps}.Handle
}

// cancelHandler leaves the prompt wizard without changing the prompt.
type cancelHandler struct {
	deps HandlerDeps
}

func (h cancelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "cancel")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	msgs := h.deps.messages(ctx, userID)

	if h.deps.Sessions.Take(userID).State != session.AwaitingNewPrompt {
		sendText(ctx, b, log, update.Message.Chat.ID, msgs.NothingToCancel, nil)
		return
	}
	log.InfoContext(ctx, "Prompt wizard cancelled", "user_id", userID)
	sendText(ctx, b, log, update.Message.Chat.ID, msgs.PromptCancelled, nil)
}
