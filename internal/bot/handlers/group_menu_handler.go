package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/bot/callback"
	"github.com/edgard/tgassist/internal/i18n"
)

// NewAnalyzeHandler returns a handler for /analyze.
func NewAnalyzeHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupMenuHandler{
		deps:   deps,
		name:   "analyze",
		action: callback.Analyze,
		title:  func(m *i18n.Messages) string { return m.SelectAnalyze },
	}.Handle
}

// NewSuggestHandler returns a handler for /suggest.
func NewSuggestHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupMenuHandler{
		deps:   deps,
		name:   "suggest",
		action: callback.Suggest,
		title:  func(m *i18n.Messages) string { return m.SelectSuggest },
	}.Handle
}

// NewDeleteHandler returns a handler for /delete.
func NewDeleteHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupMenuHandler{
		deps:   deps,
		name:   "delete",
		action: callback.Delete,
		title:  func(m *i18n.Messages) string { return m.SelectDelete },
	}.Handle
}

// groupMenuHandler answers a command with one button per archived group.
type groupMenuHandler struct {
	deps   HandlerDeps
	name   string
	action callback.Action
	title  func(*i18n.Messages) string
}

func (h groupMenuHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.messages(ctx, update.Message.From.ID)

	text, markup := groupMenu(ctx, h.deps, msgs, h.action, h.title(msgs))
	sendText(ctx, b, log, chatID, text, markup)
}

// groupMenu renders the group picker for action, or the reason there is none.
func groupMenu(ctx context.Context, deps HandlerDeps, msgs *i18n.Messages, action callback.Action, title string) (string, models.ReplyMarkup) {
	groups, err := deps.Store.GetAllGroups(ctx)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to list groups", "action", action, "error", err)
		return msgs.GenericError, nil
	}
	if len(groups) == 0 {
		return msgs.NoGroups, nil
	}
	return title, groupKeyboard(groups, action)
}
