package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/i18n"
)

// NewSyncHandler returns a handler for /sync.
func NewSyncHandler(deps HandlerDeps) bot.HandlerFunc {
	return syncHandler{deps}.Handle
}

// syncHandler refreshes the titles of archived groups and replays the live backlog
// through the deduplicating batch path.
type syncHandler struct {
	deps HandlerDeps
}

func (h syncHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "sync")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.messages(ctx, update.Message.From.ID)

	status, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msgs.SyncStarted})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send sync status", "chat_id", chatID, "error", err)
		return
	}
	setStatus := func(text string) {
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{ChatID: chatID, MessageID: status.ID, Text: text}); err != nil {
			log.WarnContext(ctx, "Failed to update sync status", "chat_id", chatID, "error", err)
		}
	}

	refreshed := h.refreshTitles(ctx, b, log)
	chats, inserted, err := h.replayBacklog(ctx, msgs, setStatus)
	if err != nil {
		setStatus(fmt.Sprintf(msgs.ErrorOccurred, err))
		return
	}

	if refreshed == 0 && chats == 0 {
		setStatus(msgs.SyncNothing)
		return
	}
	log.InfoContext(ctx, "Sync finished", "titles_refreshed", refreshed, "backlog_chats", chats, "inserted", inserted)
	setStatus(fmt.Sprintf(msgs.SyncDone, max(refreshed, chats), inserted))
}

// refreshTitles asks Telegram for the current title of every archived group and
// returns how many answered.
func (h syncHandler) refreshTitles(ctx context.Context, b *bot.Bot, log *slog.Logger) int {
	groups, err := h.deps.Store.GetAllGroups(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list groups", "error", err)
		return 0
	}

	refreshed := 0
	for _, g := range groups {
		chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: -g.ID})
		if err != nil {
			log.DebugContext(ctx, "Group not reachable, keeping stored title", "chat_key", g.ID, "error", err)
			continue
		}
		if err := h.deps.Store.UpdateChatInfo(ctx, chat.ID, chat.Title); err != nil {
			log.WarnContext(ctx, "Failed to store refreshed title", "chat_key", g.ID, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed
}

// replayBacklog stores every buffered chat, reporting progress per chat. Chats stored
// before a failure stay stored.
func (h syncHandler) replayBacklog(ctx context.Context, msgs *i18n.Messages, progress func(string)) (int, int, error) {
	chats := h.deps.Backlog.Snapshot()
	inserted := 0
	for i, c := range chats {
		if len(c.Messages) == 0 {
			continue
		}
		n, err := h.deps.Store.StoreMessagesBatch(ctx, c.Messages)
		if err != nil {
			return i, inserted, fmt.Errorf("sync stopped after %d messages: %w", inserted, err)
		}
		if c.Title != "" {
			if err := h.deps.Store.UpdateChatInfo(ctx, c.ChatID, c.Title); err != nil {
				return i, inserted, err
			}
		}
		inserted += n
		progress(fmt.Sprintf(msgs.SyncProgress, c.Title, n))
	}
	return len(chats), inserted, nil
}
