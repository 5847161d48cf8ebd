package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/session"
)

// presenceTTL is how long an owner membership lookup is trusted.
const presenceTTL = 10 * time.Minute

// NewMessageHandler returns the default handler for updates no command matched:
// group messages are archived, the owner's private text feeds the prompt wizard and
// documents are imported.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps: deps, presence: newPresenceCache(presenceTTL)}.Handle
}

type messageHandler struct {
	deps     HandlerDeps
	presence *presenceCache
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if len(msg.NewChatMembers) > 0 {
		h.handleNewMembers(ctx, b, msg)
		return
	}

	switch msg.Chat.Type {
	case models.ChatTypePrivate:
		h.handlePrivate(ctx, b, msg)
	case models.ChatTypeGroup, models.ChatTypeSupergroup:
		h.archive(ctx, b, msg)
	}
}

func (h messageHandler) handlePrivate(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "private_message")
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	if !h.deps.isOwner(userID) {
		h.deps.Sessions.Clear(userID)
		sendText(ctx, b, log, msg.Chat.ID, h.deps.messages(ctx, userID).NotAuthorized, nil)
		return
	}

	if msg.Document != nil {
		importDocument(ctx, b, h.deps, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	sess := h.deps.Sessions.Take(userID)
	if sess.State != session.AwaitingNewPrompt {
		return
	}
	msgs := h.deps.messages(ctx, userID)
	if err := h.deps.Store.UpdateSystemPrompt(ctx, sess.PromptType, msg.Text); err != nil {
		log.ErrorContext(ctx, "Failed to update prompt", "prompt_type", sess.PromptType, "error", err)
		sendText(ctx, b, log, msg.Chat.ID, msgs.GenericError, nil)
		return
	}
	log.InfoContext(ctx, "Prompt updated", "prompt_type", sess.PromptType)
	sendText(ctx, b, log, msg.Chat.ID, msgs.PromptUpdated, nil)
}

// handleNewMembers leaves groups the bot was added to by anyone but the owner and
// greets otherwise.
func (h messageHandler) handleNewMembers(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "new_members", "chat_id", msg.Chat.ID)

	me, err := b.GetMe(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to identify bot", "error", err)
		return
	}
	joined := false
	for _, m := range msg.NewChatMembers {
		if m.ID == me.ID {
			joined = true
			break
		}
	}
	if !joined {
		return
	}

	if msg.From == nil || !h.deps.isOwner(msg.From.ID) {
		log.WarnContext(ctx, "Added to a group by someone else, leaving")
		if _, err := b.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: msg.Chat.ID}); err != nil {
			log.ErrorContext(ctx, "Failed to leave chat", "error", err)
		}
		return
	}

	if err := h.deps.Store.UpdateChatInfo(ctx, msg.Chat.ID, msg.Chat.Title); err != nil {
		log.WarnContext(ctx, "Failed to record group title", "error", err)
	}
	sendText(ctx, b, log, msg.Chat.ID, h.deps.messages(ctx, msg.From.ID).BotJoined, nil)
}

// archive stores a group text message when the owner belongs to the group, then
// runs the background analysis trigger.
func (h messageHandler) archive(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "archive", "chat_id", msg.Chat.ID)

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	present, err := h.ownerPresent(ctx, b, msg.Chat.ID)
	if err != nil {
		log.WarnContext(ctx, "Failed to check owner membership", "error", err)
		return
	}
	if !present {
		log.DebugContext(ctx, "Owner is not in this group, not archiving")
		return
	}

	record := &database.Message{
		ChatID:      msg.Chat.ID,
		UserID:      senderID(msg),
		Username:    senderName(msg),
		MessageText: text,
		Timestamp:   time.Unix(int64(msg.Date), 0).In(h.deps.Config.Bot.Location()).Format(database.TimestampLayout),
	}
	h.deps.Backlog.Record(record, msg.Chat.Title)

	if err := h.deps.Store.StoreMessage(ctx, record); err != nil {
		log.ErrorContext(ctx, "Failed to store message", "message_id", msg.ID, "error", err)
		return
	}
	if err := h.deps.Store.UpdateChatInfo(ctx, msg.Chat.ID, msg.Chat.Title); err != nil {
		log.WarnContext(ctx, "Failed to record group title", "error", err)
	}

	fired, err := h.deps.Analysis.MaybeAutoAnalyze(ctx, msg.Chat.ID)
	if err != nil {
		log.WarnContext(ctx, "Automatic background analysis failed", "error", err)
		return
	}
	if fired {
		log.InfoContext(ctx, "Background analysis refreshed")
	}
}

func (h messageHandler) ownerPresent(ctx context.Context, b *bot.Bot, chatID int64) (bool, error) {
	if present, ok := h.presence.get(chatID); ok {
		return present, nil
	}
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: h.deps.Config.Telegram.OwnerID})
	if err != nil {
		return false, err
	}
	present := false
	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		present = true
	}
	h.presence.set(chatID, present)
	return present, nil
}

func senderID(msg *models.Message) int64 {
	switch {
	case msg.From != nil:
		return msg.From.ID
	case msg.SenderChat != nil:
		return msg.SenderChat.ID
	}
	return 0
}

// senderName prefers the @handle, then the first name.
func senderName(msg *models.Message) string {
	switch {
	case msg.From != nil && msg.From.Username != "":
		return msg.From.Username
	case msg.From != nil && msg.From.FirstName != "":
		return msg.From.FirstName
	case msg.SenderChat != nil && msg.SenderChat.Title != "":
		return msg.SenderChat.Title
	}
	return database.UnknownUsername
}

// presenceCache remembers whether the owner is in a chat.
type presenceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[database.ChatKey]presenceEntry
}

type presenceEntry struct {
	present bool
	expires time.Time
}

func newPresenceCache(ttl time.Duration) *presenceCache {
	return &presenceCache{ttl: ttl, now: time.Now, entries: make(map[database.ChatKey]presenceEntry)}
}

func (c *presenceCache) get(chatID int64) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[database.KeyOf(chatID)]
	if !ok || !c.now().Before(e.expires) {
		return false, false
	}
	return e.present, true
}

func (c *presenceCache) set(chatID int64, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[database.KeyOf(chatID)] = presenceEntry{present: present, expires: c.now().Add(c.ttl)}
}
