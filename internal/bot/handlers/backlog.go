package handlers

import (
	"sort"
	"sync"

	"github.com/edgard/tgassist/internal/database"
)

// Backlog keeps the most recent live messages per chat so /sync can replay them
// through the deduplicating batch path.
type Backlog struct {
	mu    sync.Mutex
	size  int
	chats map[database.ChatKey]*chatBacklog
}

type chatBacklog struct {
	chatID   int64
	title    string
	messages []*database.Message
}

// BacklogChat is a snapshot of one chat's buffered messages, oldest first.
type BacklogChat struct {
	ChatID   int64
	Title    string
	Messages []*database.Message
}

// NewBacklog creates a backlog holding up to size messages per chat. Size 0 disables it.
func NewBacklog(size int) *Backlog {
	return &Backlog{size: size, chats: make(map[database.ChatKey]*chatBacklog)}
}

// Record appends msg to its chat, dropping the oldest entry when full.
func (bl *Backlog) Record(msg *database.Message, title string) {
	if bl == nil || bl.size <= 0 {
		return
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()

	key := database.KeyOf(msg.ChatID)
	c, ok := bl.chats[key]
	if !ok {
		c = &chatBacklog{chatID: msg.ChatID}
		bl.chats[key] = c
	}
	if title != "" {
		c.title = title
	}
	if len(c.messages) == bl.size {
		copy(c.messages, c.messages[1:])
		c.messages = c.messages[:bl.size-1]
	}
	cp := *msg
	c.messages = append(c.messages, &cp)
}

// Snapshot returns a deep copy of every chat, ordered by chat key.
func (bl *Backlog) Snapshot() []BacklogChat {
	if bl == nil {
		return nil
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()

	keys := make([]database.ChatKey, 0, len(bl.chats))
	for k := range bl.chats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]BacklogChat, 0, len(keys))
	for _, k := range keys {
		c := bl.chats[k]
		msgs := make([]*database.Message, 0, len(c.messages))
		for _, m := range c.messages {
			cp := *m
			msgs = append(msgs, &cp)
		}
		out = append(out, BacklogChat{ChatID: c.chatID, Title: c.title, Messages: msgs})
	}
	return out
}

// Forget drops a chat, used when its archive is deleted.
func (bl *Backlog) Forget(chatID int64) {
	if bl == nil {
		return
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()
	delete(bl.chats, database.KeyOf(chatID))
}
