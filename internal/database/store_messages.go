package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const insertMessageQuery = `
	INSERT INTO messages (chat_id, chat_key, user_id, username, message_text, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
`

func validateMessage(msg *Message) error {
	if msg == nil {
		return errors.New("cannot store nil message")
	}
	if msg.ChatID == 0 {
		return errors.New("message must have a non-zero chat_id")
	}
	if msg.Timestamp == "" {
		return errors.New("message must have a timestamp")
	}
	return nil
}

// prepare normalizes the row before insertion and stamps its insertion time.
func (s *sqlxStore) prepare(msg *Message, now time.Time) {
	msg.ChatKey = KeyOf(msg.ChatID)
	if msg.Username == "" {
		msg.Username = UnknownUsername
	}
	msg.CreatedAt = now.UTC()
}

func (s *sqlxStore) insertMessage(ctx context.Context, tx *sqlx.Tx, msg *Message) error {
	res, err := tx.ExecContext(ctx, insertMessageQuery,
		msg.ChatID, msg.ChatKey, msg.UserID, msg.Username, msg.MessageText, msg.Timestamp, dbTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message (chat %d, user %d): %w", msg.ChatID, msg.UserID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// StoreMessage appends one message. Live ingestion uses this path and does not dedup.
func (s *sqlxStore) StoreMessage(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	s.prepare(msg, s.now())

	err := s.inTx(ctx, "store message", func(tx *sqlx.Tx) error {
		return s.insertMessage(ctx, tx, msg)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error storing message", "chat_id", msg.ChatID, "user_id", msg.UserID, "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "Message stored", "chat_id", msg.ChatID, "message_id", msg.ID)
	return nil
}

// StoreMessagesBatch inserts the rows whose timestamp is strictly greater than the
// chat's stored watermark. All rows must belong to the same chat key.
func (s *sqlxStore) StoreMessagesBatch(ctx context.Context, msgs []*Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	for _, msg := range msgs {
		if err := validateMessage(msg); err != nil {
			return 0, err
		}
	}

	key := KeyOf(msgs[0].ChatID)
	for _, msg := range msgs[1:] {
		if KeyOf(msg.ChatID) != key {
			return 0, fmt.Errorf("%w: %d and %d", ErrMixedChats, msgs[0].ChatID, msg.ChatID)
		}
	}

	inserted := 0
	err := s.inTx(ctx, "store message batch", func(tx *sqlx.Tx) error {
		var watermark sql.NullString
		if err := tx.GetContext(ctx, &watermark,
			`SELECT MAX(timestamp) FROM messages WHERE chat_key = ?;`, key); err != nil {
			return fmt.Errorf("failed to read latest timestamp for chat %d: %w", key, err)
		}

		now := s.now()
		for _, msg := range msgs {
			if watermark.Valid && msg.Timestamp <= watermark.String {
				continue
			}
			s.prepare(msg, now)
			if err := s.insertMessage(ctx, tx, msg); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error storing message batch", "chat_key", key, "size", len(msgs), "error", err)
		return 0, err
	}

	s.logger.DebugContext(ctx, "Message batch stored", "chat_key", key, "size", len(msgs), "inserted", inserted)
	return inserted, nil
}

// GetChatHistory returns the first limit messages of the chat ordered by timestamp.
func (s *sqlxStore) GetChatHistory(ctx context.Context, chatID int64, limit int) ([]Line, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var lines []Line
	query := `
		SELECT username, message_text, timestamp
		FROM messages
		WHERE chat_key = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ?;
	`
	if err := s.db.SelectContext(ctx, &lines, query, KeyOf(chatID), limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting chat history", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get chat history for chat %d: %w", chatID, err)
	}
	return lines, nil
}

// GetRecentMessages returns the newest limit messages, reordered oldest first.
func (s *sqlxStore) GetRecentMessages(ctx context.Context, chatID int64, limit int) ([]Line, error) {
	if limit <= 0 {
		limit = DefaultSuggestCount
	}

	var lines []Line
	query := `
		SELECT username, message_text, timestamp FROM (
			SELECT id, username, message_text, timestamp
			FROM messages
			WHERE chat_key = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC;
	`
	if err := s.db.SelectContext(ctx, &lines, query, KeyOf(chatID), limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "chat_id", chatID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for chat %d: %w", chatID, err)
	}
	return lines, nil
}

// GetTodayMessages returns messages whose timestamp date, as written by the origin,
// equals the calendar date of day.
func (s *sqlxStore) GetTodayMessages(ctx context.Context, chatID int64, day time.Time) ([]Line, error) {
	var lines []Line
	query := `
		SELECT username, message_text, timestamp
		FROM messages
		WHERE chat_key = ? AND substr(timestamp, 1, 10) = ?
		ORDER BY timestamp DESC, id DESC;
	`
	if err := s.db.SelectContext(ctx, &lines, query, KeyOf(chatID), day.Format(dayLayout)); err != nil {
		s.logger.ErrorContext(ctx, "Error getting today's messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get today's messages for chat %d: %w", chatID, err)
	}
	return lines, nil
}

// GetLatestMessageTime returns the watermark used by the batch dedup rule.
func (s *sqlxStore) GetLatestMessageTime(ctx context.Context, chatID int64) (string, bool, error) {
	var latest sql.NullString
	if err := s.db.GetContext(ctx, &latest,
		`SELECT MAX(timestamp) FROM messages WHERE chat_key = ?;`, KeyOf(chatID)); err != nil {
		return "", false, fmt.Errorf("failed to get latest message time for chat %d: %w", chatID, err)
	}
	return latest.String, latest.Valid, nil
}

// CheckChatExists reports whether any message is archived for the chat.
func (s *sqlxStore) CheckChatExists(ctx context.Context, chatID int64) (bool, int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE chat_key = ?;`, KeyOf(chatID)); err != nil {
		return false, 0, fmt.Errorf("failed to count messages for chat %d: %w", chatID, err)
	}
	return count > 0, count, nil
}

const groupTitleExpr = `
	COALESCE((
		SELECT ci.chat_title FROM chat_info ci
		WHERE ci.chat_key = g.chat_key
		ORDER BY ci.last_updated DESC, ci.id DESC
		LIMIT 1
	), ?) AS chat_title
`

// GetAllGroups lists one entry per distinct chat key, sorted by key.
func (s *sqlxStore) GetAllGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	query := `SELECT g.chat_key, ` + groupTitleExpr + `
		FROM (SELECT DISTINCT chat_key FROM messages) g
		ORDER BY g.chat_key;`
	if err := s.db.SelectContext(ctx, &groups, query, UnknownGroupTitle); err != nil {
		s.logger.ErrorContext(ctx, "Error listing groups", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// GetGroupInfo returns the archived chat or ErrNotFound when it has no messages.
func (s *sqlxStore) GetGroupInfo(ctx context.Context, chatID int64) (*Group, error) {
	var group Group
	query := `SELECT g.chat_key, ` + groupTitleExpr + `
		FROM (SELECT DISTINCT chat_key FROM messages WHERE chat_key = ?) g;`
	err := s.db.GetContext(ctx, &group, query, UnknownGroupTitle, KeyOf(chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", chatID, err)
	}
	return &group, nil
}

// UpdateChatInfo appends a title observation. Blank titles are ignored.
func (s *sqlxStore) UpdateChatInfo(ctx context.Context, chatID int64, title string) error {
	if title == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_info (chat_id, chat_key, chat_title, last_updated) VALUES (?, ?, ?, ?);`,
		chatID, KeyOf(chatID), title, dbTime(s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating chat info", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to update chat info for chat %d: %w", chatID, err)
	}
	return nil
}

// DeleteChatHistory removes every row of the chat from messages, chat_info and
// analysis atomically and reports whether anything was removed.
func (s *sqlxStore) DeleteChatHistory(ctx context.Context, chatID int64) (bool, error) {
	key := KeyOf(chatID)
	var removed int64
	err := s.inTx(ctx, "delete chat history", func(tx *sqlx.Tx) error {
		for _, table := range []string{"messages", "chat_info", "analysis"} {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE chat_key = ?;`, key)
			if err != nil {
				return fmt.Errorf("failed to delete from %s for chat %d: %w", table, key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows from %s: %w", table, err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting chat history", "chat_key", key, "error", err)
		return false, err
	}

	s.logger.InfoContext(ctx, "Chat history deleted", "chat_key", key, "rows", removed)
	return removed > 0, nil
}
