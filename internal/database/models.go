package database

import "time"

// AnalysisType identifies which kind of model output an Analysis row holds.
// The same values key the configurable SystemPrompt rows.
type AnalysisType string

const (
	AnalysisBackground AnalysisType = "background"
	AnalysisActions    AnalysisType = "actions"
	AnalysisSuggestion AnalysisType = "suggestion"
)

// AnalysisTypes lists every analysis type in menu order.
var AnalysisTypes = []AnalysisType{AnalysisBackground, AnalysisActions, AnalysisSuggestion}

// Valid reports whether t is one of the known analysis types.
func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisBackground, AnalysisActions, AnalysisSuggestion:
		return true
	}
	return false
}

// UnknownUsername is stored when a sender has neither a handle nor a first name.
const UnknownUsername = "unknown"

// UnknownGroupTitle is reported for chats without any recorded title.
const UnknownGroupTitle = "Unknown Group"

// Message is one archived chat message. Rows are never updated.
// Timestamp is the origin-supplied ISO-8601 text; CreatedAt is assigned by the store.
type Message struct {
	ID          int64     `db:"id"`
	ChatID      int64     `db:"chat_id"`
	ChatKey     ChatKey   `db:"chat_key"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	MessageText string    `db:"message_text"`
	Timestamp   string    `db:"timestamp"`
	CreatedAt   time.Time `db:"created_at"`
}

// ChatInfo is one observation of a chat title.
type ChatInfo struct {
	ID          int64     `db:"id"`
	ChatID      int64     `db:"chat_id"`
	ChatKey     ChatKey   `db:"chat_key"`
	ChatTitle   string    `db:"chat_title"`
	LastUpdated time.Time `db:"last_updated"`
}

// Analysis is a stored model output for a chat. The latest row per type wins.
type Analysis struct {
	ID           int64        `db:"id"`
	ChatID       int64        `db:"chat_id"`
	ChatKey      ChatKey      `db:"chat_key"`
	AnalysisType AnalysisType `db:"analysis_type"`
	Content      string       `db:"content"`
	CreatedAt    time.Time    `db:"created_at"`
}

// SystemPrompt is the editable instruction template for one analysis type.
type SystemPrompt struct {
	ID         int64        `db:"id"`
	PromptType AnalysisType `db:"prompt_type"`
	PromptText string       `db:"prompt_text"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

// UserPreference holds per-user settings.
type UserPreference struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Language     string    `db:"language"`
	SuggestCount int       `db:"suggest_count"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Group is a distinct archived chat with its best-known title.
// ID is the normalized chat key.
type Group struct {
	ID    int64  `db:"chat_key"`
	Title string `db:"chat_title"`
}

// Line is the projection of a Message used for transcripts.
type Line struct {
	Username    string `db:"username"`
	MessageText string `db:"message_text"`
	Timestamp   string `db:"timestamp"`
}

// TimestampLayout is how live messages render Timestamp. It matches the local-time
// dates of Telegram desktop exports so both sources order and dedup together.
const TimestampLayout = "2006-01-02T15:04:05"
