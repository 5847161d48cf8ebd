package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMixedChats is returned when a batch spans more than one chat.
	ErrMixedChats = errors.New("batch contains messages from more than one chat")
)

const (
	// AutoAnalyzeThreshold is the number of unseen messages that triggers a background analysis.
	AutoAnalyzeThreshold = 20
	// DefaultHistoryLimit bounds GetChatHistory when the caller passes no limit.
	DefaultHistoryLimit = 100
	// DefaultSuggestCount is the suggestion window used when a user has not set one.
	DefaultSuggestCount = 5

	// timeLayout is fixed width so stored times compare correctly as text.
	timeLayout = "2006-01-02 15:04:05.000000000-07:00"
	dayLayout  = "2006-01-02"
)

// Store defines the data access layer. Every method runs as its own transaction (or
// single statement) and is safe for concurrent use. Chat ids are normalized with KeyOf,
// so a chat stored under -c is the same chat as c.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// StoreMessage appends one message without deduplication.
	StoreMessage(ctx context.Context, msg *Message) error
	// StoreMessagesBatch inserts only messages newer than the chat's latest stored
	// timestamp and returns how many rows were inserted.
	StoreMessagesBatch(ctx context.Context, msgs []*Message) (int, error)
	// GetChatHistory returns up to limit messages, oldest first.
	GetChatHistory(ctx context.Context, chatID int64, limit int) ([]Line, error)
	// GetRecentMessages returns the latest limit messages, oldest first.
	GetRecentMessages(ctx context.Context, chatID int64, limit int) ([]Line, error)
	// GetTodayMessages returns messages whose timestamp falls on day, newest first.
	GetTodayMessages(ctx context.Context, chatID int64, day time.Time) ([]Line, error)
	// GetLatestMessageTime returns the greatest stored timestamp for the chat.
	GetLatestMessageTime(ctx context.Context, chatID int64) (string, bool, error)

	// GetAllGroups lists every archived chat with its latest title.
	GetAllGroups(ctx context.Context) ([]Group, error)
	// GetGroupInfo returns one archived chat or ErrNotFound.
	GetGroupInfo(ctx context.Context, chatID int64) (*Group, error)
	// CheckChatExists reports whether the chat has messages and how many.
	CheckChatExists(ctx context.Context, chatID int64) (bool, int, error)
	// UpdateChatInfo records a title observation for the chat.
	UpdateChatInfo(ctx context.Context, chatID int64, title string) error
	// DeleteChatHistory removes messages, titles and analyses of the chat.
	DeleteChatHistory(ctx context.Context, chatID int64) (bool, error)

	// StoreAnalysis appends a model output for the chat.
	StoreAnalysis(ctx context.Context, chatID int64, analysisType AnalysisType, content string) (*Analysis, error)
	// GetLatestAnalysis returns the newest analysis of the given type or ErrNotFound.
	GetLatestAnalysis(ctx context.Context, chatID int64, analysisType AnalysisType) (*Analysis, error)
	// GetBackgroundAnalysis is GetLatestAnalysis for AnalysisBackground.
	GetBackgroundAnalysis(ctx context.Context, chatID int64) (*Analysis, error)
	// CheckAndAnalyzeGroup reports whether a new background analysis should run.
	CheckAndAnalyzeGroup(ctx context.Context, chatID int64) (bool, error)

	// GetSystemPrompt returns the prompt template for the type or ErrNotFound.
	GetSystemPrompt(ctx context.Context, promptType AnalysisType) (string, error)
	// UpdateSystemPrompt replaces the prompt template for the type.
	UpdateSystemPrompt(ctx context.Context, promptType AnalysisType, text string) error

	// GetUserLanguage returns the user's language or the default language.
	GetUserLanguage(ctx context.Context, userID int64) (string, error)
	// SetUserLanguage stores the user's language.
	SetUserLanguage(ctx context.Context, userID int64, language string) error
	// GetSuggestCount returns the user's suggestion window or DefaultSuggestCount.
	GetSuggestCount(ctx context.Context, userID int64) (int, error)
	// SetSuggestCount stores the user's suggestion window.
	SetSuggestCount(ctx context.Context, userID int64, count int) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db              *sqlx.DB
	logger          *slog.Logger
	defaultLanguage string
	now             func() time.Time
}

// NewStore creates a new Store backed by sqlx. defaultLanguage is returned for users
// without a stored preference.
func NewStore(db *sqlx.DB, logger *slog.Logger, defaultLanguage string) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:              db,
		logger:          logger.With("component", "store"),
		defaultLanguage: defaultLanguage,
		now:             time.Now,
	}
}

// dbTime renders t in the stored time layout.
func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction and commits it when fn succeeds.
func (s *sqlxStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction for %s: %w", op, err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction for %s: %w", op, err)
	}
	return nil
}

// RunSQLMaintenance executes VACUUM. It cannot run inside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
			return err
		}
		s.logger.ErrorContext(ctx, "Error running VACUUM", "error", err)
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully", "duration", time.Since(start))
	return nil
}
