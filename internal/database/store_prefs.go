package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSystemPrompt returns the template for promptType.
func (s *sqlxStore) GetSystemPrompt(ctx context.Context, promptType AnalysisType) (string, error) {
	var text string
	err := s.db.GetContext(ctx, &text,
		`SELECT prompt_text FROM system_prompts WHERE prompt_type = ?;`, promptType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s prompt: %w", promptType, err)
	}
	return text, nil
}

// UpdateSystemPrompt upserts the template for promptType.
func (s *sqlxStore) UpdateSystemPrompt(ctx context.Context, promptType AnalysisType, text string) error {
	if !promptType.Valid() {
		return fmt.Errorf("unknown prompt type %q", promptType)
	}
	query := `
		INSERT INTO system_prompts (prompt_type, prompt_text, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(prompt_type) DO UPDATE SET
			prompt_text = excluded.prompt_text,
			updated_at = excluded.updated_at;
	`
	if _, err := s.db.ExecContext(ctx, query, promptType, text, dbTime(s.now())); err != nil {
		s.logger.ErrorContext(ctx, "Error updating system prompt", "type", promptType, "error", err)
		return fmt.Errorf("failed to update %s prompt: %w", promptType, err)
	}
	s.logger.InfoContext(ctx, "System prompt updated", "type", promptType)
	return nil
}

// GetUserLanguage returns the stored language or the store's default.
func (s *sqlxStore) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := s.db.GetContext(ctx, &lang,
		`SELECT language FROM user_preferences WHERE user_id = ?;`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultLanguage, nil
	}
	if err != nil {
		return s.defaultLanguage, fmt.Errorf("failed to get language for user %d: %w", userID, err)
	}
	return lang, nil
}

// SetUserLanguage upserts the user's language.
func (s *sqlxStore) SetUserLanguage(ctx context.Context, userID int64, language string) error {
	query := `
		INSERT INTO user_preferences (user_id, language, suggest_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			language = excluded.language,
			updated_at = excluded.updated_at;
	`
	if _, err := s.db.ExecContext(ctx, query, userID, language, DefaultSuggestCount, dbTime(s.now())); err != nil {
		return fmt.Errorf("failed to set language for user %d: %w", userID, err)
	}
	return nil
}

// GetSuggestCount returns the user's suggestion window or DefaultSuggestCount.
func (s *sqlxStore) GetSuggestCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT suggest_count FROM user_preferences WHERE user_id = ?;`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSuggestCount, nil
	}
	if err != nil {
		return DefaultSuggestCount, fmt.Errorf("failed to get suggest count for user %d: %w", userID, err)
	}
	return count, nil
}

// SetSuggestCount upserts the user's suggestion window. Range checks belong to the caller.
func (s *sqlxStore) SetSuggestCount(ctx context.Context, userID int64, count int) error {
	query := `
		INSERT INTO user_preferences (user_id, language, suggest_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			suggest_count = excluded.suggest_count,
			updated_at = excluded.updated_at;
	`
	if _, err := s.db.ExecContext(ctx, query, userID, s.defaultLanguage, count, dbTime(s.now())); err != nil {
		return fmt.Errorf("failed to set suggest count for user %d: %w", userID, err)
	}
	return nil
}
