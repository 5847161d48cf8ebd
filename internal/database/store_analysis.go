package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StoreAnalysis appends one analysis row and returns it.
func (s *sqlxStore) StoreAnalysis(ctx context.Context, chatID int64, analysisType AnalysisType, content string) (*Analysis, error) {
	if !analysisType.Valid() {
		return nil, fmt.Errorf("unknown analysis type %q", analysisType)
	}

	a := &Analysis{
		ChatID:       chatID,
		ChatKey:      KeyOf(chatID),
		AnalysisType: analysisType,
		Content:      content,
		CreatedAt:    s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis (chat_id, chat_key, analysis_type, content, created_at) VALUES (?, ?, ?, ?, ?);`,
		a.ChatID, a.ChatKey, a.AnalysisType, a.Content, dbTime(a.CreatedAt))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error storing analysis", "chat_id", chatID, "type", analysisType, "error", err)
		return nil, fmt.Errorf("failed to store %s analysis for chat %d: %w", analysisType, chatID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}

	s.logger.DebugContext(ctx, "Analysis stored", "chat_id", chatID, "type", analysisType, "analysis_id", a.ID)
	return a, nil
}

// GetLatestAnalysis returns the newest analysis of the given type for the chat.
func (s *sqlxStore) GetLatestAnalysis(ctx context.Context, chatID int64, analysisType AnalysisType) (*Analysis, error) {
	var a Analysis
	query := `
		SELECT id, chat_id, chat_key, analysis_type, content, created_at
		FROM analysis
		WHERE chat_key = ? AND analysis_type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1;
	`
	err := s.db.GetContext(ctx, &a, query, KeyOf(chatID), analysisType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s analysis for chat %d: %w", analysisType, chatID, err)
	}
	return &a, nil
}

// GetBackgroundAnalysis returns the newest background analysis for the chat.
func (s *sqlxStore) GetBackgroundAnalysis(ctx context.Context, chatID int64) (*Analysis, error) {
	return s.GetLatestAnalysis(ctx, chatID, AnalysisBackground)
}

// CheckAndAnalyzeGroup applies the auto-analysis rule: with no background analysis
// yet, fire once the chat holds AutoAnalyzeThreshold messages; otherwise fire once that
// many messages were inserted after the latest background analysis.
func (s *sqlxStore) CheckAndAnalyzeGroup(ctx context.Context, chatID int64) (bool, error) {
	key := KeyOf(chatID)
	var fire bool
	err := s.inTx(ctx, "check and analyze group", func(tx *sqlx.Tx) error {
		var total int
		if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE chat_key = ?;`, key); err != nil {
			return fmt.Errorf("failed to count messages for chat %d: %w", key, err)
		}
		if total < AutoAnalyzeThreshold {
			return nil
		}

		var analyses int
		if err := tx.GetContext(ctx, &analyses,
			`SELECT COUNT(*) FROM analysis WHERE chat_key = ? AND analysis_type = ?;`,
			key, AnalysisBackground); err != nil {
			return fmt.Errorf("failed to count analyses for chat %d: %w", key, err)
		}
		if analyses == 0 {
			fire = true
			return nil
		}

		// Times are stored as fixed-width UTC text and compared as such.
		var unseen int
		query := `
			SELECT COUNT(*) FROM messages
			WHERE chat_key = ? AND created_at > (
				SELECT created_at FROM analysis
				WHERE chat_key = ? AND analysis_type = ?
				ORDER BY created_at DESC, id DESC
				LIMIT 1
			);
		`
		if err := tx.GetContext(ctx, &unseen, query, key, key, AnalysisBackground); err != nil {
			return fmt.Errorf("failed to count unseen messages for chat %d: %w", key, err)
		}
		fire = unseen >= AutoAnalyzeThreshold
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error checking analysis trigger", "chat_key", key, "error", err)
		return false, err
	}
	return fire, nil
}
