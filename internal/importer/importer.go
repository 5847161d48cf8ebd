// Package importer loads Telegram desktop JSON chat exports into the message archive.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/edgard/tgassist/internal/database"
)

var (
	// ErrInvalidJSON is returned when the export cannot be decoded.
	ErrInvalidJSON = errors.New("invalid export JSON")
	// ErrNoMessages is returned when the export has no messages array.
	ErrNoMessages = errors.New("export has no messages")
)

// BatchSize is the number of messages stored per batch; progress is reported between batches.
const BatchSize = 100

// Export is the subset of a Telegram chat export the archive uses.
type Export struct {
	ID       int64
	Name     string
	Messages []*database.Message
}

type rawExport struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Messages *[]rawMessage `json:"messages"`
}

type rawMessage struct {
	Type   string          `json:"type"`
	Date   string          `json:"date"`
	From   *string         `json:"from"`
	FromID json.RawMessage `json:"from_id"`
	Text   json.RawMessage `json:"text"`
}

// Parse decodes an export. Only entries of type "message" that carry a text field
// and a date are kept; rich text arrays are flattened with single spaces.
func Parse(r io.Reader) (*Export, error) {
	var raw rawExport
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if raw.Messages == nil {
		return nil, ErrNoMessages
	}
	if raw.ID == 0 {
		return nil, fmt.Errorf("%w: missing chat id", ErrInvalidJSON)
	}

	name := raw.Name
	if name == "" {
		name = database.UnknownGroupTitle
	}
	exp := &Export{ID: raw.ID, Name: name}
	for _, m := range *raw.Messages {
		if m.Type != "message" || len(m.Text) == 0 || m.Date == "" {
			continue
		}
		text, err := flattenText(m.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: message text: %v", ErrInvalidJSON, err)
		}
		username := database.UnknownUsername
		if m.From != nil && *m.From != "" {
			username = *m.From
		}
		exp.Messages = append(exp.Messages, &database.Message{
			ChatID:      raw.ID,
			UserID:      parseUserID(m.FromID),
			Username:    username,
			MessageText: text,
			Timestamp:   m.Date,
		})
	}
	return exp, nil
}

// flattenText accepts a plain string or an array of strings and {"text": ...} entities.
func flattenText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", err
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var ps string
		if err := json.Unmarshal(p, &ps); err == nil {
			out = append(out, ps)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(p, &entity); err != nil {
			return "", err
		}
		out = append(out, entity.Text)
	}
	return strings.Join(out, " "), nil
}

// parseUserID turns "user123" into 123. Other sender kinds map to 0.
func parseUserID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "user"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Progress describes an import in flight or finished.
type Progress struct {
	ChatID   int64
	ChatName string
	// Existing is the number of archived messages before the import started.
	Existing int
	Total    int
	New      int
	Done     bool
}

// ProgressFunc receives progress after every stored batch and once at the end.
type ProgressFunc func(Progress)

// Importer stores parsed exports through the deduplicating batch path.
type Importer struct {
	store database.Store
	log   *slog.Logger
}

// New creates an Importer.
func New(store database.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{store: store, log: logger.With("component", "importer")}
}

// ImportReader parses r and imports it.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, progress ProgressFunc) (Progress, error) {
	exp, err := Parse(r)
	if err != nil {
		return Progress{}, err
	}
	return im.Import(ctx, exp, progress)
}

// Import records the chat title and stores the messages in batches of BatchSize.
// On failure the batches committed so far stay and the returned Progress counts them.
func (im *Importer) Import(ctx context.Context, exp *Export, progress ProgressFunc) (Progress, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	p := Progress{ChatID: exp.ID, ChatName: exp.Name}
	_, existing, err := im.store.CheckChatExists(ctx, exp.ID)
	if err != nil {
		return p, err
	}
	p.Existing = existing

	if err := im.store.UpdateChatInfo(ctx, exp.ID, exp.Name); err != nil {
		return p, err
	}

	for start := 0; start < len(exp.Messages); start += BatchSize {
		end := min(start+BatchSize, len(exp.Messages))
		inserted, err := im.store.StoreMessagesBatch(ctx, exp.Messages[start:end])
		if err != nil {
			im.log.ErrorContext(ctx, "Import batch failed", "chat_id", exp.ID, "offset", start, "error", err)
			return p, fmt.Errorf("import stopped after %d messages: %w", p.Total, err)
		}
		p.Total = end
		p.New += inserted
		if end < len(exp.Messages) {
			progress(p)
		}
	}

	p.Done = true
	progress(p)
	im.log.InfoContext(ctx, "Import finished", "chat_id", exp.ID, "total", p.Total, "new", p.New)
	return p, nil
}
