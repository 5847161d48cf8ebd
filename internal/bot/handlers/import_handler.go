package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgassist/internal/i18n"
	"github.com/edgard/tgassist/internal/importer"
)

const (
	downloadTimeout = 60 * time.Second
	// maxDocumentSize is the largest file the Bot API lets bots download.
	maxDocumentSize = 20 << 20
)

// NewImportHandler returns a handler for /import. The export itself arrives as a
// document and is handled by importDocument.
func NewImportHandler(deps HandlerDeps) bot.HandlerFunc {
	return importHandler{deps}.Handle
}

type importHandler struct {
	deps HandlerDeps
}

func (h importHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "import")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	msgs := h.deps.messages(ctx, update.Message.From.ID)
	sendText(ctx, b, log, update.Message.Chat.ID, msgs.ImportPrompt, nil)
}

// importDocument downloads a Telegram JSON export sent by the owner and archives it,
// editing one status message as batches complete.
func importDocument(ctx context.Context, b *bot.Bot, deps HandlerDeps, msg *models.Message) {
	log := deps.Logger.With("handler", "import_document")
	chatID := msg.Chat.ID
	msgs := deps.messages(ctx, msg.From.ID)
	doc := msg.Document

	if !strings.EqualFold(filepath.Ext(doc.FileName), ".json") {
		sendText(ctx, b, log, chatID, msgs.ImportWrongExt, nil)
		return
	}

	status, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msgs.ImportDownloading})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send import status", "chat_id", chatID, "error", err)
		return
	}
	setStatus := func(text string) {
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{ChatID: chatID, MessageID: status.ID, Text: text}); err != nil {
			log.WarnContext(ctx, "Failed to update import status", "chat_id", chatID, "error", err)
		}
	}

	data, err := downloadDocument(ctx, b, deps, doc.FileID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to download export", "file_name", doc.FileName, "error", err)
		setStatus(fmt.Sprintf(msgs.ImportFailed, err))
		return
	}

	exp, err := importer.Parse(bytes.NewReader(data))
	if err != nil {
		log.WarnContext(ctx, "Rejected export", "file_name", doc.FileName, "error", err)
		setStatus(importErrorText(msgs, err))
		return
	}

	exists, count, err := deps.Store.CheckChatExists(ctx, exp.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to check chat before import", "chat_id", exp.ID, "error", err)
		setStatus(fmt.Sprintf(msgs.ImportFailed, err))
		return
	}
	if exists {
		setStatus(fmt.Sprintf(msgs.ImportExisting, exp.Name, exp.ID, count))
	} else {
		setStatus(fmt.Sprintf(msgs.ImportStarting, exp.Name, exp.ID))
	}

	p, err := deps.Importer.Import(ctx, exp, func(p importer.Progress) {
		if !p.Done {
			setStatus(fmt.Sprintf(msgs.ImportProgress, p.Total, p.New))
		}
	})
	if err != nil {
		setStatus(fmt.Sprintf(msgs.ImportFailed, err))
		return
	}
	setStatus(fmt.Sprintf(msgs.ImportDone, p.ChatName, p.Total, p.New))
}

func importErrorText(msgs *i18n.Messages, err error) string {
	switch {
	case errors.Is(err, importer.ErrNoMessages):
		return msgs.ImportNoMessages
	case errors.Is(err, importer.ErrInvalidJSON):
		return msgs.ImportInvalidJSON
	default:
		return fmt.Sprintf(msgs.ImportFailed, err)
	}
}

// downloadDocument fetches a file through getFile and the Bot API file endpoint.
func downloadDocument(ctx context.Context, b *bot.Bot, deps HandlerDeps, fileID string) ([]byte, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	file, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("empty file path returned from Telegram")
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", deps.fileServer(), deps.Config.Telegram.Token, file.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := deps.httpClient().Do(req)
	if err != nil {
		// The URL carries the bot token.
		var urlErr *neturl.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("file larger than %d bytes", maxDocumentSize)
	}
	return data, nil
}
