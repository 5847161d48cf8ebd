package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/edgard/tgassist/internal/analysis"
	"github.com/edgard/tgassist/internal/config"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/i18n"
	"github.com/edgard/tgassist/internal/importer"
	"github.com/edgard/tgassist/internal/llm"
	"github.com/edgard/tgassist/internal/session"
)

// DefaultFileServer serves documents referenced by getFile results.
const DefaultFileServer = "https://api.telegram.org"

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	LLM      llm.Client
	Analysis *analysis.Service
	Importer *importer.Importer
	Sessions *session.Store
	Backlog  *Backlog

	// HTTPClient downloads imported documents. Nil means http.DefaultClient.
	HTTPClient *http.Client
	// FileServer is the base URL of the Telegram file endpoint. Empty means DefaultFileServer.
	FileServer string
}

// messages returns the catalog in the language userID picked.
func (d HandlerDeps) messages(ctx context.Context, userID int64) *i18n.Messages {
	lang, err := d.Store.GetUserLanguage(ctx, userID)
	if err != nil {
		d.Logger.WarnContext(ctx, "Failed to load user language, using default", "user_id", userID, "error", err)
		return i18n.Lookup(d.Config.Bot.DefaultLanguage)
	}
	return i18n.Lookup(lang)
}

func (d HandlerDeps) isOwner(userID int64) bool {
	return userID == d.Config.Telegram.OwnerID
}

func (d HandlerDeps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

func (d HandlerDeps) fileServer() string {
	if d.FileServer != "" {
		return d.FileServer
	}
	return DefaultFileServer
}
