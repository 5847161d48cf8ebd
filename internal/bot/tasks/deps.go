// Package tasks implements the scheduled tasks of tgassist.
// It includes task definitions, dependencies and registration.
package tasks

import (
	"log/slog"

	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/session"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Sessions *session.Store
}
