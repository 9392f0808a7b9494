// Package tasks implements scheduled tasks for the bot, including task
// definitions, dependencies, and registration.
package tasks

import (
	"log/slog"

	"github.com/graywizard888/nerdmaster/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
}
