package handlers

import (
	"log/slog"

	"github.com/graywizard888/nerdmaster/internal/ai"
	"github.com/graywizard888/nerdmaster/internal/config"
	"github.com/graywizard888/nerdmaster/internal/database"
	"github.com/graywizard888/nerdmaster/internal/history"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	History   *history.Store
	Providers *ai.Registry
}
