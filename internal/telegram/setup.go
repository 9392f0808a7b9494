// Package telegram handles the setup and registration of Telegram bot
// handlers.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/bot/handlers"
)

// NewTelegramBot creates a new Telegram bot instance using the
// go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPreview(token))
	return b, nil
}

// tokenPreview returns a loggable prefix of the bot token without
// exposing the whole secret.
func tokenPreview(token string) string {
	return token[:min(len(token), 8)] + "..."
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice
// is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers command and message handlers with the
// Telegram bot instance, applying each handler's middleware.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registeredHandlers map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	log.Info("Registering Telegram handlers...", "count", len(registeredHandlers))

	for _, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", regHandler.Pattern)
			continue
		}

		finalHandler := applyMiddleware(regHandler.Handler, regHandler.Middleware)
		b.RegisterHandler(regHandler.HandlerType, regHandler.Pattern, regHandler.MatchType, finalHandler)
		log.Debug("Registered handler", "pattern", regHandler.Pattern,
			"match_type", regHandler.MatchType, "middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}

// commandDescriptions feeds the command menu Telegram shows when a user
// types "/". Admin moderation commands are left out of the menu.
var commandDescriptions = map[string]string{
	"/start":    "Introduce the bot",
	"/help":     "Show available commands",
	"/ask":      "Ask the AI a question",
	"/provider": "Switch AI provider and model",
	"/models":   "List AI providers and models",
	"/clear":    "Clear conversation history",
	"/settings": "Show current settings",
	"/stats":    "Show your AI usage",
}

// SetCommandMenu publishes the user-facing command list via
// SetMyCommands.
func SetCommandMenu(ctx context.Context, b *bot.Bot, logger *slog.Logger) error {
	names := make([]string, 0, len(commandDescriptions))
	for name := range commandDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	commands := make([]models.BotCommand, 0, len(names))
	for _, name := range names {
		commands = append(commands, models.BotCommand{
			Command:     strings.TrimPrefix(name, "/"),
			Description: commandDescriptions[name],
		})
	}

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}

	logger.Info("Published bot command menu", "count", len(commands))
	return nil
}
