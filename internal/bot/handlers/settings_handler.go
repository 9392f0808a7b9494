package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/metrics"
)

// NewSettingsHandler returns a handler for the /settings command. It
// shows the effective settings for the current chat: group settings in
// groups, personal settings in private chats.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "settings")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("settings")
		chatID := msg.Chat.ID

		var sb strings.Builder

		if msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup {
			settings := loadGroupSettings(ctx, deps, msg)
			if settings == nil {
				settings = defaultGroupSettings(chatID, msg.Chat.Title)
			}
			provider := settings.Provider
			if provider == "" {
				provider = deps.Providers.DefaultName() + " (default)"
			}
			fmt.Fprintf(&sb, "Group settings for %s:\n", msg.Chat.Title)
			fmt.Fprintf(&sb, "AI responses: %s\n", onOff(settings.AIEnabled))
			fmt.Fprintf(&sb, "Provider: %s\n", provider)
			fmt.Fprintf(&sb, "Welcome messages: %s\n", onOff(settings.WelcomeEnabled))
			if settings.WelcomeMessage != "" {
				fmt.Fprintf(&sb, "Welcome template: %s\n", settings.WelcomeMessage)
			}
		} else {
			dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
			defer cancel()

			settings, err := deps.Store.GetUserSettings(dbCtx, msg.From.ID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to load user settings", "error", err, "user_id", msg.From.ID)
			}
			provider := deps.Providers.DefaultName() + " (default)"
			if settings != nil && settings.Provider != "" {
				provider = settings.Provider
			}
			fmt.Fprintf(&sb, "Your settings:\n")
			fmt.Fprintf(&sb, "Provider: %s\n", provider)
		}

		fmt.Fprintf(&sb, "Conversation memory: last %d messages", deps.Config.AI.HistorySize)

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()}); err != nil {
			log.ErrorContext(ctx, "Failed to send settings", "error", err, "chat_id", chatID)
		}
	}
}

// NewStatsHandler returns a handler for the /stats command, summarizing
// the requesting user's AI usage by provider and model.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "stats")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("stats")
		chatID := msg.Chat.ID

		dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()

		summaries, err := deps.Store.GetUsageSummary(dbCtx, msg.From.ID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load usage summary", "error", err, "user_id", msg.From.ID)
			if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.GeneralError,
			}); sendErr != nil {
				log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
			}
			return
		}

		if len(summaries) == 0 {
			if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "No usage recorded yet. Ask me something with /ask!",
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send empty stats", "error", err, "chat_id", chatID)
			}
			return
		}

		var sb strings.Builder
		sb.WriteString("Your AI usage:\n")
		var totalRequests, totalTokens int64
		for _, s := range summaries {
			fmt.Fprintf(&sb, "%s/%s: %d requests, %d tokens\n", s.Provider, s.Model, s.Requests, s.TotalTokens)
			totalRequests += s.Requests
			totalTokens += s.TotalTokens
		}
		fmt.Fprintf(&sb, "Total: %d requests, %d tokens", totalRequests, totalTokens)

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()}); err != nil {
			log.ErrorContext(ctx, "Failed to send stats", "error", err, "chat_id", chatID)
		}
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
