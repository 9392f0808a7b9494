package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/database"
	"github.com/graywizard888/nerdmaster/internal/metrics"
)

// updateGroupSettings loads (or initializes) the group settings row,
// applies mutate, and saves it back.
func updateGroupSettings(ctx context.Context, deps HandlerDeps, msg *models.Message, mutate func(*database.GroupSettings)) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	settings, err := deps.Store.GetGroupSettings(dbCtx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = defaultGroupSettings(msg.Chat.ID, msg.Chat.Title)
	}
	settings.ChatTitle = msg.Chat.Title

	mutate(settings)

	return deps.Store.SaveGroupSettings(dbCtx, settings)
}

func sendGeneralError(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   deps.Config.Messages.GeneralError,
	}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send error message", "error", err, "chat_id", chatID)
	}
}

// greetNewMembers sends the configured welcome message for each new
// member joining the group. Bots joining (including this one) are not
// greeted.
func greetNewMembers(ctx context.Context, b *bot.Bot, deps HandlerDeps, msg *models.Message) {
	log := deps.Logger.With("handler", "welcome")
	chatID := msg.Chat.ID

	settings := loadGroupSettings(ctx, deps, msg)
	if settings != nil && !settings.WelcomeEnabled {
		log.DebugContext(ctx, "Welcome messages disabled for group", "chat_id", chatID)
		return
	}

	template := deps.Config.Messages.GroupWelcome
	if settings != nil && settings.WelcomeMessage != "" {
		template = settings.WelcomeMessage
	}

	memberCount := 0
	if count, err := b.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chatID}); err != nil {
		log.WarnContext(ctx, "Failed to get chat member count", "error", err, "chat_id", chatID)
	} else {
		memberCount = count
	}

	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.IsBot {
			continue
		}

		text := formatWelcome(template, member, msg.Chat.Title, memberCount)
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send welcome message", "error", err,
				"chat_id", chatID, "user_id", member.ID)
			continue
		}
		log.InfoContext(ctx, "Welcomed new member", "chat_id", chatID, "user_id", member.ID)
	}
}

// NewSetWelcomeHandler returns a handler for the /setwelcome command,
// which stores a custom welcome template for the group. The template
// may use the {name}, {username}, {chat}, and {count} placeholders.
func NewSetWelcomeHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "setwelcome")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("setwelcome")
		chatID := msg.Chat.ID

		template := commandArgs(msg.Text)
		if template == "" {
			usage := "Usage: /setwelcome <template>\nPlaceholders: {name} {username} {chat} {count}"
			if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage}); err != nil {
				log.ErrorContext(ctx, "Failed to send usage", "error", err, "chat_id", chatID)
			}
			return
		}

		if err := updateGroupSettings(ctx, deps, msg, func(s *database.GroupSettings) {
			s.WelcomeMessage = template
			s.WelcomeEnabled = true
		}); err != nil {
			log.ErrorContext(ctx, "Failed to save welcome template", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		preview := formatWelcome(template, msg.From, msg.Chat.Title, 0)
		text := fmt.Sprintf("Welcome template saved. Preview:\n%s", preview)
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
		}
	}
}

// NewToggleWelcomeHandler returns a handler for the /togglewelcome
// command, flipping welcome messages on or off for the group.
func NewToggleWelcomeHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "togglewelcome")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("togglewelcome")
		chatID := msg.Chat.ID

		var enabled bool
		if err := updateGroupSettings(ctx, deps, msg, func(s *database.GroupSettings) {
			s.WelcomeEnabled = !s.WelcomeEnabled
			enabled = s.WelcomeEnabled
		}); err != nil {
			log.ErrorContext(ctx, "Failed to toggle welcome messages", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		log.InfoContext(ctx, "Welcome messages toggled", "chat_id", chatID, "enabled", enabled)

		text := fmt.Sprintf("Welcome messages are now %s.", onOff(enabled))
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
		}
	}
}

// NewToggleAIHandler returns a handler for the /toggleai command,
// flipping AI responses on or off for the group. While off, no provider
// calls are made for messages in the group.
func NewToggleAIHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "toggleai")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("toggleai")
		chatID := msg.Chat.ID

		enabled, err := toggleAI(ctx, deps, msg)
		if err != nil {
			log.ErrorContext(ctx, "Failed to toggle AI responses", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		log.InfoContext(ctx, "AI responses toggled", "chat_id", chatID, "enabled", enabled)

		text := fmt.Sprintf("AI responses are now %s.", onOff(enabled))
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
		}
	}
}

// toggleAI flips the group AI setting and reports the new state.
// Switching off also drops the retained conversation context so a later
// re-enable starts fresh.
func toggleAI(ctx context.Context, deps HandlerDeps, msg *models.Message) (bool, error) {
	var enabled bool
	err := updateGroupSettings(ctx, deps, msg, func(s *database.GroupSettings) {
		s.AIEnabled = !s.AIEnabled
		enabled = s.AIEnabled
	})
	if err != nil {
		return false, err
	}
	if !enabled {
		deps.History.Clear(msg.Chat.ID)
	}
	return enabled, nil
}
