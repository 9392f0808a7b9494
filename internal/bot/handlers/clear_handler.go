package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/metrics"
)

// NewClearHandler returns a handler for the /clear command, which drops
// the conversation history for the current chat.
func NewClearHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "clear")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("clear")

		deps.History.Clear(msg.Chat.ID)
		log.InfoContext(ctx, "Conversation history cleared", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   deps.Config.Messages.HistoryCleared,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}
