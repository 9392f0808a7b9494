// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that checks if the message sender is the
// configured bot admin. If not, it sends a "Not Authorized" message and
// stops processing.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if userID != deps.Config.Telegram.AdminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   deps.Config.Messages.NotAuthorized,
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

// GroupOnly creates a middleware that restricts a command to group and
// supergroup chats.
func GroupOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, bot, update)
				return
			}

			chatType := update.Message.Chat.Type
			if chatType != models.ChatTypeGroup && chatType != models.ChatTypeSupergroup {
				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   deps.Config.Messages.GroupOnly,
				})
				if err != nil {
					deps.Logger.ErrorContext(ctx, "Failed to send group-only message",
						"error", err, "chat_id", update.Message.Chat.ID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

// ChatAdminOnly creates a middleware that checks if the sender is an
// administrator or the owner of the chat. The configured bot admin
// always passes.
func ChatAdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			// In a private chat the user manages their own settings.
			if update.Message.Chat.Type == models.ChatTypePrivate {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "ChatAdminOnly")

			if userID == deps.Config.Telegram.AdminID {
				next(ctx, bot, update)
				return
			}

			member, err := bot.GetChatMember(ctx, &tgbot.GetChatMemberParams{
				ChatID: chatID,
				UserID: userID,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to get chat member", "error", err,
					"chat_id", chatID, "user_id", userID)
				return
			}

			if member.Type != models.ChatMemberTypeOwner && member.Type != models.ChatMemberTypeAdministrator {
				log.WarnContext(ctx, "Non-admin attempted admin command", "user_id", userID, "chat_id", chatID)
				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   deps.Config.Messages.NotAuthorized,
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}
