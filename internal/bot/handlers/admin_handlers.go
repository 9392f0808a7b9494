package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/metrics"
)

// mutedPermissions revokes all messaging rights for a restricted member.
var mutedPermissions = &models.ChatPermissions{}

// unmutedPermissions restores the default messaging rights.
var unmutedPermissions = &models.ChatPermissions{
	CanSendMessages:       true,
	CanSendAudios:         true,
	CanSendDocuments:      true,
	CanSendPhotos:         true,
	CanSendVideos:         true,
	CanSendVideoNotes:     true,
	CanSendVoiceNotes:     true,
	CanSendPolls:          true,
	CanSendOtherMessages:  true,
	CanAddWebPagePreviews: true,
}

// NewBanHandler returns a handler for the /ban command.
func NewBanHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "ban", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		_, err := b.BanChatMember(ctx, &bot.BanChatMemberParams{
			ChatID: msg.Chat.ID,
			UserID: tgt.UserID,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Banned %s.", tgt.FirstName), nil
	})
}

// NewUnbanHandler returns a handler for the /unban command.
func NewUnbanHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "unban", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		_, err := b.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
			ChatID:       msg.Chat.ID,
			UserID:       tgt.UserID,
			OnlyIfBanned: true,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Unbanned %s.", tgt.FirstName), nil
	})
}

// NewKickHandler returns a handler for the /kick command: ban followed
// by unban, so the user can rejoin.
func NewKickHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "kick", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		if _, err := b.BanChatMember(ctx, &bot.BanChatMemberParams{
			ChatID: msg.Chat.ID,
			UserID: tgt.UserID,
		}); err != nil {
			return "", err
		}
		if _, err := b.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
			ChatID:       msg.Chat.ID,
			UserID:       tgt.UserID,
			OnlyIfBanned: true,
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Kicked %s.", tgt.FirstName), nil
	})
}

// NewMuteHandler returns a handler for the /mute command. An optional
// duration argument like "30s", "5m", "1h", or "2d" limits the mute;
// without one the mute is indefinite.
func NewMuteHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "mute", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		duration, err := muteDuration(msg)
		if err != nil {
			return "", err
		}

		params := &bot.RestrictChatMemberParams{
			ChatID:      msg.Chat.ID,
			UserID:      tgt.UserID,
			Permissions: mutedPermissions,
		}
		if duration > 0 {
			params.UntilDate = int(time.Now().Add(duration).Unix())
		}

		if _, err := b.RestrictChatMember(ctx, params); err != nil {
			return "", err
		}

		if duration > 0 {
			return fmt.Sprintf("Muted %s for %s.", tgt.FirstName, duration), nil
		}
		return fmt.Sprintf("Muted %s indefinitely.", tgt.FirstName), nil
	})
}

// muteDuration extracts the optional duration argument of /mute. When
// the target came from an argument instead of a reply, the duration is
// the second argument.
func muteDuration(msg *models.Message) (time.Duration, error) {
	args := strings.Fields(commandArgs(msg.Text))
	if len(args) == 0 {
		return 0, nil
	}

	durationArg := args[0]
	if msg.ReplyToMessage == nil {
		// First argument is the user ID.
		if len(args) < 2 {
			return 0, nil
		}
		durationArg = args[1]
	}

	return parseRestrictDuration(durationArg)
}

// NewUnmuteHandler returns a handler for the /unmute command.
func NewUnmuteHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "unmute", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		_, err := b.RestrictChatMember(ctx, &bot.RestrictChatMemberParams{
			ChatID:      msg.Chat.ID,
			UserID:      tgt.UserID,
			Permissions: unmutedPermissions,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Unmuted %s.", tgt.FirstName), nil
	})
}

// NewPromoteHandler returns a handler for the /promote command, granting
// the target a standard set of moderation rights.
func NewPromoteHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "promote", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		_, err := b.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
			ChatID:             msg.Chat.ID,
			UserID:             tgt.UserID,
			CanDeleteMessages:  true,
			CanRestrictMembers: true,
			CanPinMessages:     true,
			CanInviteUsers:     true,
			CanChangeInfo:      true,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Promoted %s to admin.", tgt.FirstName), nil
	})
}

// NewDemoteHandler returns a handler for the /demote command, revoking
// all admin rights from the target.
func NewDemoteHandler(deps HandlerDeps) bot.HandlerFunc {
	return newModerationHandler(deps, "demote", func(ctx context.Context, b *bot.Bot, msg *models.Message, tgt *target) (string, error) {
		_, err := b.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
			ChatID: msg.Chat.ID,
			UserID: tgt.UserID,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Demoted %s.", tgt.FirstName), nil
	})
}

// newModerationHandler wraps the shared target-resolution and error
// reporting flow of the moderation commands.
func newModerationHandler(deps HandlerDeps, name string, action func(context.Context, *bot.Bot, *models.Message, *target) (string, error)) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", name)

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled(name)
		chatID := msg.Chat.ID

		tgt, err := resolveTarget(msg)
		if err != nil {
			text := fmt.Sprintf("Cannot %s: %s", name, err)
			if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); sendErr != nil {
				log.ErrorContext(ctx, "Failed to send usage message", "error", sendErr, "chat_id", chatID)
			}
			return
		}

		confirmation, err := action(ctx, b, msg, tgt)
		if err != nil {
			log.ErrorContext(ctx, "Moderation action failed", "error", err,
				"chat_id", chatID, "target_user_id", tgt.UserID)
			text := fmt.Sprintf("Failed to %s: %s", name, err)
			if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); sendErr != nil {
				log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
			}
			return
		}

		log.InfoContext(ctx, "Moderation action completed", "action", name,
			"chat_id", chatID, "target_user_id", tgt.UserID, "by_user_id", msg.From.ID)

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: confirmation}); err != nil {
			log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
		}
	}
}

// NewPinHandler returns a handler for the /pin command, pinning the
// replied-to message.
func NewPinHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "pin")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("pin")
		chatID := msg.Chat.ID

		if msg.ReplyToMessage == nil {
			if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "Reply to the message you want to pin.",
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send usage message", "error", err, "chat_id", chatID)
			}
			return
		}

		_, err := b.PinChatMessage(ctx, &bot.PinChatMessageParams{
			ChatID:    chatID,
			MessageID: msg.ReplyToMessage.ID,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to pin message", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		log.InfoContext(ctx, "Pinned message", "chat_id", chatID, "message_id", msg.ReplyToMessage.ID)
	}
}

// NewUnpinHandler returns a handler for the /unpin command. Replying to
// a pinned message unpins that message; otherwise the most recent pin
// is removed.
func NewUnpinHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "unpin")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("unpin")
		chatID := msg.Chat.ID

		params := &bot.UnpinChatMessageParams{ChatID: chatID}
		if msg.ReplyToMessage != nil {
			params.MessageID = msg.ReplyToMessage.ID
		}

		if _, err := b.UnpinChatMessage(ctx, params); err != nil {
			log.ErrorContext(ctx, "Failed to unpin message", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		log.InfoContext(ctx, "Unpinned message", "chat_id", chatID)
	}
}

// NewChatInfoHandler returns a handler for the /chatinfo command,
// reporting basic facts about the current group.
func NewChatInfoHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "chatinfo")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("chatinfo")
		chatID := msg.Chat.ID

		chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
		if err != nil {
			log.ErrorContext(ctx, "Failed to get chat info", "error", err, "chat_id", chatID)
			sendGeneralError(ctx, b, deps, chatID)
			return
		}

		memberCount := 0
		if count, err := b.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chatID}); err != nil {
			log.WarnContext(ctx, "Failed to get chat member count", "error", err, "chat_id", chatID)
		} else {
			memberCount = count
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Chat: %s\n", chat.Title)
		fmt.Fprintf(&sb, "ID: %d\n", chat.ID)
		fmt.Fprintf(&sb, "Type: %s\n", chat.Type)
		fmt.Fprintf(&sb, "Members: %d", memberCount)
		if chat.Description != "" {
			fmt.Fprintf(&sb, "\nDescription: %s", chat.Description)
		}

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()}); err != nil {
			log.ErrorContext(ctx, "Failed to send chat info", "error", err, "chat_id", chatID)
		}
	}
}
