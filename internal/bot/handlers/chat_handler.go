package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/ai"
	"github.com/graywizard888/nerdmaster/internal/database"
	"github.com/graywizard888/nerdmaster/internal/history"
	"github.com/graywizard888/nerdmaster/internal/metrics"
)

const (
	sendMessageTimeout = 10 * time.Second
	dbTimeout          = 5 * time.Second
)

type chatHandler struct {
	deps HandlerDeps
}

// NewChatHandler returns the handler for the /ask command.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Chat handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	metrics.CommandHandled("ask")

	prompt := commandArgs(msg.Text)
	if prompt == "" {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   h.deps.Config.Messages.ProvideMessage,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send usage hint", "error", err, "chat_id", msg.Chat.ID)
		}
		return
	}

	Respond(ctx, b, h.deps, msg, prompt, true)
}

// NewDefaultHandler returns the catch-all message handler. It welcomes
// new group members and continues conversations when a user replies to
// one of the bot's messages.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil {
			return
		}

		if len(msg.NewChatMembers) > 0 {
			greetNewMembers(ctx, b, deps, msg)
			return
		}

		if msg.From == nil || msg.Text == "" {
			return
		}

		// Continue the conversation when the user replies to the bot.
		botInfo := deps.Config.Telegram.BotInfo
		if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil ||
			botInfo == nil || msg.ReplyToMessage.From.ID != botInfo.ID {
			return
		}

		Respond(ctx, b, deps, msg, msg.Text, false)
	}
}

// Respond runs the AI completion flow for one user message: it checks
// the group AI toggle, resolves the provider, builds the conversation
// context, and sends the generated reply. notifyDisabled controls
// whether a message is sent when AI is off for the group; reply
// continuations stay silent.
func Respond(ctx context.Context, b *bot.Bot, deps HandlerDeps, msg *models.Message, prompt string, notifyDisabled bool) {
	log := deps.Logger.With("handler", "chat")
	chatID := msg.Chat.ID

	groupSettings := loadGroupSettings(ctx, deps, msg)
	if groupSettings != nil && !groupSettings.AIEnabled {
		log.DebugContext(ctx, "AI disabled for group, skipping", "chat_id", chatID)
		if notifyDisabled {
			if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.AIDisabled,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send AI disabled message", "error", err, "chat_id", chatID)
			}
		}
		return
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	providerName, model := resolveProvider(ctx, deps, groupSettings, msg.From.ID)
	provider, err := deps.Providers.Get(providerName)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve AI provider", "error", err, "provider", providerName)
		sendProviderError(ctx, b, deps, chatID)
		return
	}

	entries := deps.History.History(chatID)
	if max := deps.Config.AI.HistorySize; len(entries) > max {
		entries = entries[len(entries)-max:]
	}

	aiCtx, cancel := context.WithTimeout(ctx, deps.Config.AI.Timeout)
	defer cancel()

	startTime := time.Now()
	result, err := provider.Complete(aiCtx, ai.Request{
		Model:       model,
		Instruction: deps.Config.AI.Instruction,
		History:     entries,
		Prompt:      prompt,
	})
	latencyMs := time.Since(startTime).Milliseconds()

	if err != nil {
		metrics.ObserveAIRequest(provider.Name(), model, 0, latencyMs, false)
		log.ErrorContext(ctx, "AI completion failed", "error", err,
			"provider", provider.Name(), "chat_id", chatID)

		text := deps.Config.Messages.ProviderError
		if errors.Is(err, context.DeadlineExceeded) {
			text = deps.Config.Messages.GeneralError
		}
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send AI error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	metrics.ObserveAIRequest(provider.Name(), result.Model, result.TokensUsed, latencyMs, true)

	deps.History.Append(chatID, history.RoleUser, prompt)
	deps.History.Append(chatID, history.RoleAssistant, result.Text)

	recordUsage(ctx, deps, msg.From.ID, chatID, provider.Name(), result)

	sendCtx, cancelSend := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancelSend()
	sent, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            result.Text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send AI reply", "error", err, "chat_id", chatID)
		return
	}

	log.InfoContext(ctx, "Sent AI reply", "chat_id", chatID, "message_id", sent.ID,
		"provider", provider.Name(), "model", result.Model, "tokens", result.TokensUsed)
}

// loadGroupSettings fetches group settings for group chats. Returns nil
// for private chats and on store errors; callers treat nil as defaults.
func loadGroupSettings(ctx context.Context, deps HandlerDeps, msg *models.Message) *database.GroupSettings {
	if msg.Chat.Type != models.ChatTypeGroup && msg.Chat.Type != models.ChatTypeSupergroup {
		return nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	settings, err := deps.Store.GetGroupSettings(dbCtx, msg.Chat.ID)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to load group settings, using defaults",
			"error", err, "chat_id", msg.Chat.ID)
		return nil
	}
	return settings
}

// resolveProvider picks the provider and model for a request: group
// settings win in groups, then the user's personal settings, then the
// configured default.
func resolveProvider(ctx context.Context, deps HandlerDeps, groupSettings *database.GroupSettings, userID int64) (providerName, model string) {
	if groupSettings != nil && groupSettings.Provider != "" {
		return groupSettings.Provider, modelFor(groupSettings.Provider,
			groupSettings.OpenAIModel, groupSettings.GeminiModel)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	userSettings, err := deps.Store.GetUserSettings(dbCtx, userID)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to load user settings, using defaults",
			"error", err, "user_id", userID)
	}
	if userSettings != nil && userSettings.Provider != "" {
		return userSettings.Provider, modelFor(userSettings.Provider,
			userSettings.OpenAIModel, userSettings.GeminiModel)
	}

	return deps.Providers.DefaultName(), ""
}

// modelFor returns the model override matching the provider, or "" to
// use the provider's default.
func modelFor(provider, openAIModel, geminiModel string) string {
	switch provider {
	case ai.ProviderOpenAI:
		return openAIModel
	case ai.ProviderGemini:
		return geminiModel
	default:
		return ""
	}
}

// recordUsage persists a usage stat row. Failures are logged, not
// surfaced to the user.
func recordUsage(ctx context.Context, deps HandlerDeps, userID, chatID int64, provider string, result *ai.Result) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stat := &database.UsageStat{
		UserID:     userID,
		ChatID:     chatID,
		Provider:   provider,
		Model:      result.Model,
		TokensUsed: int64(result.TokensUsed),
	}
	if err := deps.Store.AddUsageStat(dbCtx, stat); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to record usage stat",
			"error", err, "user_id", userID, "chat_id", chatID)
	}
}

func sendProviderError(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   deps.Config.Messages.ProviderError,
	}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send provider error message", "error", err, "chat_id", chatID)
	}
}
