package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/ai"
	"github.com/graywizard888/nerdmaster/internal/database"
	"github.com/graywizard888/nerdmaster/internal/metrics"
)

// NewProviderHandler returns a handler for the /provider command, which
// switches the AI provider and, optionally, the model for it. In groups
// it updates the group settings (admins only, enforced by middleware);
// in private chats it updates the user's personal settings.
func NewProviderHandler(deps HandlerDeps) bot.HandlerFunc {
	return providerHandler{deps}.Handle
}

type providerHandler struct {
	deps HandlerDeps
}

func (h providerHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "provider")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	metrics.CommandHandled("provider")
	chatID := msg.Chat.ID
	available := h.deps.Providers.Names()

	args := strings.Fields(commandArgs(msg.Text))
	var name, model string
	if len(args) > 0 {
		name = strings.ToLower(args[0])
	}
	if len(args) > 1 {
		model = args[1]
	}

	if name == "" || !slices.Contains(available, name) {
		text := fmt.Sprintf("Usage: /provider <%s> [model]", strings.Join(available, "|"))
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send provider usage", "error", err, "chat_id", chatID)
		}
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var err error
	var scope string
	if msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup {
		scope = "group"
		err = h.saveGroupProvider(dbCtx, msg, name, model)
	} else {
		scope = "personal"
		err = h.saveUserProvider(dbCtx, msg.From, name, model)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to save provider selection", "error", err,
			"chat_id", chatID, "provider", name)
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.GeneralError,
		}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	log.InfoContext(ctx, "Provider switched", "chat_id", chatID, "scope", scope,
		"provider", name, "model", model)

	text := fmt.Sprintf("AI provider for this %s set to %s.", scope, name)
	if model != "" {
		text = fmt.Sprintf("AI provider for this %s set to %s (model %s).", scope, name, model)
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send confirmation", "error", err, "chat_id", chatID)
	}
}

func (h providerHandler) saveGroupProvider(ctx context.Context, msg *models.Message, name, model string) error {
	settings, err := h.deps.Store.GetGroupSettings(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = defaultGroupSettings(msg.Chat.ID, msg.Chat.Title)
	}
	settings.Provider = name
	settings.ChatTitle = msg.Chat.Title
	if model != "" {
		switch name {
		case ai.ProviderOpenAI:
			settings.OpenAIModel = model
		case ai.ProviderGemini:
			settings.GeminiModel = model
		}
	}
	return h.deps.Store.SaveGroupSettings(ctx, settings)
}

func (h providerHandler) saveUserProvider(ctx context.Context, from *models.User, name, model string) error {
	settings, err := h.deps.Store.GetUserSettings(ctx, from.ID)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = &database.UserSettings{UserID: from.ID}
	}
	settings.Provider = name
	settings.Username = from.Username
	if model != "" {
		switch name {
		case ai.ProviderOpenAI:
			settings.OpenAIModel = model
		case ai.ProviderGemini:
			settings.GeminiModel = model
		}
	}
	return h.deps.Store.SaveUserSettings(ctx, settings)
}

// defaultGroupSettings builds the settings row for a group seen for the
// first time. AI and welcomes start enabled.
func defaultGroupSettings(chatID int64, title string) *database.GroupSettings {
	return &database.GroupSettings{
		ChatID:         chatID,
		ChatTitle:      title,
		AIEnabled:      true,
		WelcomeEnabled: true,
	}
}

// NewModelsHandler returns a handler for the /models command, listing
// the configured providers and their active models.
func NewModelsHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "models")

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		metrics.CommandHandled("models")

		groupSettings := loadGroupSettings(ctx, deps, msg)
		activeProvider, activeModel := resolveProvider(ctx, deps, groupSettings, msg.From.ID)

		var sb strings.Builder
		sb.WriteString("Configured AI providers:\n")
		for _, name := range deps.Providers.Names() {
			model := defaultModelName(deps, name)
			marker := " "
			if name == activeProvider {
				marker = "*"
				if activeModel != "" {
					model = activeModel
				}
			}
			fmt.Fprintf(&sb, "%s %s: %s\n", marker, name, model)
		}
		sb.WriteString("\n* = active for this chat. Switch with /provider.")

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: sb.String()}); err != nil {
			log.ErrorContext(ctx, "Failed to send models list", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

func defaultModelName(deps HandlerDeps, provider string) string {
	switch provider {
	case ai.ProviderOpenAI:
		return deps.Config.OpenAI.Model
	case ai.ProviderGemini:
		return deps.Config.Gemini.Model
	default:
		return "unknown"
	}
}
