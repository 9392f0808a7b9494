package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its pattern and
// middleware. It encapsulates all information needed to register a
// command with the Telegram client.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands. It configures each command with appropriate handlers and
// middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	command := func(pattern string, handler tgbot.HandlerFunc, middleware ...tgbot.Middleware) {
		handlers["/"+pattern] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Handler:     handler,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  middleware,
		}
	}

	command("start", NewStartHandler(deps))
	command("help", NewHelpHandler(deps))

	chat := NewChatHandler(deps)
	command("ask", chat)
	command("nerd", chat) // alias

	command("models", NewModelsHandler(deps))
	command("clear", NewClearHandler(deps))
	command("settings", NewSettingsHandler(deps))
	command("stats", NewStatsHandler(deps))

	command("provider", NewProviderHandler(deps), ChatAdminOnly(deps))

	groupAdmin := []tgbot.Middleware{GroupOnly(deps), ChatAdminOnly(deps)}

	command("ban", NewBanHandler(deps), groupAdmin...)
	command("unban", NewUnbanHandler(deps), groupAdmin...)
	command("kick", NewKickHandler(deps), groupAdmin...)
	command("mute", NewMuteHandler(deps), groupAdmin...)
	command("unmute", NewUnmuteHandler(deps), groupAdmin...)
	command("promote", NewPromoteHandler(deps), groupAdmin...)
	command("demote", NewDemoteHandler(deps), groupAdmin...)
	command("pin", NewPinHandler(deps), groupAdmin...)
	command("unpin", NewUnpinHandler(deps), groupAdmin...)
	command("chatinfo", NewChatInfoHandler(deps), groupAdmin...)
	command("setwelcome", NewSetWelcomeHandler(deps), groupAdmin...)
	command("togglewelcome", NewToggleWelcomeHandler(deps), groupAdmin...)
	command("toggleai", NewToggleAIHandler(deps), groupAdmin...)

	return handlers
}
