// Package main contains the entrypoint for the Nerd Master Telegram bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/graywizard888/nerdmaster/internal/ai"
	"github.com/graywizard888/nerdmaster/internal/bot"
	"github.com/graywizard888/nerdmaster/internal/bot/handlers"
	"github.com/graywizard888/nerdmaster/internal/bot/tasks"
	"github.com/graywizard888/nerdmaster/internal/config"
	"github.com/graywizard888/nerdmaster/internal/database"
	"github.com/graywizard888/nerdmaster/internal/history"
	"github.com/graywizard888/nerdmaster/internal/logger"
	"github.com/graywizard888/nerdmaster/internal/metrics"
	"github.com/graywizard888/nerdmaster/internal/telegram"
	"github.com/graywizard888/nerdmaster/internal/web"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, AI providers, bot, scheduler, health server), handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	metrics.MustRegister()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	providers, err := buildProviders(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize AI providers", "error", err)
		return 1
	}

	convHistory := history.NewStore(cfg.AI.HistorySize*2, log)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		History:   convHistory,
		Providers: providers,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommandMenu(ctx, tg, log); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	webServer := web.NewServer(cfg.Server.Port, store, log)

	app := bot.NewBot(log, cfg, db, store, tg, sched, webServer)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// buildProviders registers every AI provider with a configured API key.
func buildProviders(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ai.Registry, error) {
	var providers []ai.Provider

	if cfg.OpenAI.APIKey != "" {
		p, err := ai.NewOpenAIProvider(cfg.OpenAI, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.Gemini.APIKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return ai.NewRegistry(cfg.AI.DefaultProvider, log, providers...)
}
