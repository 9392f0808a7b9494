// Package config provides configuration loading, validation, and management
// for the Nerd Master bot. It handles reading from YAML files, environment
// variables, default values, and validating configuration parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all
// components of the bot: logging, Telegram, AI providers, database,
// health server, and scheduled tasks.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and admin identity. BotInfo is
// populated at startup from GetMe and is not read from configuration.
type TelegramConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	AdminID int64  `mapstructure:"admin_id" validate:"required,gt=0"`

	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AIConfig holds provider-independent AI settings.
type AIConfig struct {
	DefaultProvider string        `mapstructure:"default_provider" validate:"oneof=openai gemini"`
	HistorySize     int           `mapstructure:"history_size"     validate:"min=1,max=100"`
	Timeout         time.Duration `mapstructure:"timeout"          validate:"min=1s,max=10m"`
	Instruction     string        `mapstructure:"instruction"      validate:"required"`
}

// OpenAIConfig holds OpenAI provider settings. APIKey may be empty, in
// which case the provider is not registered.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int64   `mapstructure:"max_tokens"  validate:"min=1"`
}

// GeminiConfig holds Gemini provider settings. APIKey may be empty, in
// which case the provider is not registered.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
}

// ServerConfig holds the health/metrics HTTP listener settings.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds user-facing message templates.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"`
	Help           string `mapstructure:"help"`
	GroupWelcome   string `mapstructure:"group_welcome"`
	NotAuthorized  string `mapstructure:"not_authorized"`
	GroupOnly      string `mapstructure:"group_only"`
	ProvideMessage string `mapstructure:"provide_message"`
	GeneralError   string `mapstructure:"general_error"`
	ProviderError  string `mapstructure:"provider_error"`
	HistoryCleared string `mapstructure:"history_cleared"`
	AIDisabled     string `mapstructure:"ai_disabled"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. BOT_* environment variables
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow missing config file; environment variables and defaults
	// are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.OpenAI.APIKey == "" && cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("config validation failed: at least one AI provider API key must be set")
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.json", true)

	viper.SetDefault("database.path", "storage.db")

	viper.SetDefault("ai.default_provider", "gemini")
	viper.SetDefault("ai.history_size", 10)
	viper.SetDefault("ai.timeout", 2*time.Minute)
	viper.SetDefault("ai.instruction", "You are Nerd Master, a helpful AI assistant for a Telegram group. Provide clear and accurate responses; format code with markdown.")

	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.temperature", 0.7)
	viper.SetDefault("openai.max_tokens", 4096)

	viper.SetDefault("gemini.model", "gemini-1.5-pro")
	viper.SetDefault("gemini.temperature", 0.7)
	viper.SetDefault("gemini.max_retries", 3)
	viper.SetDefault("gemini.retry_delay_seconds", 2)

	viper.SetDefault("server.port", 10000)

	viper.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	viper.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 4 * * *")

	viper.SetDefault("messages.welcome", "I'm ready to assist you. Use /ask followed by your question, or reply to my messages to continue a conversation.")
	viper.SetDefault("messages.help", "Commands:\n/ask <question> - Ask the AI\n/provider <openai|gemini> [model] - Switch AI provider and model\n/models - Show available models\n/clear - Clear conversation history\n/settings - Show your settings\n/stats - Show usage statistics\n\nGroup admin commands:\n/ban /unban /kick /mute /unmute /promote /demote /pin /unpin /chatinfo /setwelcome /togglewelcome /toggleai")
	viper.SetDefault("messages.group_welcome", "Welcome to {chat}, {name}! Use /ask to talk to me.")
	viper.SetDefault("messages.not_authorized", "You are not authorized to use this command.")
	viper.SetDefault("messages.group_only", "This command only works in groups.")
	viper.SetDefault("messages.provide_message", "Please provide a message.")
	viper.SetDefault("messages.general_error", "An error occurred. Please try again later.")
	viper.SetDefault("messages.provider_error", "The AI service is unavailable right now. Please try again later.")
	viper.SetDefault("messages.history_cleared", "Conversation history has been cleared.")
	viper.SetDefault("messages.ai_disabled", "AI responses are disabled in this group.")
}
