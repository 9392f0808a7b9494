package database

import "time"

// GroupSettings represents per-group configuration: whether AI replies are
// enabled, the selected provider and models, and the welcome message shown
// to new members.
type GroupSettings struct {
	ChatID    int64     `db:"chat_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatTitle      string `db:"chat_title"`
	AIEnabled      bool   `db:"ai_enabled"`
	Provider       string `db:"provider"`
	OpenAIModel    string `db:"openai_model"`
	GeminiModel    string `db:"gemini_model"`
	WelcomeEnabled bool   `db:"welcome_enabled"`
	WelcomeMessage string `db:"welcome_message"`
}

// UserSettings represents per-user AI preferences used in private chats.
type UserSettings struct {
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Username    string `db:"username"`
	Provider    string `db:"provider"`
	OpenAIModel string `db:"openai_model"`
	GeminiModel string `db:"gemini_model"`
}

// UsageStat records a single AI request for usage accounting.
type UsageStat struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	UserID     int64  `db:"user_id"`
	ChatID     int64  `db:"chat_id"`
	Provider   string `db:"provider"`
	Model      string `db:"model"`
	TokensUsed int64  `db:"tokens_used"`
}

// UsageSummary aggregates usage stats per provider and model.
type UsageSummary struct {
	Provider    string `db:"provider"`
	Model       string `db:"model"`
	Requests    int64  `db:"requests"`
	TotalTokens int64  `db:"total_tokens"`
}
