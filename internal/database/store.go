package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetGroupSettings retrieves settings for a group chat. Returns
	// nil, nil if the group has never been configured.
	GetGroupSettings(ctx context.Context, chatID int64) (*GroupSettings, error)

	// SaveGroupSettings inserts or updates group settings.
	SaveGroupSettings(ctx context.Context, settings *GroupSettings) error

	// GetUserSettings retrieves settings for a user. Returns nil, nil
	// if the user has never been seen.
	GetUserSettings(ctx context.Context, userID int64) (*UserSettings, error)

	// SaveUserSettings inserts or updates user settings.
	SaveUserSettings(ctx context.Context, settings *UserSettings) error

	// AddUsageStat records a single AI request.
	AddUsageStat(ctx context.Context, stat *UsageStat) error

	// GetUsageSummary aggregates usage stats for a user, grouped by
	// provider and model.
	GetUsageSummary(ctx context.Context, userID int64) ([]UsageSummary, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetGroupSettings retrieves settings for a group chat.
func (s *sqlxStore) GetGroupSettings(ctx context.Context, chatID int64) (*GroupSettings, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var settings GroupSettings
	query := `SELECT chat_id, created_at, updated_at, chat_title, ai_enabled, provider,
	                 openai_model, gemini_model, welcome_enabled, welcome_message
	          FROM group_settings WHERE chat_id = ?`

	err := s.db.GetContext(ctx, &settings, query, chatID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Unconfigured groups are expected, not an error.
		s.logger.DebugContext(ctx, "No group settings found", "chat_id", chatID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching group settings",
			"chat_id", chatID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting group settings", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get group settings for chat %d: %w", chatID, err)
	}

	return &settings, nil
}

// SaveGroupSettings inserts or updates group settings based on ChatID.
// Uses a transaction to ensure atomicity.
func (s *sqlxStore) SaveGroupSettings(ctx context.Context, settings *GroupSettings) error {
	if settings == nil {
		return fmt.Errorf("cannot save nil group settings")
	}
	if settings.ChatID == 0 {
		return fmt.Errorf("group settings must have a non-zero chat_id")
	}

	now := time.Now().UTC()
	settings.UpdatedAt = now
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving group settings",
			"chat_id", settings.ChatID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM group_settings WHERE chat_id = ? LIMIT 1`, settings.ChatID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking if group settings exist",
			"chat_id", settings.ChatID, "error", err)
		return fmt.Errorf("failed to check group settings for chat %d: %w", settings.ChatID, err)
	}

	if exists {
		query := `
			UPDATE group_settings SET
				chat_title = :chat_title,
				ai_enabled = :ai_enabled,
				provider = :provider,
				openai_model = :openai_model,
				gemini_model = :gemini_model,
				welcome_enabled = :welcome_enabled,
				welcome_message = :welcome_message,
				updated_at = :updated_at
			WHERE chat_id = :chat_id
		`
		_, err = tx.NamedExecContext(ctx, query, settings)
	} else {
		query := `
			INSERT INTO group_settings (
				chat_id, created_at, updated_at, chat_title, ai_enabled, provider,
				openai_model, gemini_model, welcome_enabled, welcome_message
			) VALUES (
				:chat_id, :created_at, :updated_at, :chat_title, :ai_enabled, :provider,
				:openai_model, :gemini_model, :welcome_enabled, :welcome_message
			)
		`
		_, err = tx.NamedExecContext(ctx, query, settings)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving group settings",
			"chat_id", settings.ChatID, "error", err)
		return fmt.Errorf("failed to save group settings for chat %d: %w", settings.ChatID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"chat_id", settings.ChatID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil

	operation := "updated"
	if !exists {
		operation = "created"
	}
	s.logger.DebugContext(ctx, "Group settings saved",
		"operation", operation, "chat_id", settings.ChatID)
	return nil
}

// GetUserSettings retrieves settings for a user.
func (s *sqlxStore) GetUserSettings(ctx context.Context, userID int64) (*UserSettings, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var settings UserSettings
	query := `SELECT user_id, created_at, updated_at, username, provider, openai_model, gemini_model
	          FROM user_settings WHERE user_id = ?`

	err := s.db.GetContext(ctx, &settings, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user settings found", "user_id", userID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user settings",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user settings", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user settings for user %d: %w", userID, err)
	}

	return &settings, nil
}

// SaveUserSettings inserts or updates user settings based on UserID.
func (s *sqlxStore) SaveUserSettings(ctx context.Context, settings *UserSettings) error {
	if settings == nil {
		return fmt.Errorf("cannot save nil user settings")
	}
	if settings.UserID == 0 {
		return fmt.Errorf("user settings must have a non-zero user_id")
	}

	now := time.Now().UTC()
	settings.UpdatedAt = now
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving user settings",
			"user_id", settings.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM user_settings WHERE user_id = ? LIMIT 1`, settings.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error checking if user settings exist",
			"user_id", settings.UserID, "error", err)
		return fmt.Errorf("failed to check user settings for user %d: %w", settings.UserID, err)
	}

	if exists {
		query := `
			UPDATE user_settings SET
				username = :username,
				provider = :provider,
				openai_model = :openai_model,
				gemini_model = :gemini_model,
				updated_at = :updated_at
			WHERE user_id = :user_id
		`
		_, err = tx.NamedExecContext(ctx, query, settings)
	} else {
		query := `
			INSERT INTO user_settings (
				user_id, created_at, updated_at, username, provider, openai_model, gemini_model
			) VALUES (
				:user_id, :created_at, :updated_at, :username, :provider, :openai_model, :gemini_model
			)
		`
		_, err = tx.NamedExecContext(ctx, query, settings)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user settings",
			"user_id", settings.UserID, "error", err)
		return fmt.Errorf("failed to save user settings for user %d: %w", settings.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"user_id", settings.UserID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "User settings saved", "user_id", settings.UserID)
	return nil
}

// AddUsageStat records a single AI request.
func (s *sqlxStore) AddUsageStat(ctx context.Context, stat *UsageStat) error {
	if stat == nil {
		return fmt.Errorf("cannot save nil usage stat")
	}
	if stat.UserID == 0 {
		return fmt.Errorf("usage stat must have a non-zero user_id")
	}
	if stat.Provider == "" || stat.Model == "" {
		return fmt.Errorf("usage stat must have provider and model")
	}

	stat.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO usage_stats (created_at, user_id, chat_id, provider, model, tokens_used)
        VALUES (:created_at, :user_id, :chat_id, :provider, :model, :tokens_used);
    `

	result, err := s.db.NamedExecContext(ctx, query, stat)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving usage stat",
			"user_id", stat.UserID, "chat_id", stat.ChatID, "error", err)
		return fmt.Errorf("failed to save usage stat (user %d): %w", stat.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		stat.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving usage stat",
			"user_id", stat.UserID, "error", err)
	}

	s.logger.DebugContext(ctx, "Usage stat saved",
		"user_id", stat.UserID, "provider", stat.Provider, "model", stat.Model)
	return nil
}

// GetUsageSummary aggregates usage stats for a user, grouped by provider
// and model.
func (s *sqlxStore) GetUsageSummary(ctx context.Context, userID int64) ([]UsageSummary, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var summaries []UsageSummary
	query := `
        SELECT provider, model, COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS total_tokens
        FROM usage_stats
        WHERE user_id = ?
        GROUP BY provider, model
        ORDER BY provider, model;
    `

	err := s.db.SelectContext(ctx, &summaries, query, userID)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching usage summary",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting usage summary", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get usage summary for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched usage summary", "user_id", userID, "count", len(summaries))
	return summaries, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
