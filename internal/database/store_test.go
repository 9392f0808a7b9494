// Package database_test tests the data access layer against an
// in-memory SQLite database with migrations applied.
package database_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/graywizard888/nerdmaster/internal/database"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("failed to close database: %v", closeErr)
		}
	})

	if err := database.ApplyMigrations(db.DB, ":memory:"); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return database.NewStore(db, logger)
}

func TestGroupSettings(t *testing.T) {
	t.Parallel()

	t.Run("Missing Group Returns Nil", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		settings, err := store.GetGroupSettings(context.Background(), -100123)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings != nil {
			t.Errorf("expected nil settings for unknown group, got %+v", settings)
		}
	})

	t.Run("Zero ChatID Rejected", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		if _, err := store.GetGroupSettings(context.Background(), 0); err == nil {
			t.Error("expected error for zero chat_id, got nil")
		}
		if err := store.SaveGroupSettings(context.Background(), &database.GroupSettings{}); err == nil {
			t.Error("expected error for zero chat_id on save, got nil")
		}
	})

	t.Run("Create And Read Back", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		in := &database.GroupSettings{
			ChatID:         -100500,
			ChatTitle:      "Test Group",
			AIEnabled:      true,
			Provider:       "openai",
			OpenAIModel:    "gpt-4o-mini",
			WelcomeEnabled: true,
			WelcomeMessage: "Welcome, {name}!",
		}
		if err := store.SaveGroupSettings(ctx, in); err != nil {
			t.Fatalf("failed to save group settings: %v", err)
		}

		out, err := store.GetGroupSettings(ctx, -100500)
		if err != nil {
			t.Fatalf("failed to get group settings: %v", err)
		}
		if out == nil {
			t.Fatal("expected settings, got nil")
		}
		if out.ChatTitle != "Test Group" {
			t.Errorf("chat_title = %q, want %q", out.ChatTitle, "Test Group")
		}
		if !out.AIEnabled {
			t.Error("ai_enabled = false, want true")
		}
		if out.Provider != "openai" {
			t.Errorf("provider = %q, want %q", out.Provider, "openai")
		}
		if out.WelcomeMessage != "Welcome, {name}!" {
			t.Errorf("welcome_message = %q, want %q", out.WelcomeMessage, "Welcome, {name}!")
		}
		if out.CreatedAt.IsZero() || out.UpdatedAt.IsZero() {
			t.Error("timestamps should be populated on save")
		}
	})

	t.Run("Update Existing", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		in := &database.GroupSettings{ChatID: -100600, AIEnabled: true, Provider: "gemini"}
		if err := store.SaveGroupSettings(ctx, in); err != nil {
			t.Fatalf("failed to save group settings: %v", err)
		}

		in.AIEnabled = false
		in.Provider = "openai"
		if err := store.SaveGroupSettings(ctx, in); err != nil {
			t.Fatalf("failed to update group settings: %v", err)
		}

		out, err := store.GetGroupSettings(ctx, -100600)
		if err != nil {
			t.Fatalf("failed to get group settings: %v", err)
		}
		if out.AIEnabled {
			t.Error("ai_enabled = true after disable, want false")
		}
		if out.Provider != "openai" {
			t.Errorf("provider = %q, want %q", out.Provider, "openai")
		}
	})
}

func TestUserSettings(t *testing.T) {
	t.Parallel()

	t.Run("Missing User Returns Nil", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		settings, err := store.GetUserSettings(context.Background(), 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings != nil {
			t.Errorf("expected nil settings for unknown user, got %+v", settings)
		}
	})

	t.Run("Create Update Read", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		in := &database.UserSettings{UserID: 42, Username: "alice", Provider: "gemini"}
		if err := store.SaveUserSettings(ctx, in); err != nil {
			t.Fatalf("failed to save user settings: %v", err)
		}

		in.Provider = "openai"
		in.OpenAIModel = "gpt-4o"
		if err := store.SaveUserSettings(ctx, in); err != nil {
			t.Fatalf("failed to update user settings: %v", err)
		}

		out, err := store.GetUserSettings(ctx, 42)
		if err != nil {
			t.Fatalf("failed to get user settings: %v", err)
		}
		if out == nil {
			t.Fatal("expected settings, got nil")
		}
		if out.Provider != "openai" {
			t.Errorf("provider = %q, want %q", out.Provider, "openai")
		}
		if out.OpenAIModel != "gpt-4o" {
			t.Errorf("openai_model = %q, want %q", out.OpenAIModel, "gpt-4o")
		}
	})
}

func TestUsageStats(t *testing.T) {
	t.Parallel()

	t.Run("Validation", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		if err := store.AddUsageStat(ctx, nil); err == nil {
			t.Error("expected error for nil stat, got nil")
		}
		if err := store.AddUsageStat(ctx, &database.UsageStat{UserID: 1}); err == nil {
			t.Error("expected error for missing provider/model, got nil")
		}
	})

	t.Run("Summary Aggregates By Provider And Model", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)
		ctx := context.Background()

		stats := []database.UsageStat{
			{UserID: 7, ChatID: -1, Provider: "openai", Model: "gpt-4o-mini", TokensUsed: 100},
			{UserID: 7, ChatID: -1, Provider: "openai", Model: "gpt-4o-mini", TokensUsed: 150},
			{UserID: 7, ChatID: -2, Provider: "gemini", Model: "gemini-2.0-flash", TokensUsed: 80},
			{UserID: 8, ChatID: -1, Provider: "openai", Model: "gpt-4o-mini", TokensUsed: 999},
		}
		for i := range stats {
			if err := store.AddUsageStat(ctx, &stats[i]); err != nil {
				t.Fatalf("failed to add usage stat: %v", err)
			}
		}

		summaries, err := store.GetUsageSummary(ctx, 7)
		if err != nil {
			t.Fatalf("failed to get usage summary: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 summary rows, got %d", len(summaries))
		}

		byKey := make(map[string]database.UsageSummary, len(summaries))
		for _, s := range summaries {
			byKey[s.Provider+"/"+s.Model] = s
		}

		openai, ok := byKey["openai/gpt-4o-mini"]
		if !ok {
			t.Fatal("missing openai/gpt-4o-mini summary")
		}
		if openai.Requests != 2 || openai.TotalTokens != 250 {
			t.Errorf("openai summary = %d requests / %d tokens, want 2 / 250",
				openai.Requests, openai.TotalTokens)
		}

		gemini, ok := byKey["gemini/gemini-2.0-flash"]
		if !ok {
			t.Fatal("missing gemini/gemini-2.0-flash summary")
		}
		if gemini.Requests != 1 || gemini.TotalTokens != 80 {
			t.Errorf("gemini summary = %d requests / %d tokens, want 1 / 80",
				gemini.Requests, gemini.TotalTokens)
		}
	})
}

func TestSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("maintenance failed: %v", err)
	}
}
