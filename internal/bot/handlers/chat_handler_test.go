package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/ai"
	"github.com/graywizard888/nerdmaster/internal/config"
	"github.com/graywizard888/nerdmaster/internal/database"
)

// stubStore returns canned settings for provider resolution tests.
type stubStore struct {
	database.Store
	groupSettings *database.GroupSettings
	userSettings  *database.UserSettings
}

func (s *stubStore) GetGroupSettings(_ context.Context, _ int64) (*database.GroupSettings, error) {
	return s.groupSettings, nil
}

func (s *stubStore) GetUserSettings(_ context.Context, _ int64) (*database.UserSettings, error) {
	return s.userSettings, nil
}

type namedProvider struct {
	name  string
	calls int
}

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) Complete(_ context.Context, _ ai.Request) (*ai.Result, error) {
	p.calls++
	return &ai.Result{Text: "ok"}, nil
}

func testDeps(t *testing.T, store database.Store) HandlerDeps {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := ai.NewRegistry("gemini", log,
		&namedProvider{name: "openai"}, &namedProvider{name: "gemini"})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	return HandlerDeps{
		Logger:    log,
		Config:    &config.Config{},
		Store:     store,
		Providers: registry,
	}
}

func TestResolveProvider(t *testing.T) {
	t.Parallel()

	t.Run("Group Settings Win", func(t *testing.T) {
		t.Parallel()
		deps := testDeps(t, &stubStore{
			userSettings: &database.UserSettings{UserID: 1, Provider: "gemini"},
		})

		group := &database.GroupSettings{
			ChatID:      -1,
			Provider:    "openai",
			OpenAIModel: "gpt-4o-mini",
		}
		provider, model := resolveProvider(context.Background(), deps, group, 1)
		if provider != "openai" || model != "gpt-4o-mini" {
			t.Errorf("resolved %s/%s, want openai/gpt-4o-mini", provider, model)
		}
	})

	t.Run("User Settings When No Group Preference", func(t *testing.T) {
		t.Parallel()
		deps := testDeps(t, &stubStore{
			userSettings: &database.UserSettings{UserID: 1, Provider: "gemini", GeminiModel: "gemini-2.0-flash"},
		})

		provider, model := resolveProvider(context.Background(), deps, nil, 1)
		if provider != "gemini" || model != "gemini-2.0-flash" {
			t.Errorf("resolved %s/%s, want gemini/gemini-2.0-flash", provider, model)
		}
	})

	t.Run("Default When Nothing Configured", func(t *testing.T) {
		t.Parallel()
		deps := testDeps(t, &stubStore{})

		provider, model := resolveProvider(context.Background(), deps, nil, 1)
		if provider != "gemini" || model != "" {
			t.Errorf("resolved %s/%s, want default gemini with empty model", provider, model)
		}
	})
}

func TestRespondSkipsProviderWhenAIDisabled(t *testing.T) {
	t.Parallel()

	openai := &namedProvider{name: "openai"}
	gemini := &namedProvider{name: "gemini"}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := ai.NewRegistry("gemini", log, openai, gemini)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	deps := HandlerDeps{
		Logger: log,
		Config: &config.Config{},
		Store: &stubStore{
			groupSettings: &database.GroupSettings{ChatID: -100, AIEnabled: false},
		},
		Providers: registry,
	}

	msg := &models.Message{
		ID:   1,
		From: &models.User{ID: 7},
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
		Text: "anything at all",
	}

	// With notifications off the flow returns before touching the bot
	// client, so a nil bot is safe here.
	Respond(context.Background(), nil, deps, msg, msg.Text, false)

	if openai.calls != 0 || gemini.calls != 0 {
		t.Errorf("providers called %d/%d times for AI-disabled group, want 0/0",
			openai.calls, gemini.calls)
	}
}

func TestModelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{name: "OpenAI", provider: "openai", want: "gpt-4o"},
		{name: "Gemini", provider: "gemini", want: "gemini-1.5-pro"},
		{name: "Unknown", provider: "other", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := modelFor(tc.provider, "gpt-4o", "gemini-1.5-pro")
			if got != tc.want {
				t.Errorf("modelFor(%q) = %q, want %q", tc.provider, got, tc.want)
			}
		})
	}
}
