package handlers

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/graywizard888/nerdmaster/internal/database"
)

// captureStore records the settings passed to the save methods.
type captureStore struct {
	database.Store
	existingGroup *database.GroupSettings
	existingUser  *database.UserSettings
	savedGroup    *database.GroupSettings
	savedUser     *database.UserSettings
}

func (s *captureStore) GetGroupSettings(_ context.Context, _ int64) (*database.GroupSettings, error) {
	return s.existingGroup, nil
}

func (s *captureStore) GetUserSettings(_ context.Context, _ int64) (*database.UserSettings, error) {
	return s.existingUser, nil
}

func (s *captureStore) SaveGroupSettings(_ context.Context, settings *database.GroupSettings) error {
	s.savedGroup = settings
	return nil
}

func (s *captureStore) SaveUserSettings(_ context.Context, settings *database.UserSettings) error {
	s.savedUser = settings
	return nil
}

func TestSaveGroupProvider(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup, Title: "Test Group"},
		From: &models.User{ID: 7},
	}

	t.Run("Provider Only", func(t *testing.T) {
		t.Parallel()
		store := &captureStore{}
		h := providerHandler{testDeps(t, store)}

		if err := h.saveGroupProvider(context.Background(), msg, "openai", ""); err != nil {
			t.Fatalf("saveGroupProvider failed: %v", err)
		}
		saved := store.savedGroup
		if saved == nil {
			t.Fatal("no group settings saved")
		}
		if saved.Provider != "openai" || saved.OpenAIModel != "" || saved.GeminiModel != "" {
			t.Errorf("saved provider=%q openai=%q gemini=%q, want openai with no model overrides",
				saved.Provider, saved.OpenAIModel, saved.GeminiModel)
		}
	})

	t.Run("Provider With Model", func(t *testing.T) {
		t.Parallel()
		store := &captureStore{}
		h := providerHandler{testDeps(t, store)}

		if err := h.saveGroupProvider(context.Background(), msg, "openai", "gpt-4o-mini"); err != nil {
			t.Fatalf("saveGroupProvider failed: %v", err)
		}
		saved := store.savedGroup
		if saved == nil {
			t.Fatal("no group settings saved")
		}
		if saved.Provider != "openai" || saved.OpenAIModel != "gpt-4o-mini" {
			t.Errorf("saved provider=%q model=%q, want openai/gpt-4o-mini",
				saved.Provider, saved.OpenAIModel)
		}
		if saved.GeminiModel != "" {
			t.Errorf("gemini model set to %q when switching to openai", saved.GeminiModel)
		}
	})

	t.Run("Model Keeps Other Provider Override", func(t *testing.T) {
		t.Parallel()
		store := &captureStore{
			existingGroup: &database.GroupSettings{
				ChatID:      -100,
				Provider:    "openai",
				OpenAIModel: "gpt-4o",
				AIEnabled:   true,
			},
		}
		h := providerHandler{testDeps(t, store)}

		if err := h.saveGroupProvider(context.Background(), msg, "gemini", "gemini-2.0-flash"); err != nil {
			t.Fatalf("saveGroupProvider failed: %v", err)
		}
		saved := store.savedGroup
		if saved.Provider != "gemini" || saved.GeminiModel != "gemini-2.0-flash" {
			t.Errorf("saved provider=%q model=%q, want gemini/gemini-2.0-flash",
				saved.Provider, saved.GeminiModel)
		}
		if saved.OpenAIModel != "gpt-4o" {
			t.Errorf("openai model changed to %q, want gpt-4o preserved", saved.OpenAIModel)
		}
	})
}

func TestSaveUserProvider(t *testing.T) {
	t.Parallel()

	from := &models.User{ID: 7, Username: "someone"}

	t.Run("New User With Model", func(t *testing.T) {
		t.Parallel()
		store := &captureStore{}
		h := providerHandler{testDeps(t, store)}

		if err := h.saveUserProvider(context.Background(), from, "gemini", "gemini-2.0-flash"); err != nil {
			t.Fatalf("saveUserProvider failed: %v", err)
		}
		saved := store.savedUser
		if saved == nil {
			t.Fatal("no user settings saved")
		}
		if saved.UserID != 7 || saved.Username != "someone" {
			t.Errorf("saved user_id=%d username=%q, want 7/someone", saved.UserID, saved.Username)
		}
		if saved.Provider != "gemini" || saved.GeminiModel != "gemini-2.0-flash" {
			t.Errorf("saved provider=%q model=%q, want gemini/gemini-2.0-flash",
				saved.Provider, saved.GeminiModel)
		}
		if saved.OpenAIModel != "" {
			t.Errorf("openai model set to %q when switching to gemini", saved.OpenAIModel)
		}
	})

	t.Run("Existing User Provider Only", func(t *testing.T) {
		t.Parallel()
		store := &captureStore{
			existingUser: &database.UserSettings{
				UserID:      7,
				Provider:    "gemini",
				GeminiModel: "gemini-1.5-pro",
			},
		}
		h := providerHandler{testDeps(t, store)}

		if err := h.saveUserProvider(context.Background(), from, "openai", ""); err != nil {
			t.Fatalf("saveUserProvider failed: %v", err)
		}
		saved := store.savedUser
		if saved.Provider != "openai" {
			t.Errorf("saved provider=%q, want openai", saved.Provider)
		}
		if saved.GeminiModel != "gemini-1.5-pro" {
			t.Errorf("gemini model changed to %q, want gemini-1.5-pro preserved", saved.GeminiModel)
		}
	})
}
