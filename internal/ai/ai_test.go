// Package ai_test tests the provider registry.
package ai_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/graywizard888/nerdmaster/internal/ai"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, req ai.Request) (*ai.Result, error) {
	return &ai.Result{Text: "reply from " + f.name, Model: req.Model}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("No Providers", func(t *testing.T) {
		t.Parallel()

		_, err := ai.NewRegistry("openai", discardLogger())
		if !errors.Is(err, ai.ErrNoProviders) {
			t.Errorf("expected ErrNoProviders, got %v", err)
		}
	})

	t.Run("Duplicate Providers", func(t *testing.T) {
		t.Parallel()

		_, err := ai.NewRegistry("openai", discardLogger(),
			&fakeProvider{name: "openai"}, &fakeProvider{name: "openai"})
		if err == nil {
			t.Error("expected error for duplicate provider names, got nil")
		}
	})

	t.Run("Default Falls Back When Missing", func(t *testing.T) {
		t.Parallel()

		registry, err := ai.NewRegistry("openai", discardLogger(), &fakeProvider{name: "gemini"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if registry.DefaultName() != "gemini" {
			t.Errorf("default = %q, want fallback %q", registry.DefaultName(), "gemini")
		}
	})
}

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	registry, err := ai.NewRegistry("gemini", discardLogger(),
		&fakeProvider{name: "openai"}, &fakeProvider{name: "gemini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		provider string
		want     string
		wantErr  bool
	}{
		{name: "Explicit OpenAI", provider: "openai", want: "openai"},
		{name: "Explicit Gemini", provider: "gemini", want: "gemini"},
		{name: "Empty Name Uses Default", provider: "", want: "gemini"},
		{name: "Unknown Provider", provider: "anthropic", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p, err := registry.Get(tc.provider)
			if tc.wantErr {
				if !errors.Is(err, ai.ErrUnknownProvider) {
					t.Errorf("expected ErrUnknownProvider, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tc.want {
				t.Errorf("provider = %q, want %q", p.Name(), tc.want)
			}
		})
	}
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	registry, err := ai.NewRegistry("openai", discardLogger(),
		&fakeProvider{name: "gemini"}, &fakeProvider{name: "openai"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := registry.Names()
	want := []string{"gemini", "openai"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}
