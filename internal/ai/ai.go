// Package ai defines the provider abstraction for chat completion
// backends and a registry for selecting a provider by name at request
// time. Concrete implementations exist for OpenAI and Google Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/graywizard888/nerdmaster/internal/history"
)

// Errors returned by the registry and providers.
var (
	// ErrUnknownProvider indicates a provider name that is not registered.
	ErrUnknownProvider = errors.New("unknown AI provider")

	// ErrNoProviders indicates a registry with no configured providers.
	ErrNoProviders = errors.New("no AI providers configured")

	// ErrEmptyResponse indicates a provider returned no usable text.
	ErrEmptyResponse = errors.New("AI provider returned empty response")
)

// Request carries everything a provider needs for one completion.
// History is oldest-first and does not include Prompt; the provider
// appends Prompt as the final user turn.
type Request struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// Instruction is the system instruction prepended to the conversation.
	Instruction string

	// History is the prior conversation, oldest first.
	History []history.Entry

	// Prompt is the current user message.
	Prompt string
}

// Result is a completed AI response.
type Result struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider is a chat completion backend. Complete blocks until the
// backend responds or ctx is done.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Result, error)
}

// Registry holds the configured providers and resolves one by name.
// The zero value is not usable; construct with NewRegistry.
type Registry struct {
	providers   map[string]Provider
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a registry from the given providers. defaultName
// must match one of them.
func NewRegistry(defaultName string, logger *slog.Logger, providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if _, dup := byName[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate AI provider registered: %s", p.Name())
		}
		byName[p.Name()] = p
	}

	if _, ok := byName[defaultName]; !ok {
		// The configured default may lack an API key; fall back to
		// whichever provider is available.
		for name := range byName {
			logger.Warn("Default AI provider not configured, falling back",
				"configured", defaultName, "fallback", name)
			defaultName = name
			break
		}
	}

	return &Registry{
		providers:   byName,
		defaultName: defaultName,
		logger:      logger.With("component", "ai_registry"),
	}, nil
}

// Get returns the provider with the given name, or the default provider
// when name is empty.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// DefaultName returns the name of the default provider.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
