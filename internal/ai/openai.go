package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/graywizard888/nerdmaster/internal/config"
	"github.com/graywizard888/nerdmaster/internal/history"
)

// ProviderOpenAI is the registry name of the OpenAI provider.
const ProviderOpenAI = "openai"

// openAIProvider implements Provider using the OpenAI Chat Completions API.
type openAIProvider struct {
	client       openai.Client
	defaultModel string
	temperature  float64
	maxTokens    int64
	logger       *slog.Logger
}

// NewOpenAIProvider creates the OpenAI provider from configuration.
func NewOpenAIProvider(cfg config.OpenAIConfig, logger *slog.Logger) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))

	log := logger.With("component", "openai_provider")
	log.Info("OpenAI provider initialized", "model", cfg.Model)

	return &openAIProvider{
		client:       client,
		defaultModel: cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		logger:       log,
	}, nil
}

func (p *openAIProvider) Name() string {
	return ProviderOpenAI
}

// Complete sends the conversation to the Chat Completions API and returns
// the first choice.
func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("empty prompt")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.Instruction != "" {
		messages = append(messages, openai.SystemMessage(req.Instruction))
	}
	for _, entry := range req.History {
		if entry.Role == history.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(entry.Text))
		} else {
			messages = append(messages, openai.UserMessage(entry.Text))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	p.logger.DebugContext(ctx, "Generating OpenAI completion",
		"model", model, "history_len", len(req.History))

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(p.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			p.logger.ErrorContext(ctx, "OpenAI API call failed",
				"status_code", apiErr.StatusCode, "error", err)
			return nil, fmt.Errorf("openai API call failed (status %d): %w", apiErr.StatusCode, err)
		}
		p.logger.ErrorContext(ctx, "OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		p.logger.WarnContext(ctx, "OpenAI response contained no choices", "response_id", resp.ID)
		return nil, ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		p.logger.WarnContext(ctx, "OpenAI response text is empty",
			"response_id", resp.ID, "finish_reason", resp.Choices[0].FinishReason)
		return nil, ErrEmptyResponse
	}

	p.logger.InfoContext(ctx, "OpenAI completion generated",
		"model", model,
		"duration_ms", time.Since(startTime).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return &Result{
		Text:       text,
		Model:      model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
