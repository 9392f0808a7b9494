package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/graywizard888/nerdmaster/internal/config"
	"github.com/graywizard888/nerdmaster/internal/history"
)

// ProviderGemini is the registry name of the Gemini provider.
const ProviderGemini = "gemini"

// geminiProvider implements Provider using Google's Gemini API.
type geminiProvider struct {
	client       *genai.Client
	defaultModel string
	temperature  float32
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewGeminiProvider creates the Gemini provider from configuration.
func NewGeminiProvider(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log := logger.With("component", "gemini_provider")
	log.Info("Gemini provider initialized", "model", cfg.Model)

	return &geminiProvider{
		client:       client,
		defaultModel: cfg.Model,
		temperature:  cfg.Temperature,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   time.Duration(cfg.RetryDelaySeconds) * time.Second,
		logger:       log,
	}, nil
}

func (p *geminiProvider) Name() string {
	return ProviderGemini
}

// Complete sends the conversation to the Gemini API and returns the
// generated text.
func (p *geminiProvider) Complete(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("empty prompt")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, entry := range req.History {
		var role genai.Role = genai.RoleUser
		if entry.Role == history.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(entry.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	genCfg := &genai.GenerateContentConfig{
		Temperature: &p.temperature,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
	if req.Instruction != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instruction}}}
	}

	p.logger.DebugContext(ctx, "Generating Gemini completion",
		"model", model, "history_len", len(req.History))

	startTime := time.Now()
	resp, err := p.generateContentWithRetries(ctx, model, contents, genCfg)
	if err != nil {
		return nil, err
	}

	text, err := p.extractText(ctx, resp)
	if err != nil {
		return nil, err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	p.logger.InfoContext(ctx, "Gemini completion generated",
		"model", model,
		"duration_ms", time.Since(startTime).Milliseconds(),
		"tokens", tokens)

	return &Result{
		Text:       text,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

// generateContentWithRetries retries transient API failures (HTTP 500
// and 503) up to maxRetries times with a fixed delay.
func (p *geminiProvider) generateContentWithRetries(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= p.maxRetries; i++ {
		resp, err = p.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		p.logger.WarnContext(ctx, "Gemini API call failed, checking for retry",
			"attempt", i+1, "max_retries", p.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < p.maxRetries {
				p.logger.InfoContext(ctx, "Retrying Gemini API call",
					"delay", p.retryDelay, "code", apiErr.Code)
				select {
				case <-time.After(p.retryDelay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue
			}
			p.logger.ErrorContext(ctx, "Gemini API call failed after max retries",
				"error", err, "code", apiErr.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (code %d): %w",
				p.maxRetries, apiErr.Code, err)
		}

		p.logger.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return nil, err
}

func (p *geminiProvider) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		p.logger.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("gemini request blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		p.logger.WarnContext(ctx, "Gemini response missing candidates or content",
			"finish_reason", finishReason)
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		p.logger.WarnContext(ctx, "Gemini response text is empty")
		return "", ErrEmptyResponse
	}

	return text, nil
}
