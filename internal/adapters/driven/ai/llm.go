package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.LLM = (*LLM)(nil)

// LLMConfig holds chat model settings.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// LLM generates answers through an OpenAI-compatible chat API.
type LLM struct {
	client      llms.Model
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewLLM creates the chat client.
func NewLLM(cfg LLMConfig, logger *slog.Logger) (*LLM, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "none"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}

	return &LLM{
		client:      client,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With("component", "llm"),
	}, nil
}

// Answer returns the full completion for the prompt.
func (m *LLM) Answer(ctx context.Context, system, prompt string) (string, error) {
	return m.generate(ctx, system, prompt, nil)
}

// AnswerStream delivers the completion incrementally through onDelta.
func (m *LLM) AnswerStream(ctx context.Context, system, prompt string, onDelta func(string) error) (string, error) {
	return m.generate(ctx, system, prompt, onDelta)
}

func (m *LLM) generate(ctx context.Context, system, prompt string, onDelta func(string) error) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(m.maxTokens),
		llms.WithTemperature(m.temperature),
	}
	if onDelta != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return onDelta(string(chunk))
		}))
	}

	response, err := m.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		m.logger.Error("generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", domain.ErrModelUnavailable)
	}
	return response.Choices[0].Content, nil
}
