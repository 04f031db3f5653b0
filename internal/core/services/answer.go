package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driving"
)

const (
	systemInstruction = "You are a helpful assistant that answers questions " +
		"based on the provided context. Be concise and accurate."

	noContextAnswer = "I'm sorry, but I don't have enough context to answer your " +
		"question. Please make sure relevant documents have been " +
		"uploaded and processed."

	generationFailedAnswer = "I'm sorry, but I encountered an error while generating the " +
		"answer. Please try again later."

	// DefaultContextTokenBudget caps how much retrieved text goes into
	// the prompt.
	DefaultContextTokenBudget = 3000
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService runs the retrieval-augmented answer pipeline.
type AnswerService struct {
	embedder driven.Embedder
	index    driven.VectorIndex
	llm      driven.LLM
	counter  driven.TokenCounter
	budget   int
	logger   *slog.Logger
}

// NewAnswerService creates the answer pipeline. A non-positive
// tokenBudget falls back to DefaultContextTokenBudget.
func NewAnswerService(
	embedder driven.Embedder,
	index driven.VectorIndex,
	llm driven.LLM,
	counter driven.TokenCounter,
	tokenBudget int,
	logger *slog.Logger,
) *AnswerService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultContextTokenBudget
	}
	return &AnswerService{
		embedder: embedder,
		index:    index,
		llm:      llm,
		counter:  counter,
		budget:   tokenBudget,
		logger:   logger,
	}
}

// Answer runs retrieval and blocking generation.
func (s *AnswerService) Answer(ctx context.Context, req domain.AnswerRequest) (domain.AnswerResult, error) {
	return s.answer(ctx, req, nil)
}

// AnswerStream runs retrieval and streams the generated answer through
// onDelta. The fallback answers for empty context and model failure are
// delivered through onDelta as well, so stream consumers always see the
// final text.
func (s *AnswerService) AnswerStream(ctx context.Context, req domain.AnswerRequest, onDelta func(string) error) (domain.AnswerResult, error) {
	return s.answer(ctx, req, onDelta)
}

func (s *AnswerService) answer(ctx context.Context, req domain.AnswerRequest, onDelta func(string) error) (domain.AnswerResult, error) {
	if err := req.Validate(); err != nil {
		return domain.AnswerResult{}, err
	}
	start := time.Now()

	hits, err := s.retrieve(ctx, req)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	result := domain.AnswerResult{Query: req.Query}

	if len(hits) == 0 {
		// No retrieved context means no grounded answer. The model is
		// not consulted, so it cannot fabricate one.
		result.Answer = noContextAnswer
		result.ProcessingTime = time.Since(start)
		if onDelta != nil {
			if err := onDelta(result.Answer); err != nil {
				return domain.AnswerResult{}, err
			}
		}
		return result, nil
	}

	prompt := s.buildPrompt(req.Query, hits)
	result.Answer = s.generate(ctx, prompt, onDelta)

	if req.IncludeSources {
		result.Sources = make([]domain.Source, 0, len(hits))
		for _, hit := range hits {
			result.Sources = append(result.Sources, domain.SourceOf(hit))
		}
	}
	result.ProcessingTime = time.Since(start)

	s.logger.Info("answered query",
		"retrieved", len(hits),
		"duration_ms", result.ProcessingTime.Milliseconds())
	return result, nil
}

func (s *AnswerService) retrieve(ctx context.Context, req domain.AnswerRequest) ([]domain.RetrievedChunk, error) {
	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := s.index.Search(ctx, vector, req.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]domain.RetrievedChunk, 0, len(points))
	for _, p := range points {
		hits = append(hits, domain.RetrievedChunk{
			Chunk: domain.Chunk{
				ID:        p.ID,
				Content:   p.Payload.Content,
				Filename:  p.Payload.Filename,
				SourceKey: p.Payload.SourceKey,
				Index:     p.Payload.ChunkID,
			},
			Score: p.Score,
		})
	}
	return hits, nil
}

// buildPrompt joins retrieved chunks into a context block, dropping
// trailing chunks once the token budget is spent.
func (s *AnswerService) buildPrompt(query string, hits []domain.RetrievedChunk) string {
	var parts []string
	used := 0
	for _, hit := range hits {
		content := strings.TrimSpace(hit.Content)
		if content == "" {
			continue
		}
		cost := s.counter.CountTokens(content)
		if used > 0 && used+cost > s.budget {
			break
		}
		parts = append(parts, content)
		used += cost
	}
	context := strings.Join(parts, "\n\n")

	return fmt.Sprintf(`Based on the following context, please answer the question.

Context:
%s

Question: %s

Answer:`, context, query)
}

// generate calls the model, substituting a fixed apology when it fails.
func (s *AnswerService) generate(ctx context.Context, prompt string, onDelta func(string) error) string {
	var (
		answer string
		err    error
	)
	if onDelta != nil {
		answer, err = s.llm.AnswerStream(ctx, systemInstruction, prompt, onDelta)
	} else {
		answer, err = s.llm.Answer(ctx, systemInstruction, prompt)
	}
	if err != nil {
		s.logger.Error("answer generation failed", "error", err)
		if onDelta != nil {
			// Best effort, the fallback also goes to the stream.
			_ = onDelta(generationFailedAnswer)
		}
		return generationFailedAnswer
	}
	return answer
}
