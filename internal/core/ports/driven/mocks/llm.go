package mocks

import (
	"context"
	"sync"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Ensure LLM implements the interface.
var _ driven.LLM = (*LLM)(nil)

// LLM is a canned-response model for tests.
type LLM struct {
	mu sync.Mutex

	// Response is returned from Answer and streamed from AnswerStream.
	Response string
	// Fail makes both methods return ErrModelUnavailable.
	Fail bool

	prompts []string
	systems []string
}

// NewLLM creates a mock model with a default response.
func NewLLM() *LLM {
	return &LLM{Response: "mock answer"}
}

func (m *LLM) Answer(_ context.Context, system, prompt string) (string, error) {
	if m.Fail {
		return "", domain.ErrModelUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems = append(m.systems, system)
	m.prompts = append(m.prompts, prompt)
	return m.Response, nil
}

func (m *LLM) AnswerStream(ctx context.Context, system, prompt string, onDelta func(string) error) (string, error) {
	full, err := m.Answer(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	// Stream rune by rune to exercise incremental delivery.
	for _, r := range full {
		if err := onDelta(string(r)); err != nil {
			return "", err
		}
	}
	return full, nil
}

// LastPrompt returns the most recent user prompt, or "" if none.
func (m *LLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// LastSystem returns the most recent system instruction, or "" if none.
func (m *LLM) LastSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.systems) == 0 {
		return ""
	}
	return m.systems[len(m.systems)-1]
}

// CallCount returns how many generations were requested.
func (m *LLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Reset clears recorded calls.
func (m *LLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.systems = nil
}
