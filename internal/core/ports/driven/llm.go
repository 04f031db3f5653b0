package driven

import "context"

// LLM generates answers from a system instruction and a user prompt.
type LLM interface {
	// Answer returns the full completion.
	Answer(ctx context.Context, system, prompt string) (string, error)

	// AnswerStream delivers the completion incrementally through onDelta
	// and returns the full text once generation finishes.
	AnswerStream(ctx context.Context, system, prompt string, onDelta func(delta string) error) (string, error)
}
