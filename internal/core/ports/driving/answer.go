package driving

import (
	"context"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
)

// AnswerService answers questions against the indexed documents.
type AnswerService interface {
	// Answer runs the full retrieval and generation pipeline.
	Answer(ctx context.Context, req domain.AnswerRequest) (domain.AnswerResult, error)

	// AnswerStream is Answer with incremental delivery of the generated
	// text through onDelta. Sources are only available in the returned
	// result, after generation completes.
	AnswerStream(ctx context.Context, req domain.AnswerRequest, onDelta func(delta string) error) (domain.AnswerResult, error)
}
