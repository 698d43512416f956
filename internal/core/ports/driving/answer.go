package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerService answers questions from the knowledge base.
type AnswerService interface {
	// Answer retrieves context, asks the model and post-processes the reply.
	Answer(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.Answer, error)

	// StreamAnswer is Answer with incremental output. emit receives the
	// model output with any leading reasoning block removed, before
	// post-processing; the returned Answer holds the post-processed text.
	StreamAnswer(ctx context.Context, question string, opts domain.AnswerOptions, emit func(string) error) (*domain.Answer, error)
}
