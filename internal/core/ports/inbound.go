package ports

import (
	"context"

	"github.com/lexhub/regrag/internal/core/domain"
)

// Retriever produces ranked documents for a parsed query. Backend failures
// degrade into notes on the result; the returned error is reserved for
// context cancellation.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.ParsedQuery, size int) (domain.RetrievalResult, error)
}

// AnswerService is the synthesis entry point exposed to callers.
type AnswerService interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (domain.RAGAnswer, error)
	Stats(ctx context.Context) domain.EngineStats
}
