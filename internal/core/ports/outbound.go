package ports

import (
	"context"

	"github.com/lexhub/regrag/internal/core/domain"
)

// SearchIndex is the primary search backend: one index answering both keyword
// and vector-similarity queries under identical filters.
type SearchIndex interface {
	SearchKeyword(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error)
	SearchVector(ctx context.Context, vector []float32, filters domain.SearchFilters, size int) ([]domain.SearchHit, error)
	Ping(ctx context.Context) error
}

// QueryEmbedder turns query text into the vector used for the similarity
// sub-query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// GraphStore is the secondary graph-structured store used as a fallback
// retrieval surface.
type GraphStore interface {
	// FullTextSearch queries the full-text index of one node category.
	FullTextSearch(ctx context.Context, category domain.NodeCategory, query string, limit int) ([]domain.SearchHit, error)
	// NodesContaining returns nodes whose title or body contains any of the
	// given lowercase terms (raw pattern-match capability).
	NodesContaining(ctx context.Context, terms []string, categories []domain.NodeCategory, limit int) ([]domain.GraphNode, error)
	// AllNodes returns up to limit nodes of the given categories, used as the
	// candidate pool for fuzzy term-overlap scoring.
	AllNodes(ctx context.Context, categories []domain.NodeCategory, limit int) ([]domain.GraphNode, error)
	// Expand traverses relationships outward from a seed node up to maxDepth.
	Expand(ctx context.Context, seedID string, maxDepth int, limit int) ([]domain.GraphNeighbor, error)
	Ping(ctx context.Context) error
}

// TextGenerator invokes the external generative text service. Failures are
// *domain.GenerationError values recoverable with errors.As.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error)
}

// QueryParser is the external NLP component producing ParsedQuery values.
type QueryParser interface {
	Parse(ctx context.Context, question string) (domain.ParsedQuery, error)
}

// AnswerEventSink receives one telemetry event per synthesized answer.
// Publishing is best effort; failures must not affect the answer.
type AnswerEventSink interface {
	PublishAnswered(ctx context.Context, event domain.AnswerEvent) error
}

// AnswerCache is the shared response cache. Implementations must be safe for
// concurrent readers and writers.
type AnswerCache interface {
	Get(key string) (domain.RAGAnswer, bool)
	Set(key string, answer domain.RAGAnswer)
	Len() int
}

// MetricsRecorder receives engine observations. Implementations must accept
// calls from concurrent requests.
type MetricsRecorder interface {
	RecordAnswer(tier string, cached bool, confidence float64, contextDocs int, latencySeconds float64)
	RecordCacheLookup(hit bool)
	SetCacheSize(n int)
	RecordGenerationError(kind string)
}
