package domain

import "time"

// Citation is a structured reference extracted from generated answer text.
// DocumentID is empty when the citation could not be linked to a retrieved
// context document.
type Citation struct {
	Text          string
	DocumentID    string
	DocumentTitle string
	Section       string
	Confidence    float64
}

// Linked reports whether the citation resolves to a retrieved document.
func (c Citation) Linked() bool { return c.DocumentID != "" }

// GenerationParams are the sampling parameters for one generation call.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
}

// AnswerRequest is the input of the synthesis entry point.
type AnswerRequest struct {
	Question       string
	Filters        SearchFilters
	NumContextDocs int
	UseCache       bool
	Temperature    float64
	MaxTokens      int
}

// RAGAnswer is the terminal artifact returned to callers and stored in the
// response cache.
type RAGAnswer struct {
	ID         string
	Question   string
	Answer     string
	Citations  []Citation
	Confidence float64
	Context    []ContextDocument
	Intent     QueryIntent
	Tier       string
	Latency    time.Duration
	Cached     bool
	Metadata   map[string]string
}

// AnswerEvent is the telemetry record published after each synthesized
// answer.
type AnswerEvent struct {
	AnswerID   string  `json:"answer_id"`
	Tier       string  `json:"tier"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Cached     bool    `json:"cached"`
	LatencyMS  int64   `json:"latency_ms"`
}

// EngineStats is the health/statistics view exposed alongside Answer.
type EngineStats struct {
	CacheEntries       int
	SearchIndexHealthy bool
	GraphHealthy       bool
	AnswersByTier      map[string]uint64
}
