package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/core/ports"
)

const (
	defaultContextDocs     = 5
	defaultExcerptChars    = 2000
	defaultTemperature     = 0.2
	defaultMaxTokens       = 1024
	healthCheckTimeout     = 2 * time.Second
	noContextAnswer        = "I could not find any provisions relevant to your question in the knowledge base. Try rephrasing the question or naming the act or program it concerns."
	generationFailedAnswer = "I found relevant provisions but could not generate an answer right now. The retrieved documents are listed below; please try again shortly."
)

type SynthesizerConfig struct {
	MaxContextDocs  int
	MaxExcerptChars int
}

// AnswerSynthesizer is the top-level entry point: retrieve, build context,
// generate, extract citations, score confidence, cache.
type AnswerSynthesizer struct {
	retriever  ports.Retriever
	generator  ports.TextGenerator
	parser     ports.QueryParser     // optional
	cache      ports.AnswerCache     // optional
	events     ports.AnswerEventSink // optional
	metrics    ports.MetricsRecorder // optional
	extractor  *CitationExtractor
	scorer     *ConfidenceScorer
	cfg        SynthesizerConfig
	log        *slog.Logger
	index      ports.SearchIndex
	graph      ports.GraphStore
	tierMu     sync.Mutex
	tierCounts map[string]uint64
}

func NewAnswerSynthesizer(
	retriever ports.Retriever,
	generator ports.TextGenerator,
	parser ports.QueryParser,
	cache ports.AnswerCache,
	events ports.AnswerEventSink,
	metrics ports.MetricsRecorder,
	index ports.SearchIndex,
	graph ports.GraphStore,
	cfg SynthesizerConfig,
	log *slog.Logger,
) *AnswerSynthesizer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxContextDocs <= 0 {
		cfg.MaxContextDocs = defaultContextDocs
	}
	if cfg.MaxExcerptChars <= 0 {
		cfg.MaxExcerptChars = defaultExcerptChars
	}
	return &AnswerSynthesizer{
		retriever:  retriever,
		generator:  generator,
		parser:     parser,
		cache:      cache,
		events:     events,
		metrics:    metrics,
		extractor:  NewCitationExtractor(),
		scorer:     NewConfidenceScorer(),
		cfg:        cfg,
		log:        log,
		index:      index,
		graph:      graph,
		tierCounts: make(map[string]uint64),
	}
}

// Answer synthesizes a cited, confidence-scored answer. Backend failures
// degrade into a low-confidence answer with explanatory metadata; the only
// error returned is context cancellation.
func (s *AnswerSynthesizer) Answer(ctx context.Context, req domain.AnswerRequest) (domain.RAGAnswer, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.RAGAnswer{}, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("empty question"))
	}

	cacheKey := CacheKey(question, req.Filters)
	if req.UseCache && s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.recordCacheLookup(true)
			cached.Cached = true
			cached.Latency = time.Since(start)
			s.observe(ctx, cached)
			return cached, nil
		}
		s.recordCacheLookup(false)
	}

	parsed := s.parseQuery(ctx, question, req.Filters)

	numDocs := req.NumContextDocs
	if numDocs <= 0 || numDocs > s.cfg.MaxContextDocs {
		numDocs = s.cfg.MaxContextDocs
	}

	retrieved, err := s.retriever.Retrieve(ctx, parsed, numDocs)
	if err != nil {
		return domain.RAGAnswer{}, err
	}
	if len(retrieved.Hits) == 0 {
		answer := s.newAnswer(question, parsed, retrieved, start)
		answer.Answer = noContextAnswer
		answer.Confidence = 0.0
		answer.Metadata["outcome"] = "zero_context"
		s.observe(ctx, answer)
		return answer, nil
	}

	contextDocs := buildContextDocuments(retrieved.Hits, numDocs, s.cfg.MaxExcerptChars)
	prompt := buildAnswerPrompt(question, contextDocs)

	text, genErr := s.generator.Generate(ctx, prompt, generationParams(req))
	if genErr != nil {
		if err := ctx.Err(); err != nil {
			return domain.RAGAnswer{}, err
		}
		classified, ok := domain.AsGenerationError(genErr)
		if !ok {
			classified = &domain.GenerationError{Kind: domain.GenUnknown, Message: genErr.Error(), Cause: genErr}
		}
		s.log.Error("generation failed", "kind", classified.Kind, "error", genErr)
		s.recordGenerationError(string(classified.Kind))

		answer := s.newAnswer(question, parsed, retrieved, start)
		answer.Answer = generationFailedAnswer
		answer.Confidence = 0.0
		answer.Context = contextDocs
		answer.Metadata["outcome"] = "generation_failed"
		answer.Metadata["generation_error"] = string(classified.Kind)
		answer.Metadata["generation_error_detail"] = classified.Message
		s.observe(ctx, answer)
		return answer, nil
	}

	citations := s.extractor.Extract(text, contextDocs)
	confidence := s.scorer.Score(text, citations, contextDocs, parsed.IntentConfidence)

	answer := s.newAnswer(question, parsed, retrieved, start)
	answer.Answer = text
	answer.Citations = citations
	answer.Confidence = confidence
	answer.Context = contextDocs

	if req.UseCache && s.cache != nil {
		s.cache.Set(cacheKey, answer)
		if s.metrics != nil {
			s.metrics.SetCacheSize(s.cache.Len())
		}
	}
	s.observe(ctx, answer)
	return answer, nil
}

// Stats reports cache size, backend reachability, and the per-tier answer
// histogram.
func (s *AnswerSynthesizer) Stats(ctx context.Context) domain.EngineStats {
	stats := domain.EngineStats{AnswersByTier: s.tierSnapshot()}
	if s.cache != nil {
		stats.CacheEntries = s.cache.Len()
	}
	if s.index != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		stats.SearchIndexHealthy = s.index.Ping(pingCtx) == nil
		cancel()
	}
	if s.graph != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		stats.GraphHealthy = s.graph.Ping(pingCtx) == nil
		cancel()
	}
	return stats
}

func (s *AnswerSynthesizer) parseQuery(ctx context.Context, question string, filters domain.SearchFilters) domain.ParsedQuery {
	if s.parser != nil {
		parsed, err := s.parser.Parse(ctx, question)
		if err == nil {
			if parsed.Filters.IsZero() {
				parsed.Filters = filters
			}
			return parsed
		}
		s.log.Warn("query parser failed, using fallback", "error", err)
	}
	return domain.FallbackParsedQuery(question, filters)
}

func (s *AnswerSynthesizer) newAnswer(question string, parsed domain.ParsedQuery, retrieved domain.RetrievalResult, start time.Time) domain.RAGAnswer {
	metadata := map[string]string{
		"search_weights": fmt.Sprintf("keyword=%.2f vector=%.2f", retrieved.Weights.Keyword, retrieved.Weights.Vector),
	}
	if len(retrieved.Notes) > 0 {
		metadata["retrieval_notes"] = strings.Join(retrieved.Notes, "; ")
	}
	metadata["retrieved_hits"] = strconv.Itoa(retrieved.Total)

	return domain.RAGAnswer{
		ID:       uuid.NewString(),
		Question: question,
		Intent:   parsed.Intent,
		Tier:     retrieved.Tier,
		Latency:  time.Since(start),
		Metadata: metadata,
	}
}

// observe updates tier counters, metrics, and the event sink. Event
// publishing is best effort.
func (s *AnswerSynthesizer) observe(ctx context.Context, answer domain.RAGAnswer) {
	s.tierMu.Lock()
	s.tierCounts[answer.Tier]++
	s.tierMu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordAnswer(answer.Tier, answer.Cached, answer.Confidence, len(answer.Context), answer.Latency.Seconds())
	}
	if s.events != nil {
		event := domain.AnswerEvent{
			AnswerID:   answer.ID,
			Tier:       answer.Tier,
			Intent:     string(answer.Intent),
			Confidence: answer.Confidence,
			Cached:     answer.Cached,
			LatencyMS:  answer.Latency.Milliseconds(),
		}
		if err := s.events.PublishAnswered(ctx, event); err != nil {
			s.log.Warn("answer event publish failed", "answer_id", answer.ID, "error", err)
		}
	}
}

func (s *AnswerSynthesizer) tierSnapshot() map[string]uint64 {
	s.tierMu.Lock()
	defer s.tierMu.Unlock()
	out := make(map[string]uint64, len(s.tierCounts))
	for tier, count := range s.tierCounts {
		out[tier] = count
	}
	return out
}

func (s *AnswerSynthesizer) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

func (s *AnswerSynthesizer) recordGenerationError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordGenerationError(kind)
	}
}

func generationParams(req domain.AnswerRequest) domain.GenerationParams {
	params := domain.GenerationParams{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if params.Temperature <= 0 {
		params.Temperature = defaultTemperature
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = defaultMaxTokens
	}
	return params
}

// CacheKey hashes the normalized question plus the canonical filter
// representation. Case and interior whitespace differences hit the same
// entry.
func CacheKey(question string, filters domain.SearchFilters) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		normalized,
		strings.ToLower(filters.Jurisdiction),
		strings.ToLower(filters.Program),
		strings.ToLower(filters.DocumentType),
		strings.ToLower(filters.PersonType),
		filters.DateFrom,
		filters.DateTo,
		strings.ToLower(strings.Join(filters.Tags, ",")),
		strings.ToLower(filters.Language),
		strings.ToLower(filters.Status),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
