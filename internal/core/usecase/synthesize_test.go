package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/core/ports"
)

func newSynthesizer(
	retriever *retrieverFake,
	generator *generatorFake,
	cache *cacheFake,
	events *eventSinkFake,
	metrics *metricsFake,
) *AnswerSynthesizer {
	// Interface arguments stay untyped-nil when the fake is absent.
	var c ports.AnswerCache
	if cache != nil {
		c = cache
	}
	var e ports.AnswerEventSink
	if events != nil {
		e = events
	}
	var m ports.MetricsRecorder
	if metrics != nil {
		m = metrics
	}
	return NewAnswerSynthesizer(retriever, generator, nil, c, e, m, nil, nil, SynthesizerConfig{}, nil)
}

func retrievedResult(hits ...domain.SearchHit) domain.RetrievalResult {
	return domain.RetrievalResult{
		Hits:    hits,
		Total:   len(hits),
		Tier:    domain.TierPrimary,
		Weights: domain.DefaultSearchWeights(),
	}
}

func TestAnswerHappyPath(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "Employment Insurance Act", Section: "7", Content: "An insured person qualifies after 600 hours.", Score: 2.0},
	)}
	generator := &generatorFake{text: "You need 600 insurable hours to qualify for regular benefits [Employment Insurance Act, Section 7]."}
	events := &eventSinkFake{}
	metrics := &metricsFake{}

	s := newSynthesizer(retriever, generator, newCacheFake(), events, metrics)
	answer, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "how many hours for EI?"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if answer.ID == "" {
		t.Fatal("answer id missing")
	}
	if answer.Tier != domain.TierPrimary || answer.Cached {
		t.Fatalf("answer metadata wrong: tier=%q cached=%v", answer.Tier, answer.Cached)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].DocumentID != "doc-1" {
		t.Fatalf("citations=%+v", answer.Citations)
	}
	if answer.Confidence <= 0 {
		t.Fatalf("confidence=%v", answer.Confidence)
	}
	if len(answer.Context) != 1 {
		t.Fatalf("context docs=%d", len(answer.Context))
	}
	if len(events.events) != 1 || events.events[0].AnswerID != answer.ID {
		t.Fatalf("events=%+v", events.events)
	}
	if metrics.answers != 1 || metrics.lastTier != domain.TierPrimary {
		t.Fatalf("metrics=%+v", metrics)
	}
	if !strings.Contains(generator.prompts[0], "An insured person qualifies") {
		t.Fatal("context excerpt missing from prompt")
	}
}

func TestAnswerCacheRoundTrip(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "T", Content: "body", Score: 1.0},
	)}
	generator := &generatorFake{text: "A sufficiently long generated answer about the provision in question."}
	metrics := &metricsFake{}
	s := newSynthesizer(retriever, generator, newCacheFake(), nil, metrics)

	req := domain.AnswerRequest{Question: "What Is The  Rule?", UseCache: true}
	first, err := s.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}

	// Same question modulo case and spacing: served from cache, no second
	// retrieval or generation.
	second, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "what is the rule?", UseCache: true})
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if !second.Cached {
		t.Fatal("second answer must be marked cached")
	}
	if second.ID != first.ID || second.Answer != first.Answer {
		t.Fatal("cached answer differs from original")
	}
	if retriever.calls != 1 || generator.calls != 1 {
		t.Fatalf("cache hit still hit backends: retrieve=%d generate=%d", retriever.calls, generator.calls)
	}
	if metrics.cacheHits != 1 || metrics.cacheMisses != 1 {
		t.Fatalf("cache lookup metrics wrong: %+v", metrics)
	}
}

func TestAnswerCacheDisabled(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "T", Content: "body", Score: 1.0},
	)}
	generator := &generatorFake{text: "answer text of adequate length for this test case."}
	cache := newCacheFake()
	s := newSynthesizer(retriever, generator, cache, nil, nil)

	if _, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "q", UseCache: false}); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 0 {
		t.Fatal("cache written despite UseCache=false")
	}
}

func TestAnswerZeroContext(t *testing.T) {
	retriever := &retrieverFake{result: domain.RetrievalResult{Tier: domain.TierGraph}}
	generator := &generatorFake{text: "should never be called"}
	s := newSynthesizer(retriever, generator, nil, nil, nil)

	answer, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "unanswerable"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if generator.calls != 0 {
		t.Fatal("generation must be skipped with no context")
	}
	if answer.Confidence != 0.0 {
		t.Fatalf("confidence=%v, want 0.0", answer.Confidence)
	}
	if answer.Metadata["outcome"] != "zero_context" {
		t.Fatalf("metadata=%v", answer.Metadata)
	}
	if answer.Answer == "" {
		t.Fatal("zero-context answer must still carry explanatory text")
	}
}

func TestAnswerGenerationFailureDegrades(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "T", Content: "body", Score: 1.0},
	)}
	generator := &generatorFake{err: &domain.GenerationError{
		Kind:    domain.GenRateLimit,
		Message: "resource exhausted",
	}}
	metrics := &metricsFake{}
	s := newSynthesizer(retriever, generator, newCacheFake(), nil, metrics)

	answer, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "q", UseCache: true})
	if err != nil {
		t.Fatalf("generation failure must degrade, not error: %v", err)
	}

	if answer.Metadata["generation_error"] != "rate_limit" {
		t.Fatalf("metadata=%v", answer.Metadata)
	}
	if answer.Confidence != 0.0 {
		t.Fatalf("confidence=%v", answer.Confidence)
	}
	if len(answer.Context) == 0 {
		t.Fatal("degraded answer must still expose the retrieved context")
	}
	if len(metrics.generationErrors) != 1 || metrics.generationErrors[0] != "rate_limit" {
		t.Fatalf("generation error metric=%v", metrics.generationErrors)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	s := newSynthesizer(&retrieverFake{}, &generatorFake{}, nil, nil, nil)
	_, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err=%v, want invalid input", err)
	}
}

func TestAnswerEventFailureDoesNotFailAnswer(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "T", Content: "body", Score: 1.0},
	)}
	s := newSynthesizer(retriever, &generatorFake{text: "fine answer with enough words to pass scoring."},
		nil, &eventSinkFake{err: errBackendDown}, nil)

	if _, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "q"}); err != nil {
		t.Fatalf("event sink failure leaked: %v", err)
	}
}

func TestStatsReportsTierCountsAndHealth(t *testing.T) {
	retriever := &retrieverFake{result: retrievedResult(
		domain.SearchHit{DocumentID: "doc-1", Title: "T", Content: "body", Score: 1.0},
	)}
	cache := newCacheFake()
	index := &searchIndexFake{}
	graph := &graphStoreFake{pingErr: errBackendDown}
	s := NewAnswerSynthesizer(retriever, &generatorFake{text: "answer with enough words to score normally here."},
		nil, cache, nil, nil, index, graph, SynthesizerConfig{}, nil)

	if _, err := s.Answer(context.Background(), domain.AnswerRequest{Question: "q", UseCache: true}); err != nil {
		t.Fatal(err)
	}

	stats := s.Stats(context.Background())
	if stats.AnswersByTier[domain.TierPrimary] != 1 {
		t.Fatalf("tier counts=%v", stats.AnswersByTier)
	}
	if stats.CacheEntries != 1 {
		t.Fatalf("cache entries=%d", stats.CacheEntries)
	}
	if !stats.SearchIndexHealthy || stats.GraphHealthy {
		t.Fatalf("health wrong: %+v", stats)
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	a := CacheKey("What is  the rule?", domain.SearchFilters{Jurisdiction: "Federal"})
	b := CacheKey("what is the RULE?", domain.SearchFilters{Jurisdiction: "federal"})
	if a != b {
		t.Fatal("case and spacing variants must share a cache key")
	}

	c := CacheKey("what is the rule?", domain.SearchFilters{Jurisdiction: "provincial"})
	if a == c {
		t.Fatal("different filters must produce different keys")
	}
}
