package usecase

import (
	"context"
	"errors"

	"github.com/lexhub/regrag/internal/core/domain"
)

var errBackendDown = errors.New("backend down")

type searchIndexFake struct {
	keywordHits []domain.SearchHit
	vectorHits  []domain.SearchHit
	keywordErr  error
	vectorErr   error
	pingErr     error

	keywordQueries []string
	keywordFilters []domain.SearchFilters
}

func (f *searchIndexFake) SearchKeyword(_ context.Context, query string, filters domain.SearchFilters, _ int) ([]domain.SearchHit, error) {
	f.keywordQueries = append(f.keywordQueries, query)
	f.keywordFilters = append(f.keywordFilters, filters)
	return f.keywordHits, f.keywordErr
}

func (f *searchIndexFake) SearchVector(context.Context, []float32, domain.SearchFilters, int) ([]domain.SearchHit, error) {
	return f.vectorHits, f.vectorErr
}

func (f *searchIndexFake) Ping(context.Context) error { return f.pingErr }

type embedderFake struct {
	err error
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type graphStoreFake struct {
	fulltextHits map[domain.NodeCategory][]domain.SearchHit
	fulltextErr  error
	nodes        []domain.GraphNode
	containsErr  error
	allNodes     []domain.GraphNode
	allNodesErr  error
	neighbors    map[string][]domain.GraphNeighbor
	expandErr    error
	pingErr      error

	fulltextQueries []string
}

func (f *graphStoreFake) FullTextSearch(_ context.Context, category domain.NodeCategory, query string, _ int) ([]domain.SearchHit, error) {
	f.fulltextQueries = append(f.fulltextQueries, query)
	if f.fulltextErr != nil {
		return nil, f.fulltextErr
	}
	return f.fulltextHits[category], nil
}

func (f *graphStoreFake) NodesContaining(context.Context, []string, []domain.NodeCategory, int) ([]domain.GraphNode, error) {
	return f.nodes, f.containsErr
}

func (f *graphStoreFake) AllNodes(context.Context, []domain.NodeCategory, int) ([]domain.GraphNode, error) {
	return f.allNodes, f.allNodesErr
}

func (f *graphStoreFake) Expand(_ context.Context, seedID string, _ int, _ int) ([]domain.GraphNeighbor, error) {
	if f.expandErr != nil {
		return nil, f.expandErr
	}
	return f.neighbors[seedID], nil
}

func (f *graphStoreFake) Ping(context.Context) error { return f.pingErr }

type generatorFake struct {
	text    string
	err     error
	prompts []string
	calls   int
}

func (f *generatorFake) Generate(_ context.Context, prompt string, _ domain.GenerationParams) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type retrieverFake struct {
	result domain.RetrievalResult
	err    error
	calls  int
}

func (f *retrieverFake) Retrieve(context.Context, domain.ParsedQuery, int) (domain.RetrievalResult, error) {
	f.calls++
	return f.result, f.err
}

type cacheFake struct {
	entries map[string]domain.RAGAnswer
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]domain.RAGAnswer)}
}

func (f *cacheFake) Get(key string) (domain.RAGAnswer, bool) {
	answer, ok := f.entries[key]
	return answer, ok
}

func (f *cacheFake) Set(key string, answer domain.RAGAnswer) { f.entries[key] = answer }

func (f *cacheFake) Len() int { return len(f.entries) }

type eventSinkFake struct {
	events []domain.AnswerEvent
	err    error
}

func (f *eventSinkFake) PublishAnswered(_ context.Context, event domain.AnswerEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type metricsFake struct {
	answers          int
	lastTier         string
	lastCached       bool
	cacheHits        int
	cacheMisses      int
	cacheSize        int
	generationErrors []string
}

func (f *metricsFake) RecordAnswer(tier string, cached bool, _ float64, _ int, _ float64) {
	f.answers++
	f.lastTier = tier
	f.lastCached = cached
}

func (f *metricsFake) RecordCacheLookup(hit bool) {
	if hit {
		f.cacheHits++
	} else {
		f.cacheMisses++
	}
}

func (f *metricsFake) SetCacheSize(n int) { f.cacheSize = n }

func (f *metricsFake) RecordGenerationError(kind string) {
	f.generationErrors = append(f.generationErrors, kind)
}
