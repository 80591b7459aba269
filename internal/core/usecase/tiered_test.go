package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/lexhub/regrag/internal/core/domain"
)

func newTiered(index *searchIndexFake, embedder *embedderFake, store *graphStoreFake) *TieredRetriever {
	hybrid := NewHybridSearchScorer(index, embedder, HybridConfig{}, nil)
	graph := NewGraphFallbackSearch(store, nil, GraphSearchConfig{}, nil)
	return NewTieredRetriever(hybrid, graph, nil, TieredConfig{}, nil)
}

func TestTieredRetrievePrimarySufficient(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{{DocumentID: "a", Score: 10}},
	}
	r := newTiered(index, &embedderFake{}, &graphStoreFake{})

	result, err := r.Retrieve(context.Background(), domain.FallbackParsedQuery("overtime pay", domain.SearchFilters{}), 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if result.Tier != domain.TierPrimary {
		t.Fatalf("tier=%q, want primary", result.Tier)
	}
	if len(index.keywordQueries) != 1 {
		t.Fatalf("primary success must not trigger further tiers, got %d queries", len(index.keywordQueries))
	}
}

func TestTieredRetrieveRelaxedTier(t *testing.T) {
	index := &searchIndexFake{}
	// Second keyword call returns hits; the first (primary) returns nothing.
	calls := 0
	relaxedIndex := &tieredIndexFake{
		inner: index,
		onKeyword: func(query string, filters domain.SearchFilters) ([]domain.SearchHit, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return []domain.SearchHit{{DocumentID: "relaxed-hit", Score: 3}}, nil
		},
	}
	hybrid := NewHybridSearchScorer(relaxedIndex, &embedderFake{err: errBackendDown}, HybridConfig{}, nil)
	graph := NewGraphFallbackSearch(&graphStoreFake{}, nil, GraphSearchConfig{}, nil)
	r := NewTieredRetriever(hybrid, graph, nil, TieredConfig{}, nil)

	query := domain.FallbackParsedQuery("ei for maternity", domain.SearchFilters{
		Jurisdiction: "federal",
		Language:     "en",
	})
	result, err := r.Retrieve(context.Background(), query, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	if result.Tier != domain.TierRelaxed {
		t.Fatalf("tier=%q, want relaxed", result.Tier)
	}
	if result.Weights.Keyword != 0.4 || result.Weights.Vector != 0.6 {
		t.Fatalf("relaxed weights=%+v, want 0.4/0.6", result.Weights)
	}

	// Relaxed tier drops everything but language and expands the query text.
	gotFilters := relaxedIndex.filters[1]
	if gotFilters.Jurisdiction != "" || gotFilters.Language != "en" {
		t.Fatalf("relaxed filters=%+v, want language-only", gotFilters)
	}
	expandedQuery := relaxedIndex.queries[1]
	if !strings.Contains(expandedQuery, "employment insurance") {
		t.Fatalf("relaxed query=%q, want synonym expansion of 'ei'", expandedQuery)
	}
}

func TestTieredRetrieveGraphTierIsTerminal(t *testing.T) {
	index := &searchIndexFake{} // both tiers empty
	store := &graphStoreFake{}  // graph empty as well
	r := newTiered(index, &embedderFake{err: errBackendDown}, store)

	result, err := r.Retrieve(context.Background(), domain.FallbackParsedQuery("nothing matches", domain.SearchFilters{}), 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if result.Tier != domain.TierGraph {
		t.Fatalf("tier=%q, want graph even with zero hits", result.Tier)
	}
	if len(result.Hits) != 0 {
		t.Fatalf("hits=%d", len(result.Hits))
	}
	// Degradation notes from earlier tiers survive to the terminal result.
	if len(result.Notes) == 0 {
		t.Fatal("carried notes lost")
	}
}

// tieredIndexFake lets one test vary keyword results per call.
type tieredIndexFake struct {
	inner     *searchIndexFake
	onKeyword func(query string, filters domain.SearchFilters) ([]domain.SearchHit, error)
	queries   []string
	filters   []domain.SearchFilters
}

func (f *tieredIndexFake) SearchKeyword(_ context.Context, query string, filters domain.SearchFilters, _ int) ([]domain.SearchHit, error) {
	f.queries = append(f.queries, query)
	f.filters = append(f.filters, filters)
	return f.onKeyword(query, filters)
}

func (f *tieredIndexFake) SearchVector(ctx context.Context, vector []float32, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	return f.inner.SearchVector(ctx, vector, filters, size)
}

func (f *tieredIndexFake) Ping(ctx context.Context) error { return f.inner.Ping(ctx) }
