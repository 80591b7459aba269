package usecase

import (
	"context"
	"testing"

	"github.com/lexhub/regrag/internal/core/domain"
)

func newHybrid(index *searchIndexFake, embedder *embedderFake) *HybridSearchScorer {
	return NewHybridSearchScorer(index, embedder, HybridConfig{}, nil)
}

func TestHybridSearchMergesWeightedScores(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{
			{DocumentID: "a", Score: 10, Title: "Overtime pay"},
			{DocumentID: "b", Score: 4, Title: "Vacation pay"},
		},
		vectorHits: []domain.SearchHit{
			{DocumentID: "b", Score: 8, Title: "Vacation pay"},
			{DocumentID: "c", Score: 6, Title: "Public holidays"},
		},
	}
	result := newHybrid(index, &embedderFake{}).Search(
		context.Background(), "overtime rules", domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	if len(result.Hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(result.Hits))
	}
	// b: 4*0.5 + 8*0.5 = 6 beats a: 10*0.5 = 5 beats c: 6*0.5 = 3.
	if result.Hits[0].DocumentID != "b" || result.Hits[1].DocumentID != "a" || result.Hits[2].DocumentID != "c" {
		t.Fatalf("order wrong: %s %s %s", result.Hits[0].DocumentID, result.Hits[1].DocumentID, result.Hits[2].DocumentID)
	}
	if result.Hits[0].Score != 6.0 {
		t.Fatalf("merged score=%v, want 6.0", result.Hits[0].Score)
	}
	breakdown := result.Hits[0].ScoreBreakdown
	if breakdown["keyword"] != 4 || breakdown["vector"] != 8 {
		t.Fatalf("breakdown wrong: %v", breakdown)
	}
}

func TestHybridSearchSortDescendingWithStableTiebreak(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{
			{DocumentID: "z", Score: 4},
			{DocumentID: "a", Score: 4},
			{DocumentID: "m", Score: 4},
		},
	}
	result := newHybrid(index, &embedderFake{err: errBackendDown}).Search(
		context.Background(), "anything", domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	ids := []string{result.Hits[0].DocumentID, result.Hits[1].DocumentID, result.Hits[2].DocumentID}
	if ids[0] != "a" || ids[1] != "m" || ids[2] != "z" {
		t.Fatalf("equal scores must order by document id, got %v", ids)
	}
}

func TestHybridSearchActOverviewWeightOverride(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{{DocumentID: "a", Score: 10}},
		vectorHits:  []domain.SearchHit{{DocumentID: "b", Score: 10}},
	}
	result := newHybrid(index, &embedderFake{}).Search(
		context.Background(),
		"What is the Employment Insurance Act about?",
		domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	if result.Weights.Keyword != 0.7 || result.Weights.Vector != 0.3 {
		t.Fatalf("weights=%+v, want 0.7/0.3 for named-act overview query", result.Weights)
	}
	// Keyword candidate wins under the overridden weights.
	if result.Hits[0].DocumentID != "a" {
		t.Fatalf("top hit=%s, want keyword candidate", result.Hits[0].DocumentID)
	}
}

func TestHybridSearchTitleBoostRanksNamedAct(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{
			{DocumentID: "other", Score: 12, Title: "Income Tax Act"},
			{DocumentID: "named", Score: 8, Title: "Employment Insurance Act", DocumentType: "act"},
		},
	}
	result := newHybrid(index, &embedderFake{err: errBackendDown}).Search(
		context.Background(),
		"Tell me about the Employment Insurance Act",
		domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	// named: 8*0.7 + 10 title + 5 act-pref = 20.6 beats other: 12*0.7 = 8.4.
	if result.Hits[0].DocumentID != "named" {
		t.Fatalf("top hit=%s, want title-boosted act", result.Hits[0].DocumentID)
	}
	if result.Hits[0].ScoreBreakdown["title_boost"] != 10 {
		t.Fatalf("title_boost=%v, want 10", result.Hits[0].ScoreBreakdown["title_boost"])
	}
}

func TestHybridSearchSectionPenaltyForActLevelDocs(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{
			{DocumentID: "act", Score: 10, DocumentType: "act"},
			{DocumentID: "sec", Score: 8, DocumentType: "section"},
		},
	}
	result := newHybrid(index, &embedderFake{err: errBackendDown}).Search(
		context.Background(),
		"what does section 7 require",
		domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	// sec: 8*0.5 + 8 = 12 beats act: 10*0.5 - 3 = 2.
	if result.Hits[0].DocumentID != "sec" {
		t.Fatalf("top hit=%s, want section-level doc", result.Hits[0].DocumentID)
	}
	if result.Hits[1].ScoreBreakdown["doc_type_boost"] != -3 {
		t.Fatalf("act penalty=%v, want -3", result.Hits[1].ScoreBreakdown["doc_type_boost"])
	}
}

func TestHybridSearchDegradesWhenOneSubQueryFails(t *testing.T) {
	index := &searchIndexFake{
		keywordHits: []domain.SearchHit{{DocumentID: "a", Score: 10}},
		vectorErr:   errBackendDown,
	}
	result := newHybrid(index, &embedderFake{}).Search(
		context.Background(), "query", domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	if len(result.Hits) != 1 {
		t.Fatalf("keyword hits lost: %d", len(result.Hits))
	}
	if len(result.Notes) == 0 {
		t.Fatal("degraded sub-query must leave a note")
	}
}

func TestHybridSearchEmptyWhenBothSubQueriesFail(t *testing.T) {
	index := &searchIndexFake{keywordErr: errBackendDown, vectorErr: errBackendDown}
	result := newHybrid(index, &embedderFake{}).Search(
		context.Background(), "query", domain.SearchFilters{}, 10, domain.DefaultSearchWeights())

	if len(result.Hits) != 0 {
		t.Fatalf("got %d hits, want none", len(result.Hits))
	}
	if len(result.Notes) != 3 {
		t.Fatalf("got %d notes, want both degradations plus the total-failure note", len(result.Notes))
	}
}

func TestDetectQuerySignals(t *testing.T) {
	signals := detectQuerySignals("What is the Employment Insurance Act about?")
	if len(signals.actNames) != 1 || signals.actNames[0] != "Employment Insurance Act" {
		t.Fatalf("actNames=%v", signals.actNames)
	}
	if !signals.wantsOverview {
		t.Fatal("overview marker not detected")
	}

	signals = detectQuerySignals("how do I apply under section 12")
	if !signals.wantsSection {
		t.Fatal("section marker not detected")
	}
	if signals.prefersActLevel() {
		t.Fatal("section question must not prefer act-level docs")
	}
}
