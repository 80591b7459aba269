package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/core/ports"
)

// Act-name weight override when the query names an act and asks for an
// overview: exact title matching dominates semantic similarity.
var actOverviewWeights = domain.SearchWeights{Keyword: 0.7, Vector: 0.3}

type HybridConfig struct {
	Boosts       BoostConfig
	QueryTimeout time.Duration
}

// HybridSearchScorer issues keyword and vector sub-queries against the
// primary index concurrently, applies intent-aware weighting and boosting,
// and merges the results into one ranked list.
type HybridSearchScorer struct {
	index    ports.SearchIndex
	embedder ports.QueryEmbedder
	boosts   Boosts
	timeout  time.Duration
	log      *slog.Logger
}

func NewHybridSearchScorer(index ports.SearchIndex, embedder ports.QueryEmbedder, cfg HybridConfig, log *slog.Logger) *HybridSearchScorer {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	return &HybridSearchScorer{
		index:    index,
		embedder: embedder,
		boosts:   cfg.Boosts.resolve(),
		timeout:  timeout,
		log:      log,
	}
}

// Search runs both sub-queries and merges them under the given weights. A
// failed sub-query contributes nothing and is noted; only a total failure of
// both yields an empty result.
func (s *HybridSearchScorer) Search(
	ctx context.Context,
	query string,
	filters domain.SearchFilters,
	size int,
	weights domain.SearchWeights,
) domain.RetrievalResult {
	if size <= 0 {
		size = 5
	}
	if weights.Keyword <= 0 && weights.Vector <= 0 {
		weights = domain.DefaultSearchWeights()
	}

	signals := detectQuerySignals(query)
	if len(signals.actNames) > 0 && signals.wantsOverview {
		weights = actOverviewWeights
	}

	// Both sub-queries over-fetch so boosting can reorder beyond the cut.
	fetch := size * 3
	var (
		wg          sync.WaitGroup
		keywordHits []domain.SearchHit
		vectorHits  []domain.SearchHit
		keywordErr  error
		vectorErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		keywordHits, keywordErr = s.index.SearchKeyword(subCtx, query, filters, fetch)
	}()
	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		vector, err := s.embedder.EmbedQuery(subCtx, query)
		if err != nil {
			vectorErr = fmt.Errorf("embed query: %w", err)
			return
		}
		vectorHits, vectorErr = s.index.SearchVector(subCtx, vector, filters, fetch)
	}()
	wg.Wait()

	result := domain.RetrievalResult{Weights: weights}
	if keywordErr != nil {
		s.log.Warn("keyword sub-query failed", "error", keywordErr)
		result.Notes = append(result.Notes, fmt.Sprintf("keyword search degraded: %v", keywordErr))
		keywordHits = nil
	}
	if vectorErr != nil {
		s.log.Warn("vector sub-query failed", "error", vectorErr)
		result.Notes = append(result.Notes, fmt.Sprintf("vector search degraded: %v", vectorErr))
		vectorHits = nil
	}
	if keywordErr != nil && vectorErr != nil {
		result.Notes = append(result.Notes, "primary index unreachable for both sub-queries")
		return result
	}

	merged := s.merge(keywordHits, vectorHits, weights, signals)
	if len(merged) > size {
		merged = merged[:size]
	}
	result.Hits = merged
	result.Total = len(merged)
	return result
}

// merge combines the two candidate sets by document id. Candidates missing
// from one sub-query score zero for that term. Boosts are applied per
// candidate before the final sort.
func (s *HybridSearchScorer) merge(
	keywordHits, vectorHits []domain.SearchHit,
	weights domain.SearchWeights,
	signals querySignals,
) []domain.SearchHit {
	type candidate struct {
		hit     domain.SearchHit
		keyword float64
		vector  float64
	}

	acc := make(map[string]*candidate, len(keywordHits)+len(vectorHits))
	for _, h := range keywordHits {
		acc[h.DocumentID] = &candidate{hit: h, keyword: h.Score}
	}
	for _, h := range vectorHits {
		if c, ok := acc[h.DocumentID]; ok {
			c.vector = h.Score
			if c.hit.Content == "" {
				c.hit.Content = h.Content
			}
			continue
		}
		acc[h.DocumentID] = &candidate{hit: h, vector: h.Score}
	}

	out := make([]domain.SearchHit, 0, len(acc))
	for _, c := range acc {
		titleBoost := s.titleBoost(c.hit, signals)
		docTypeBoost := s.docTypeBoost(c.hit, signals)

		scored := c.hit
		scored.Score = c.keyword*weights.Keyword + c.vector*weights.Vector + titleBoost + docTypeBoost
		scored.ScoreBreakdown = map[string]float64{
			"keyword":        c.keyword,
			"vector":         c.vector,
			"title_boost":    titleBoost,
			"doc_type_boost": docTypeBoost,
		}
		out = append(out, scored)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

func (s *HybridSearchScorer) titleBoost(hit domain.SearchHit, signals querySignals) float64 {
	if len(signals.actNames) == 0 {
		return 0
	}
	title := strings.ToLower(hit.Title)
	legislation := strings.ToLower(hit.LegislationName)
	for _, act := range signals.actNames {
		name := strings.ToLower(act)
		if strings.Contains(title, name) || strings.Contains(legislation, name) {
			return s.boosts.TitleBoost
		}
	}
	return 0
}

func (s *HybridSearchScorer) docTypeBoost(hit domain.SearchHit, signals querySignals) float64 {
	actLevel := isActLevelType(hit.DocumentType)
	switch {
	case signals.prefersActLevel():
		if actLevel && !looksLikeSectionHeading(hit.Title) {
			return s.boosts.ActPreferenceBoost
		}
	case signals.wantsSection:
		if strings.EqualFold(hit.DocumentType, string(domain.CategorySection)) {
			return s.boosts.SectionPreferenceBoost
		}
		if actLevel {
			// Returning a whole act for a narrow question buries the answer.
			return s.boosts.ActPenalty
		}
	}
	return 0
}

// querySignals are intent hints detected from the raw query text,
// independent of the upstream NLP classification.
type querySignals struct {
	actNames      []string
	wantsOverview bool
	wantsSection  bool
}

func (s querySignals) prefersActLevel() bool {
	return len(s.actNames) > 0 && s.wantsOverview && !s.wantsSection
}

// Capitalized phrase ending in Act/Code/Regulations, e.g. "Employment
// Insurance Act".
var actNamePattern = regexp.MustCompile(`\b((?:[A-Z][A-Za-z'-]*\s+)+(?:Act|Code|Regulations))\b`)

var overviewMarkers = []string{
	"about", "summar", "overview", "what does", "what is", "cover", "explain",
}

var sectionMarkers = []string{
	"section", "subsection", "clause", "how to", "how do", "am i eligible",
}

func detectQuerySignals(query string) querySignals {
	signals := querySignals{
		actNames: actNamePattern.FindAllString(query, -1),
	}
	lower := strings.ToLower(query)
	for _, m := range overviewMarkers {
		if strings.Contains(lower, m) {
			signals.wantsOverview = true
			break
		}
	}
	for _, m := range sectionMarkers {
		if strings.Contains(lower, m) {
			signals.wantsSection = true
			break
		}
	}
	return signals
}

var actLevelTypes = map[string]struct{}{
	"act":         {},
	"regulation":  {},
	"regulations": {},
	"statute":     {},
}

func isActLevelType(docType string) bool {
	_, ok := actLevelTypes[strings.ToLower(docType)]
	return ok
}

var sectionHeadingPattern = regexp.MustCompile(`(?i)^\s*(section|subsection|part|division|schedule|\d+(\.\d+)*)\b`)

func looksLikeSectionHeading(title string) bool {
	return sectionHeadingPattern.MatchString(title)
}
