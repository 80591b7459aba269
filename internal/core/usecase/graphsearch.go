package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/core/ports"
)

const (
	substringTitleScore = 2.0
	substringBodyScore  = 1.0

	snippetMaxChars    = 1500
	traversalSeedCount = 5
)

type GraphSearchConfig struct {
	Boosts        BoostConfig
	MinSimilarity float64 // fuzzy stage threshold
	MaxDepth      int     // traversal stage depth bound
	ScanLimit     int     // candidate pool bound for substring/fuzzy stages
	MaxExpansions int     // synonym expansions in the full-text stage
	QueryTimeout  time.Duration
}

func (c GraphSearchConfig) normalize() GraphSearchConfig {
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.3
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 2
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = 500
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = 3
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 500 * time.Millisecond
	}
	return c
}

// GraphFallbackSearch is the layered search over the knowledge graph, tried
// when the primary index comes back empty. The cascade is an explicit ordered
// list of stage functions; a stage runs only when every stage before it
// produced nothing.
type GraphFallbackSearch struct {
	graph  ports.GraphStore
	dict   *SynonymDictionary
	cfg    GraphSearchConfig
	boosts Boosts
	log    *slog.Logger
}

func NewGraphFallbackSearch(graph ports.GraphStore, dict *SynonymDictionary, cfg GraphSearchConfig, log *slog.Logger) *GraphFallbackSearch {
	if dict == nil {
		dict = DefaultSynonymDictionary()
	}
	if log == nil {
		log = slog.Default()
	}
	return &GraphFallbackSearch{
		graph:  graph,
		dict:   dict,
		cfg:    cfg.normalize(),
		boosts: cfg.Boosts.resolve(),
		log:    log,
	}
}

type graphStage struct {
	name string
	run  func(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error)
}

// Search runs the full cascade: full-text, substring, fuzzy similarity,
// relationship traversal.
func (g *GraphFallbackSearch) Search(ctx context.Context, query string, filters domain.SearchFilters, size int) domain.RetrievalResult {
	if size <= 0 {
		size = 5
	}
	result := domain.RetrievalResult{Tier: domain.TierGraph}

	stages := []graphStage{
		{name: "fulltext", run: g.FullTextSearch},
		{name: "substring", run: g.SubstringSearch},
		{name: "fuzzy", run: g.FuzzySearch},
		{name: "traversal", run: g.TraversalSearch},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			result.Notes = append(result.Notes, fmt.Sprintf("graph search aborted: %v", err))
			return result
		}
		hits, err := stage.run(ctx, query, filters, size)
		if err != nil {
			g.log.Warn("graph stage failed", "stage", stage.name, "error", err)
			result.Notes = append(result.Notes, fmt.Sprintf("graph %s stage degraded: %v", stage.name, err))
			continue
		}
		if len(hits) == 0 {
			continue
		}
		result.Hits = hits
		result.Total = len(hits)
		result.Notes = append(result.Notes, "graph stage: "+stage.name)
		return result
	}
	return result
}

// FullTextSearch is cascade stage 1: sanitized OR query against the
// full-text index of each node category, fanned out concurrently, each
// capped at size/3. Hits that yield a highlighted snippet are boosted.
func (g *GraphFallbackSearch) FullTextSearch(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	ftQuery := g.dict.BuildFulltextQuery(query, g.boosts.SynonymWeight, g.cfg.MaxExpansions)
	if ftQuery == "" {
		return nil, nil
	}
	terms := g.dict.DeriveTerms(query)

	categories := domain.AllNodeCategories()
	perCategory := size / len(categories)
	if perCategory < 1 {
		perCategory = 1
	}

	results := make([][]domain.SearchHit, len(categories))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, category := range categories {
		eg.Go(func() error {
			subCtx, cancel := context.WithTimeout(egCtx, g.cfg.QueryTimeout)
			defer cancel()
			hits, err := g.graph.FullTextSearch(subCtx, category, ftQuery, perCategory)
			if err != nil {
				// One unreachable index must not sink the other two.
				g.log.Warn("graph fulltext category failed", "category", category, "error", err)
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	combined := make([]domain.SearchHit, 0, size)
	for _, hits := range results {
		for _, hit := range hits {
			if !matchesJurisdiction(hit.Jurisdiction, filters) {
				continue
			}
			if snippet, ok := extractSnippet(hit.Content, terms); ok {
				hit.Snippet = snippet
				hit.Score *= g.boosts.HighlightMultiplier
			}
			combined = append(combined, hit)
		}
	}

	sortGraphHits(combined)
	if len(combined) > size {
		combined = combined[:size]
	}
	return combined, nil
}

// SubstringSearch is cascade stage 2: case-insensitive substring match over
// title and body text. A term matching the title scores 2.0, body-only 1.0.
func (g *GraphFallbackSearch) SubstringSearch(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	terms := g.dict.DeriveTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	subCtx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()
	nodes, err := g.graph.NodesContaining(subCtx, terms, domain.AllNodeCategories(), g.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("substring node scan: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(nodes))
	for _, node := range nodes {
		if !matchesJurisdiction(node.Jurisdiction, filters) {
			continue
		}
		title := strings.ToLower(node.Title)
		body := strings.ToLower(node.Body)
		score := 0.0
		for _, term := range terms {
			switch {
			case strings.Contains(title, term):
				score += substringTitleScore
			case strings.Contains(body, term):
				score += substringBodyScore
			}
		}
		if score > 0 {
			hits = append(hits, node.Hit(score))
		}
	}

	sortGraphHits(hits)
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

// FuzzySearch scores every candidate node by weighted term overlap,
// (3*title_hits + body_hits) / total_terms, keeping candidates above the
// similarity threshold. Looser than substring matching: individual term hits
// still count when the full phrase never occurs, which is what typo-bearing
// and paraphrased queries need.
func (g *GraphFallbackSearch) FuzzySearch(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	terms := g.dict.DeriveTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	subCtx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()
	nodes, err := g.graph.AllNodes(subCtx, domain.AllNodeCategories(), g.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy node scan: %w", err)
	}

	total := float64(len(terms))
	hits := make([]domain.SearchHit, 0, size)
	for _, node := range nodes {
		if !matchesJurisdiction(node.Jurisdiction, filters) {
			continue
		}
		title := strings.ToLower(node.Title)
		body := strings.ToLower(node.Body)
		titleHits, bodyHits := 0, 0
		for _, term := range terms {
			if strings.Contains(title, term) {
				titleHits++
			} else if strings.Contains(body, term) {
				bodyHits++
			}
		}
		similarity := (3.0*float64(titleHits) + float64(bodyHits)) / total
		if similarity >= g.cfg.MinSimilarity {
			hits = append(hits, node.Hit(similarity))
		}
	}

	sortGraphHits(hits)
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

// TraversalSearch seeds from the top full-text hits and expands outward
// through graph relationships up to the depth bound. An expanded node scores
// seed_score / (depth + 1), so an implementing regulation one hop away keeps
// most of its seed's relevance.
func (g *GraphFallbackSearch) TraversalSearch(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	seeds, err := g.FullTextSearch(ctx, query, filters, traversalSeedCount)
	if err != nil {
		return nil, fmt.Errorf("traversal seed search: %w", err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	best := make(map[string]domain.SearchHit, size)
	for _, seed := range seeds {
		keepBest(best, seed)

		subCtx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
		neighbors, err := g.graph.Expand(subCtx, seed.DocumentID, g.cfg.MaxDepth, g.cfg.ScanLimit)
		cancel()
		if err != nil {
			g.log.Warn("graph expansion failed", "seed", seed.DocumentID, "error", err)
			continue
		}
		for _, neighbor := range neighbors {
			if neighbor.Depth < 1 {
				continue
			}
			score := seed.Score / float64(neighbor.Depth+1)
			keepBest(best, neighbor.Node.Hit(score))
		}
	}

	hits := make([]domain.SearchHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	sortGraphHits(hits)
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

func keepBest(best map[string]domain.SearchHit, hit domain.SearchHit) {
	if existing, ok := best[hit.DocumentID]; !ok || hit.Score > existing.Score {
		best[hit.DocumentID] = hit
	}
}

func matchesJurisdiction(jurisdiction string, filters domain.SearchFilters) bool {
	if filters.Jurisdiction == "" || jurisdiction == "" {
		return true
	}
	return strings.EqualFold(jurisdiction, filters.Jurisdiction)
}

// extractSnippet centers a window on the first matching term and wraps each
// term occurrence in <em> marks. Returns false when no term occurs in the
// content.
func extractSnippet(content string, terms []string) (string, bool) {
	if content == "" || len(terms) == 0 {
		return "", false
	}
	lower, offsets := lowerWithOffsets(content)

	first := -1
	for _, term := range terms {
		if idx := strings.Index(lower, term); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	if first < 0 {
		return "", false
	}

	// Window bounds are computed in original-string bytes and snapped to rune
	// boundaries.
	start := offsets[first] - snippetMaxChars/2
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	end := start + snippetMaxChars
	if end >= len(content) {
		end = len(content)
	} else {
		for end > start && !utf8.RuneStart(content[end]) {
			end--
		}
	}
	window := content[start:end]

	for _, term := range terms {
		window = markTerm(window, term)
	}
	return window, true
}

// markTerm wraps case-insensitive occurrences of term in <em> tags. Matching
// runs on a lowered copy; slicing uses offsets mapped back into the original
// string, because lowering can change rune byte lengths.
func markTerm(text, term string) string {
	if term == "" {
		return text
	}
	lower, offsets := lowerWithOffsets(text)

	var b strings.Builder
	prev := 0
	searchFrom := 0
	for {
		rel := strings.Index(lower[searchFrom:], term)
		if rel < 0 {
			break
		}
		idx := searchFrom + rel
		start, end := offsets[idx], offsets[idx+len(term)]
		b.WriteString(text[prev:start])
		b.WriteString("<em>")
		b.WriteString(text[start:end])
		b.WriteString("</em>")
		prev = end
		searchFrom = idx + len(term)
	}
	if prev == 0 {
		return text
	}
	b.WriteString(text[prev:])
	return b.String()
}

// lowerWithOffsets lowercases s rune by rune and returns, for every byte
// position of the lowered form (plus one past the end), the byte offset of
// the originating rune in s.
func lowerWithOffsets(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			offsets = append(offsets, i)
		}
		b.WriteRune(lr)
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}

func sortGraphHits(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
}
