package usecase

import (
	"context"
	"log/slog"

	"github.com/lexhub/regrag/internal/core/domain"
)

// Relaxed-tier weights lean on vector similarity: if exact matching found
// nothing, semantics are the better bet.
var relaxedWeights = domain.SearchWeights{Keyword: 0.4, Vector: 0.6}

type TieredConfig struct {
	// MinHits is the sufficiency threshold: a tier answers when it returns at
	// least this many hits.
	MinHits int
	// MaxExpansions bounds synonym expansion in the relaxed tier.
	MaxExpansions int
}

// TieredRetriever runs the retrieval tiers strictly in order and stops at the
// first sufficient one. Tier 3 (graph) is terminal and returned regardless of
// hit count.
type TieredRetriever struct {
	hybrid *HybridSearchScorer
	graph  *GraphFallbackSearch
	dict   *SynonymDictionary
	cfg    TieredConfig
	log    *slog.Logger
}

func NewTieredRetriever(hybrid *HybridSearchScorer, graph *GraphFallbackSearch, dict *SynonymDictionary, cfg TieredConfig, log *slog.Logger) *TieredRetriever {
	if dict == nil {
		dict = DefaultSynonymDictionary()
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MinHits <= 0 {
		cfg.MinHits = 1
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = 3
	}
	return &TieredRetriever{
		hybrid: hybrid,
		graph:  graph,
		dict:   dict,
		cfg:    cfg,
		log:    log,
	}
}

// Retrieve walks the tiers. Tier 2 relaxes filters to language-only, expands
// the query through the synonym dictionary, and rebalances weights toward
// vector search. Notes from insufficient tiers are carried forward so a
// zero-hit outcome stays explainable.
func (r *TieredRetriever) Retrieve(ctx context.Context, query domain.ParsedQuery, size int) (domain.RetrievalResult, error) {
	if size <= 0 {
		size = 5
	}
	var carried []string

	primary := r.hybrid.Search(ctx, query.Text, query.Filters, size, domain.DefaultSearchWeights())
	primary.Tier = domain.TierPrimary
	if err := ctx.Err(); err != nil {
		return primary, err
	}
	if len(primary.Hits) >= r.cfg.MinHits {
		return primary, nil
	}
	carried = append(carried, primary.Notes...)
	r.log.Debug("primary tier insufficient", "hits", len(primary.Hits), "query", query.Text)

	expanded := r.dict.ExpandQueryText(query.Text, r.cfg.MaxExpansions)
	relaxed := r.hybrid.Search(ctx, expanded, query.Filters.LanguageOnly(), size, relaxedWeights)
	relaxed.Tier = domain.TierRelaxed
	if err := ctx.Err(); err != nil {
		return relaxed, err
	}
	if len(relaxed.Hits) >= r.cfg.MinHits {
		relaxed.Notes = append(carried, relaxed.Notes...)
		return relaxed, nil
	}
	carried = append(carried, relaxed.Notes...)
	r.log.Debug("relaxed tier insufficient", "hits", len(relaxed.Hits), "query", expanded)

	graph := r.graph.Search(ctx, query.Text, query.Filters, size)
	graph.Tier = domain.TierGraph
	graph.Notes = append(carried, graph.Notes...)
	return graph, ctx.Err()
}
