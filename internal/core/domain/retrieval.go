package domain

// Retrieval tier labels carried on RetrievalResult.
const (
	TierPrimary = "primary"
	TierRelaxed = "relaxed"
	TierGraph   = "graph"
)

// NodeCategory identifies a class of node in the knowledge graph.
type NodeCategory string

const (
	CategoryAct        NodeCategory = "act"
	CategoryRegulation NodeCategory = "regulation"
	CategorySection    NodeCategory = "section"
)

// AllNodeCategories in cascade order: top-level legislation first.
func AllNodeCategories() []NodeCategory {
	return []NodeCategory{CategoryAct, CategoryRegulation, CategorySection}
}

// SearchWeights balances the keyword and vector sub-queries of a hybrid
// search.
type SearchWeights struct {
	Keyword float64
	Vector  float64
}

func DefaultSearchWeights() SearchWeights {
	return SearchWeights{Keyword: 0.5, Vector: 0.5}
}

// SearchHit is one scored candidate document. Hits are never mutated after
// creation; boosting produces re-scored copies.
type SearchHit struct {
	DocumentID      string
	Score           float64
	Title           string
	Content         string
	Citation        string
	Section         string
	Jurisdiction    string
	DocumentType    string
	LegislationName string
	Snippet         string
	ScoreBreakdown  map[string]float64
}

// RetrievalResult is the outcome of one retrieval tier attempt. Hits are
// sorted descending by score.
type RetrievalResult struct {
	Hits    []SearchHit
	Total   int
	Tier    string
	Weights SearchWeights
	Notes   []string
}

// ContextDocument is the trimmed view of a SearchHit fed into the generation
// prompt.
type ContextDocument struct {
	DocumentID string
	Title      string
	Excerpt    string
	Citation   string
	Section    string
	Score      float64
}

// GraphNode is a raw node fetched from the knowledge graph for the
// substring and fuzzy matching stages.
type GraphNode struct {
	ID           string
	Title        string
	Body         string
	Citation     string
	Section      string
	Category     NodeCategory
	DocumentType string
	Jurisdiction string
}

// GraphNeighbor is a node reached by relationship traversal from a seed,
// together with the traversal depth (1 = direct neighbor).
type GraphNeighbor struct {
	Node  GraphNode
	Depth int
}

// Hit converts a graph node into a search hit with the given score.
func (n GraphNode) Hit(score float64) SearchHit {
	docType := n.DocumentType
	if docType == "" {
		docType = string(n.Category)
	}
	return SearchHit{
		DocumentID:   n.ID,
		Score:        score,
		Title:        n.Title,
		Content:      n.Body,
		Citation:     n.Citation,
		Section:      n.Section,
		Jurisdiction: n.Jurisdiction,
		DocumentType: docType,
	}
}
