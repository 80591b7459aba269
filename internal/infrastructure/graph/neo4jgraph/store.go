package neo4jgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lexhub/regrag/internal/core/domain"
)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Store reads legislation nodes from the knowledge graph. The graph holds
// three node labels (Act, Regulation, Section) linked by containment and
// cross-reference relationships; each label has its own full-text index.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	log      *slog.Logger
}

var categoryLabels = map[domain.NodeCategory]string{
	domain.CategoryAct:        "Act",
	domain.CategoryRegulation: "Regulation",
	domain.CategorySection:    "Section",
}

var fulltextIndexes = map[domain.NodeCategory]string{
	domain.CategoryAct:        "act_fulltext",
	domain.CategoryRegulation: "regulation_fulltext",
	domain.CategorySection:    "section_fulltext",
}

func New(cfg Config, log *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		timeout:  cfg.Timeout,
		log:      log,
	}, nil
}

func (s *Store) FullTextSearch(ctx context.Context, category domain.NodeCategory, query string, limit int) ([]domain.SearchHit, error) {
	index, ok := fulltextIndexes[category]
	if !ok {
		return nil, fmt.Errorf("neo4j: %w: unknown node category %q", domain.ErrInvalidInput, category)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("neo4j: %w: empty fulltext query", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	cypher := `CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
RETURN node, score
ORDER BY score DESC
LIMIT $limit`

	records, err := s.run(ctx, cypher, map[string]any{
		"index": index,
		"query": query,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(records))
	for _, record := range records {
		rawNode, ok := record.Get("node")
		if !ok {
			continue
		}
		node, ok := rawNode.(neo4j.Node)
		if !ok {
			continue
		}
		score, _ := record.Get("score")
		hits = append(hits, mapNode(node, category).Hit(toFloat(score)))
	}
	return hits, nil
}

func (s *Store) NodesContaining(ctx context.Context, terms []string, categories []domain.NodeCategory, limit int) ([]domain.GraphNode, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var nodes []domain.GraphNode
	for _, category := range categories {
		label, ok := categoryLabels[category]
		if !ok {
			continue
		}
		remaining := limit - len(nodes)
		if remaining <= 0 {
			break
		}

		// Label names come from the fixed category table, never from input.
		cypher := fmt.Sprintf(`MATCH (n:%s)
WHERE any(term IN $terms WHERE toLower(n.title) CONTAINS term OR toLower(n.body) CONTAINS term)
RETURN n
LIMIT $limit`, label)

		records, err := s.run(ctx, cypher, map[string]any{
			"terms": lowercase(terms),
			"limit": remaining,
		})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, collectNodes(records, category)...)
	}
	return nodes, nil
}

func (s *Store) AllNodes(ctx context.Context, categories []domain.NodeCategory, limit int) ([]domain.GraphNode, error) {
	if limit <= 0 {
		limit = 100
	}

	var nodes []domain.GraphNode
	for _, category := range categories {
		label, ok := categoryLabels[category]
		if !ok {
			continue
		}
		remaining := limit - len(nodes)
		if remaining <= 0 {
			break
		}

		cypher := fmt.Sprintf("MATCH (n:%s) RETURN n LIMIT $limit", label)
		records, err := s.run(ctx, cypher, map[string]any{"limit": remaining})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, collectNodes(records, category)...)
	}
	return nodes, nil
}

func (s *Store) Expand(ctx context.Context, seedID string, maxDepth int, limit int) ([]domain.GraphNeighbor, error) {
	if seedID == "" {
		return nil, fmt.Errorf("neo4j: %w: empty seed id", domain.ErrInvalidInput)
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 3 {
		maxDepth = 3
	}
	if limit <= 0 {
		limit = 20
	}

	// Variable-length bounds cannot be parameterized; maxDepth is clamped
	// to a small literal above.
	cypher := fmt.Sprintf(`MATCH p = (seed {id: $seedID})-[*1..%d]-(n)
WHERE n.id <> $seedID
RETURN n, min(length(p)) AS depth
ORDER BY depth ASC
LIMIT $limit`, maxDepth)

	records, err := s.run(ctx, cypher, map[string]any{
		"seedID": seedID,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}

	neighbors := make([]domain.GraphNeighbor, 0, len(records))
	for _, record := range records {
		rawNode, ok := record.Get("n")
		if !ok {
			continue
		}
		node, ok := rawNode.(neo4j.Node)
		if !ok {
			continue
		}
		rawDepth, _ := record.Get("depth")
		depth := int(toFloat(rawDepth))
		if depth < 1 {
			depth = 1
		}
		neighbors = append(neighbors, domain.GraphNeighbor{
			Node:  mapNode(node, categoryFromLabels(node.Labels)),
			Depth: depth,
		})
	}
	return neighbors, nil
}

func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.driver.VerifyConnectivity(pingCtx); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "neo4j ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := neo4j.ExecuteQuery(queryCtx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "neo4j query", err)
	}
	return result.Records, nil
}

func collectNodes(records []*neo4j.Record, category domain.NodeCategory) []domain.GraphNode {
	nodes := make([]domain.GraphNode, 0, len(records))
	for _, record := range records {
		rawNode, ok := record.Get("n")
		if !ok {
			continue
		}
		node, ok := rawNode.(neo4j.Node)
		if !ok {
			continue
		}
		nodes = append(nodes, mapNode(node, category))
	}
	return nodes
}

func mapNode(node neo4j.Node, category domain.NodeCategory) domain.GraphNode {
	props := node.Props
	id := stringProp(props, "id")
	if id == "" {
		id = node.ElementId
	}
	return domain.GraphNode{
		ID:           id,
		Title:        stringProp(props, "title"),
		Body:         stringProp(props, "body"),
		Citation:     stringProp(props, "citation"),
		Section:      stringProp(props, "section"),
		Category:     category,
		DocumentType: stringProp(props, "document_type"),
		Jurisdiction: stringProp(props, "jurisdiction"),
	}
}

func categoryFromLabels(labels []string) domain.NodeCategory {
	for _, label := range labels {
		for category, known := range categoryLabels {
			if label == known {
				return category
			}
		}
	}
	return domain.CategorySection
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func lowercase(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
