package opensearchx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"golang.org/x/time/rate"

	"github.com/lexhub/regrag/internal/core/domain"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string

	RateLimit float64
	RateBurst int
	Timeout   time.Duration
}

// Client runs keyword and vector queries against one document index. Both
// query kinds apply the same filter clauses so the hybrid merge compares
// like with like.
type Client struct {
	os      *opensearchapi.Client
	index   string
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("opensearch: at least one address is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("opensearch: index name is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20.0
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	osClient, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   10,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	return &Client{
		os:      osClient,
		index:   cfg.Index,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// documentSource mirrors the index mapping for provision documents.
type documentSource struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Citation        string   `json:"citation"`
	Section         string   `json:"section"`
	Jurisdiction    string   `json:"jurisdiction"`
	DocumentType    string   `json:"document_type"`
	LegislationName string   `json:"legislation_name"`
	Program         string   `json:"program"`
	PersonTypes     []string `json:"person_types"`
	Tags            []string `json:"tags"`
	Language        string   `json:"language"`
	Status          string   `json:"status"`
	EffectiveDate   string   `json:"effective_date"`
}

// searchResponse decodes the parts of the search reply we use, including
// per-field highlights which opensearchapi's typed response does not carry.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    documentSource      `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) SearchKeyword(ctx context.Context, query string, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("opensearch: %w: empty keyword query", domain.ErrInvalidInput)
	}
	body := buildKeywordBody(query, filters, size)
	return c.search(ctx, body)
}

func (c *Client) SearchVector(ctx context.Context, vector []float32, filters domain.SearchFilters, size int) ([]domain.SearchHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("opensearch: %w: empty query vector", domain.ErrInvalidInput)
	}
	body := buildVectorBody(vector, filters, size)
	return c.search(ctx, body)
}

func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.os.Ping(pingCtx, &opensearchapi.PingReq{}); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "opensearch ping", err)
	}
	return nil
}

func (c *Client) search(ctx context.Context, body map[string]any) ([]domain.SearchHit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp searchResponse
	req := opensearchapi.SearchReq{
		Indices: []string{c.index},
		Body:    strings.NewReader(string(payload)),
	}
	if _, err := c.os.Client.Do(searchCtx, req, &resp); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "opensearch search", err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.Hits.Hits))
	for _, raw := range resp.Hits.Hits {
		hits = append(hits, mapHit(raw.ID, raw.Score, raw.Source, raw.Highlight))
	}
	return hits, nil
}

func mapHit(id string, score float64, src documentSource, highlight map[string][]string) domain.SearchHit {
	hit := domain.SearchHit{
		DocumentID:      id,
		Score:           score,
		Title:           src.Title,
		Content:         src.Content,
		Citation:        src.Citation,
		Section:         src.Section,
		Jurisdiction:    src.Jurisdiction,
		DocumentType:    src.DocumentType,
		LegislationName: src.LegislationName,
	}
	if fragments, ok := highlight["content"]; ok && len(fragments) > 0 {
		hit.Snippet = strings.Join(fragments, " … ")
	}
	return hit
}

func buildKeywordBody(query string, filters domain.SearchFilters, size int) map[string]any {
	boolQuery := map[string]any{
		"must": []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":  query,
					"fields": []string{"title^2", "content", "citation"},
					"type":   "best_fields",
				},
			},
		},
	}
	if clauses := filterClauses(filters); len(clauses) > 0 {
		boolQuery["filter"] = clauses
	}

	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{
					"fragment_size":       150,
					"number_of_fragments": 3,
				},
			},
		},
	}
}

func buildVectorBody(vector []float32, filters domain.SearchFilters, size int) map[string]any {
	knn := map[string]any{
		"embedding": map[string]any{
			"vector": vector,
			"k":      size,
		},
	}

	query := map[string]any{"knn": knn}
	if clauses := filterClauses(filters); len(clauses) > 0 {
		query = map[string]any{
			"bool": map[string]any{
				"must":   []any{map[string]any{"knn": knn}},
				"filter": clauses,
			},
		}
	}

	return map[string]any{
		"size":  size,
		"query": query,
	}
}

// filterClauses maps the non-empty filter fields to term, terms and range
// clauses. Keyword and vector queries share this so a tier's filters apply
// identically to both sub-queries.
func filterClauses(filters domain.SearchFilters) []any {
	var clauses []any

	term := func(field, value string) {
		if value != "" {
			clauses = append(clauses, map[string]any{
				"term": map[string]any{field: value},
			})
		}
	}
	term("jurisdiction", filters.Jurisdiction)
	term("program", filters.Program)
	term("document_type", filters.DocumentType)
	term("person_types", filters.PersonType)
	term("language", filters.Language)
	term("status", filters.Status)

	if len(filters.Tags) > 0 {
		clauses = append(clauses, map[string]any{
			"terms": map[string]any{"tags": filters.Tags},
		})
	}

	if filters.DateFrom != "" || filters.DateTo != "" {
		bounds := map[string]any{}
		if filters.DateFrom != "" {
			bounds["gte"] = filters.DateFrom
		}
		if filters.DateTo != "" {
			bounds["lte"] = filters.DateTo
		}
		clauses = append(clauses, map[string]any{
			"range": map[string]any{"effective_date": bounds},
		})
	}

	return clauses
}
