package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/core/ports"
)

type Router struct {
	answers ports.AnswerService
	metrics http.Handler
}

func NewRouter(answers ports.AnswerService, metricsHandler http.Handler) *Router {
	return &Router{
		answers: answers,
		metrics: metricsHandler,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answers", rt.answer)
	mux.HandleFunc("/v1/stats", rt.stats)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}
	return mux
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Question       string   `json:"question"`
	NumContextDocs int      `json:"num_context_docs"`
	UseCache       *bool    `json:"use_cache"`
	Temperature    float64  `json:"temperature"`
	MaxTokens      int      `json:"max_tokens"`
	Jurisdiction   string   `json:"jurisdiction"`
	Program        string   `json:"program"`
	DocumentType   string   `json:"document_type"`
	PersonType     string   `json:"person_type"`
	DateFrom       string   `json:"date_from"`
	DateTo         string   `json:"date_to"`
	Tags           []string `json:"tags"`
	Language       string   `json:"language"`
	Status         string   `json:"status"`
}

type citationResponse struct {
	Text          string  `json:"text"`
	DocumentID    string  `json:"document_id,omitempty"`
	DocumentTitle string  `json:"document_title,omitempty"`
	Section       string  `json:"section,omitempty"`
	Confidence    float64 `json:"confidence"`
}

type contextResponse struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Citation   string  `json:"citation,omitempty"`
	Section    string  `json:"section,omitempty"`
	Score      float64 `json:"score"`
}

type answerResponse struct {
	ID         string             `json:"id"`
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	Citations  []citationResponse `json:"citations"`
	Confidence float64            `json:"confidence"`
	Context    []contextResponse  `json:"context"`
	Intent     string             `json:"intent"`
	Tier       string             `json:"tier"`
	LatencyMS  int64              `json:"latency_ms"`
	Cached     bool               `json:"cached"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	answer, err := rt.answers.Answer(r.Context(), domain.AnswerRequest{
		Question:       req.Question,
		NumContextDocs: req.NumContextDocs,
		UseCache:       useCache,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		Filters: domain.SearchFilters{
			Jurisdiction: req.Jurisdiction,
			Program:      req.Program,
			DocumentType: req.DocumentType,
			PersonType:   req.PersonType,
			DateFrom:     req.DateFrom,
			DateTo:       req.DateTo,
			Tags:         req.Tags,
			Language:     req.Language,
			Status:       req.Status,
		},
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toAnswerResponse(answer))
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats := rt.answers.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"cache_entries":        stats.CacheEntries,
		"search_index_healthy": stats.SearchIndexHealthy,
		"graph_healthy":        stats.GraphHealthy,
		"answers_by_tier":      stats.AnswersByTier,
	})
}

func toAnswerResponse(answer domain.RAGAnswer) answerResponse {
	citations := make([]citationResponse, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		citations = append(citations, citationResponse{
			Text:          c.Text,
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			Section:       c.Section,
			Confidence:    c.Confidence,
		})
	}
	contextDocs := make([]contextResponse, 0, len(answer.Context))
	for _, d := range answer.Context {
		contextDocs = append(contextDocs, contextResponse{
			DocumentID: d.DocumentID,
			Title:      d.Title,
			Excerpt:    d.Excerpt,
			Citation:   d.Citation,
			Section:    d.Section,
			Score:      d.Score,
		})
	}
	return answerResponse{
		ID:         answer.ID,
		Question:   answer.Question,
		Answer:     answer.Answer,
		Citations:  citations,
		Confidence: answer.Confidence,
		Context:    contextDocs,
		Intent:     string(answer.Intent),
		Tier:       answer.Tier,
		LatencyMS:  answer.Latency.Milliseconds(),
		Cached:     answer.Cached,
		Metadata:   answer.Metadata,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
