package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/infrastructure/resilience"
)

type Config struct {
	APIKey     string
	GenModel   string
	EmbedModel string
	Timeout    time.Duration
}

// Client wraps the Gemini API for answer generation and query embedding.
// Every generation failure is classified into a GenerationError kind before
// it reaches the retry loop, so retry behavior and suggested delays follow
// the service's own signals.
type Client struct {
	genai      *genai.Client
	genModel   string
	embedModel string
	timeout    time.Duration
	executor   *resilience.Executor
	log        *slog.Logger
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.GenModel == "" {
		cfg.GenModel = "gemini-2.0-flash"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-004"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.GenerationConfig())
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		genai:      client,
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		timeout:    cfg.Timeout,
		executor:   executor,
		log:        log,
	}, nil
}

// Generate runs one prompt through the retry loop. Non-retryable failures
// return immediately; retryable ones back off (honoring server-suggested
// delays) until the attempts are exhausted, then return the last classified
// error.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	var text string

	call := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.genai.Models.GenerateContent(callCtx, c.genModel, genai.Text(prompt), c.generateConfig(params))
		if err != nil {
			return classifyGenerationFailure(err)
		}

		extracted, ok := extractText(resp)
		if !ok {
			// An empty candidate set is a transient service glitch, worth
			// another attempt rather than a crash.
			return &domain.GenerationError{
				Kind:       domain.GenUnknown,
				Message:    "generation response contained no extractable text",
				RetryAfter: unknownWait,
				Retryable:  true,
			}
		}
		text = extracted
		return nil
	}

	if err := c.executor.Execute(ctx, "gemini.generate", call, classifyForRetry); err != nil {
		return "", classifyGenerationFailure(err)
	}
	return text, nil
}

// EmbedQuery builds the vector for the similarity sub-query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.genai.Models.EmbedContent(callCtx, c.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding result")
	}
	return resp.Embeddings[0].Values, nil
}

func (c *Client) generateConfig(params domain.GenerationParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(params.Temperature)),
		SafetySettings: []*genai.SafetySetting{
			{
				Category:  genai.HarmCategoryDangerousContent,
				Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
			},
		},
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(params.TopP))
	}
	if params.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(params.TopK))
	}
	return cfg
}

// extractText reassembles the answer from however many parts the service
// split it into.
func extractText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", false
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", false
	}
	return text, true
}
