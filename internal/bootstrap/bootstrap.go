package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexhub/regrag/internal/config"
	"github.com/lexhub/regrag/internal/core/ports"
	"github.com/lexhub/regrag/internal/core/usecase"
	"github.com/lexhub/regrag/internal/infrastructure/cache"
	"github.com/lexhub/regrag/internal/infrastructure/events/natspub"
	"github.com/lexhub/regrag/internal/infrastructure/graph/neo4jgraph"
	"github.com/lexhub/regrag/internal/infrastructure/llm/gemini"
	"github.com/lexhub/regrag/internal/infrastructure/resilience"
	"github.com/lexhub/regrag/internal/infrastructure/searchindex/opensearchx"
	"github.com/lexhub/regrag/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.EngineMetrics

	Synthesizer ports.AnswerService

	closeFn func(context.Context)
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	searchIndex, err := opensearchx.New(opensearchx.Config{
		Addresses: cfg.OpenSearchAddresses,
		Username:  cfg.OpenSearchUsername,
		Password:  cfg.OpenSearchPassword,
		Index:     cfg.OpenSearchIndex,
		RateLimit: cfg.OpenSearchRateLimit,
		RateBurst: cfg.OpenSearchRateBurst,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}

	graphStore, err := neo4jgraph.New(neo4jgraph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUsername,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	genPolicy := resilience.GenerationConfig()
	if cfg.GenRetryAttempts > 0 {
		genPolicy.RetryMaxAttempts = cfg.GenRetryAttempts
	}
	if cfg.GenRetryMaxWaitMS > 0 {
		genPolicy.RetryMaxBackoff = time.Duration(cfg.GenRetryMaxWaitMS) * time.Millisecond
	}
	genExecutor := resilience.NewExecutor(genPolicy)

	geminiClient, err := gemini.New(ctx, gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		GenModel:   cfg.GeminiGenModel,
		EmbedModel: cfg.GeminiEmbedModel,
	}, genExecutor, log)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	dict := usecase.DefaultSynonymDictionary()
	if cfg.SynonymsPath != "" {
		loaded, err := usecase.LoadSynonymDictionary(cfg.SynonymsPath)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
		dict = loaded
	}

	hybrid := usecase.NewHybridSearchScorer(searchIndex, geminiClient, usecase.HybridConfig{
		QueryTimeout: time.Duration(cfg.QueryTimeoutMS) * time.Millisecond,
	}, log)
	graphSearch := usecase.NewGraphFallbackSearch(graphStore, dict, usecase.GraphSearchConfig{
		MaxDepth:     cfg.GraphMaxDepth,
		ScanLimit:    cfg.GraphScanLimit,
		QueryTimeout: time.Duration(cfg.GraphTimeoutMS) * time.Millisecond,
	}, log)
	retriever := usecase.NewTieredRetriever(hybrid, graphSearch, dict, usecase.TieredConfig{}, log)

	responseCache := cache.NewResponseCache(
		time.Duration(cfg.CacheTTLHours)*time.Hour,
		cfg.CacheMaxEntries,
	)

	engineMetrics := metrics.NewEngineMetrics("engine")

	var events ports.AnswerEventSink
	var publisher *natspub.Publisher
	if cfg.NATSEnabled {
		publisher, err = natspub.New(cfg.NATSURL, cfg.NATSSubject, natspub.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
			Logger:             log,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats publisher: %w", err)
		}
		events = publisher
	}

	synthesizer := usecase.NewAnswerSynthesizer(
		retriever,
		geminiClient,
		nil, // external query parser is wired by deployments that run one
		responseCache,
		events,
		engineMetrics,
		searchIndex,
		graphStore,
		usecase.SynthesizerConfig{
			MaxContextDocs: cfg.NumContextDocs,
		},
		log,
	)

	return &App{
		Config:      cfg,
		Metrics:     engineMetrics,
		Synthesizer: synthesizer,
		closeFn: func(ctx context.Context) {
			if publisher != nil {
				publisher.Close()
			}
			if err := graphStore.Close(ctx); err != nil {
				log.Warn("close graph store", "error", err)
			}
		},
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a.closeFn != nil {
		a.closeFn(ctx)
	}
}
