package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIPort  string
	LogLevel string

	OpenSearchAddresses []string
	OpenSearchUsername  string
	OpenSearchPassword  string
	OpenSearchIndex     string
	OpenSearchRateLimit float64
	OpenSearchRateBurst int

	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	GeminiAPIKey     string
	GeminiGenModel   string
	GeminiEmbedModel string

	NATSEnabled bool
	NATSURL     string
	NATSSubject string

	SynonymsPath string

	CacheTTLHours   int
	CacheMaxEntries int

	RetrievalSize     int
	NumContextDocs    int
	GraphScanLimit    int
	GraphMaxDepth     int
	GenMaxTokens      int
	GenTemperature    float64
	QueryTimeoutMS    int
	GraphTimeoutMS    int
	GenRetryAttempts  int
	GenRetryMaxWaitMS int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		OpenSearchAddresses: splitList(mustEnv("OPENSEARCH_ADDRESSES", "http://localhost:9200")),
		OpenSearchUsername:  mustEnv("OPENSEARCH_USERNAME", ""),
		OpenSearchPassword:  mustEnv("OPENSEARCH_PASSWORD", ""),
		OpenSearchIndex:     mustEnv("OPENSEARCH_INDEX", "provisions"),
		OpenSearchRateLimit: mustEnvFloat("OPENSEARCH_RATE_LIMIT", 20.0),
		OpenSearchRateBurst: mustEnvInt("OPENSEARCH_RATE_BURST", 40),

		Neo4jURI:      mustEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUsername: mustEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: mustEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: mustEnv("NEO4J_DATABASE", "neo4j"),

		GeminiAPIKey:     mustEnv("GEMINI_API_KEY", ""),
		GeminiGenModel:   mustEnv("GEMINI_GEN_MODEL", "gemini-2.0-flash"),
		GeminiEmbedModel: mustEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),

		NATSEnabled: mustEnvBool("NATS_ENABLED", false),
		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "regrag.answers"),

		SynonymsPath: mustEnv("SYNONYMS_PATH", ""),

		CacheTTLHours:   mustEnvInt("CACHE_TTL_HOURS", 24),
		CacheMaxEntries: mustEnvInt("CACHE_MAX_ENTRIES", 1000),

		RetrievalSize:     mustEnvInt("RETRIEVAL_SIZE", 10),
		NumContextDocs:    mustEnvInt("NUM_CONTEXT_DOCS", 5),
		GraphScanLimit:    mustEnvInt("GRAPH_SCAN_LIMIT", 500),
		GraphMaxDepth:     mustEnvInt("GRAPH_MAX_DEPTH", 2),
		GenMaxTokens:      mustEnvInt("GEN_MAX_TOKENS", 1024),
		GenTemperature:    mustEnvFloat("GEN_TEMPERATURE", 0.2),
		QueryTimeoutMS:    mustEnvInt("QUERY_TIMEOUT_MS", 300),
		GraphTimeoutMS:    mustEnvInt("GRAPH_TIMEOUT_MS", 500),
		GenRetryAttempts:  mustEnvInt("GEN_RETRY_ATTEMPTS", 3),
		GenRetryMaxWaitMS: mustEnvInt("GEN_RETRY_MAX_WAIT_MS", 60000),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
