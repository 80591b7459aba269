package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type EngineMetrics struct {
	registry *prometheus.Registry
	service  string

	answersTotal     *prometheus.CounterVec
	answerDuration   *prometheus.HistogramVec
	answerConfidence *prometheus.HistogramVec
	contextDocs      *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	cacheSize        prometheus.Gauge
	generationErrors *prometheus.CounterVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewEngineMetrics(service string) *EngineMetrics {
	registry := prometheus.NewRegistry()

	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regrag",
			Subsystem: "engine",
			Name:      "answers_total",
			Help:      "Total synthesized answers by retrieval tier and cache outcome.",
		},
		[]string{"service", "tier", "cached"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regrag",
			Subsystem: "engine",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer synthesis duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "tier"},
	)
	answerConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regrag",
			Subsystem: "engine",
			Name:      "answer_confidence",
			Help:      "Distribution of answer confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"service", "tier"},
	)
	contextDocs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regrag",
			Subsystem: "engine",
			Name:      "context_documents",
			Help:      "Distribution of context documents per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "tier"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regrag",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total response cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	cacheSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regrag",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of entries in the response cache.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	generationErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regrag",
			Subsystem: "generation",
			Name:      "errors_total",
			Help:      "Total generation failures by classified kind.",
		},
		[]string{"service", "kind"},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	registry.MustRegister(
		answersTotal,
		answerDuration,
		answerConfidence,
		contextDocs,
		cacheLookups,
		cacheSize,
		generationErrors,
		requestTotal,
		requestDuration,
	)

	return &EngineMetrics{
		registry:         registry,
		service:          service,
		answersTotal:     answersTotal,
		answerDuration:   answerDuration,
		answerConfidence: answerConfidence,
		contextDocs:      contextDocs,
		cacheLookups:     cacheLookups,
		cacheSize:        cacheSize,
		generationErrors: generationErrors,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
	}
}

func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EngineMetrics) RecordAnswer(tier string, cached bool, confidence float64, contextDocs int, latencySeconds float64) {
	if tier == "" {
		tier = "unknown"
	}
	m.answersTotal.WithLabelValues(m.service, tier, strconv.FormatBool(cached)).Inc()
	m.answerDuration.WithLabelValues(m.service, tier).Observe(latencySeconds)
	m.answerConfidence.WithLabelValues(m.service, tier).Observe(confidence)
	m.contextDocs.WithLabelValues(m.service, tier).Observe(float64(contextDocs))
}

func (m *EngineMetrics) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(m.service, outcome).Inc()
}

func (m *EngineMetrics) SetCacheSize(n int) {
	m.cacheSize.Set(float64(n))
}

func (m *EngineMetrics) RecordGenerationError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.generationErrors.WithLabelValues(m.service, kind).Inc()
}

// Middleware instruments the HTTP surface in front of the engine.
func (m *EngineMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
