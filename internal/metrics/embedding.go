package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carekb"

// Embedding provider, budget, pipeline and cache metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Provider embedding calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Provider embedding call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Failed or malformed provider responses by kind",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "budget_tokens_remaining",
			Help:      "Tokens left in the current budget window",
		},
		[]string{"provider", "period"},
	)

	EmbeddingBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batches_total",
			Help:      "Embedding pipeline batches by outcome",
		},
		[]string{"status"},
	)

	EmbeddingPipelineTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "pipeline_texts_total",
			Help:      "Texts handled by the embedding pipeline by source",
		},
		[]string{"source"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"},
	)
)

var registerEmbeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding metrics. Safe to call repeatedly.
func RegisterEmbeddingMetrics() {
	registerEmbeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBudgetTokensRemaining,
			EmbeddingBatchesTotal,
			EmbeddingPipelineTextsTotal,
			EmbeddingCacheTotal,
		)
	})
}

// Provider labels the metrics of one embedding backend.
type Provider struct {
	Name  string
	Model string
}

// ObserveCall records one provider round trip. An empty failure marks success;
// otherwise it names the error kind.
func (p Provider) ObserveCall(took time.Duration, failure string) {
	EmbeddingRequestDuration.WithLabelValues(p.Name, p.Model).Observe(took.Seconds())
	if failure == "" {
		EmbeddingRequestsTotal.WithLabelValues(p.Name, p.Model, "success").Inc()
		return
	}
	EmbeddingRequestsTotal.WithLabelValues(p.Name, p.Model, "error").Inc()
	p.CountError(failure)
}

// CountError records a response rejected after the call returned.
func (p Provider) CountError(kind string) {
	EmbeddingErrorsTotal.WithLabelValues(p.Name, p.Model, kind).Inc()
}

// AddTokens records billed usage.
func (p Provider) AddTokens(prompt, total int) {
	if total <= 0 {
		return
	}
	EmbeddingTokensTotal.WithLabelValues(p.Name, p.Model, "prompt").Add(float64(prompt))
	EmbeddingTokensTotal.WithLabelValues(p.Name, p.Model, "total").Add(float64(total))
}

// SetBudgetRemaining publishes what is left of both budget windows.
func SetBudgetRemaining(provider string, daily, monthly int64) {
	EmbeddingBudgetTokensRemaining.WithLabelValues(provider, "daily").Set(float64(daily))
	EmbeddingBudgetTokensRemaining.WithLabelValues(provider, "monthly").Set(float64(monthly))
}

// CountPipelineTexts records how one pipeline run resolved its texts.
func CountPipelineTexts(cached, embedded, failed int) {
	EmbeddingPipelineTextsTotal.WithLabelValues("cached").Add(float64(cached))
	EmbeddingPipelineTextsTotal.WithLabelValues("embedded").Add(float64(embedded))
	EmbeddingPipelineTextsTotal.WithLabelValues("failed").Add(float64(failed))
}
