// Package metrics exposes prometheus instrumentation for the evaluation
// pipeline and the active-rule cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create instances freely
// without default-registry collisions.
type Collector struct {
	registry              *prometheus.Registry
	transactionsEvaluated prometheus.Counter
	fraudEventsDetected   prometheus.Counter
	ruleEvaluationErrors  *prometheus.CounterVec
	evaluationDuration    prometheus.Histogram
	cacheHits             prometheus.Counter
	cacheMisses           prometheus.Counter
}

// New constructs a Collector with all pipeline metrics registered.
func New() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transactionsEvaluated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudkeeper_transactions_evaluated_total",
			Help: "Total number of transactions run through the rule set",
		}),
		fraudEventsDetected: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudkeeper_fraud_events_total",
			Help: "Total number of fraud events emitted",
		}),
		ruleEvaluationErrors: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraudkeeper_rule_evaluation_errors_total",
			Help: "Per-rule evaluation failures by reason",
		}, []string{"reason"}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudkeeper_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one transaction against the active rule set",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudkeeper_rule_cache_hits_total",
			Help: "Active rule set served from cache",
		}),
		cacheMisses: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudkeeper_rule_cache_misses_total",
			Help: "Active rule set loaded from the store",
		}),
	}
}

// ObserveEvaluation records one completed pipeline run.
func (c *Collector) ObserveEvaluation(duration time.Duration, matched int) {
	c.transactionsEvaluated.Inc()
	c.fraudEventsDetected.Add(float64(matched))
	c.evaluationDuration.Observe(duration.Seconds())
}

// RuleEvaluationError counts a per-rule failure by reason.
func (c *Collector) RuleEvaluationError(reason string) {
	c.ruleEvaluationErrors.WithLabelValues(reason).Inc()
}

// CacheHit counts an active rule set served from memory.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss counts an active rule set loaded from the store.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// Handler serves the collector's registry over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
