// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector aggregates the Prometheus instruments for the relay core:
// translation traffic, response/synthesis caches, and cleanup sweeps.
type Collector struct {
	translationsTotal   *prometheus.CounterVec
	translationDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	synthesisTotal    *prometheus.CounterVec
	cleanupDeletions  *prometheus.CounterVec
	sttStreamsOpened  prometheus.Counter
	fallbackActivated *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector and registers its instruments on reg.
// A nil reg falls back to the default Prometheus registerer; a nil logger
// falls back to a nop logger.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total translation requests by engine and status.",
		},
		[]string{"engine", "status"},
	)

	c.translationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_duration_seconds",
			Help:      "Translation request duration by engine.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	c.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by cache name.",
		},
		[]string{"cache"},
	)

	c.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by cache name.",
		},
		[]string{"cache"},
	)

	c.synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Total TTS synthesis requests by status.",
		},
		[]string{"status"},
	)

	c.cleanupDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deletions_total",
			Help:      "Records and files removed by cleanup jobs.",
		},
		[]string{"job"},
	)

	c.sttStreamsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_streams_opened_total",
			Help:      "Total STT recognition streams opened.",
		},
	)

	c.fallbackActivated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallback_total",
			Help:      "Fallback activations by primary engine.",
		},
		[]string{"primary"},
	)

	reg.MustRegister(
		c.translationsTotal,
		c.translationDuration,
		c.cacheHits,
		c.cacheMisses,
		c.synthesisTotal,
		c.cleanupDeletions,
		c.sttStreamsOpened,
		c.fallbackActivated,
	)

	return c
}

// RecordTranslation records a completed translation request.
func (c *Collector) RecordTranslation(engine, status string, seconds float64) {
	c.translationsTotal.WithLabelValues(engine, status).Inc()
	c.translationDuration.WithLabelValues(engine).Observe(seconds)
}

// RecordCacheHit records a hit on the named cache.
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss on the named cache.
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordSynthesis records a TTS synthesis request outcome.
func (c *Collector) RecordSynthesis(status string) {
	c.synthesisTotal.WithLabelValues(status).Inc()
}

// RecordCleanup records n deletions performed by the named cleanup job.
func (c *Collector) RecordCleanup(job string, n int) {
	if n <= 0 {
		return
	}
	c.cleanupDeletions.WithLabelValues(job).Add(float64(n))
}

// RecordStreamOpened records an opened STT stream.
func (c *Collector) RecordStreamOpened() {
	c.sttStreamsOpened.Inc()
}

// RecordFallback records a fallback activation for the given primary engine.
func (c *Collector) RecordFallback(primary string) {
	c.fallbackActivated.WithLabelValues(primary).Inc()
}
