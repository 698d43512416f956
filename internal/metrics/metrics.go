// Package metrics holds the Prometheus collectors for retrieval, citation
// resolution and answer streaming. A nil *Collector is valid and records
// nothing, so services can run without metrics wired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sercha_rag"

// Citation lookup outcomes.
const (
	LookupCacheHit   = "cache_hit"
	LookupCatalogHit = "catalog_hit"
	LookupMiss       = "miss"
	LookupError      = "error"
)

// Answer outcomes.
const (
	AnswerOK        = "ok"
	AnswerError     = "error"
	AnswerCancelled = "cancelled"
)

// Collector groups the application's metrics on one registry.
type Collector struct {
	registry *prometheus.Registry

	channelRequests *prometheus.CounterVec
	channelDuration *prometheus.HistogramVec
	searchResults   prometheus.Histogram
	fusionFallbacks prometheus.Counter
	citationLookups *prometheus.CounterVec
	streamOverflows prometheus.Counter
	answers         *prometheus.CounterVec
}

// NewCollector registers all metrics on a fresh registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		channelRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_requests_total",
				Help:      "Retrieval channel calls by channel and outcome",
			},
			[]string{"channel", "status"},
		),
		channelDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "channel_duration_seconds",
				Help:      "Retrieval channel latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		searchResults: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of results returned per search",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		fusionFallbacks: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fusion_fallbacks_total",
				Help:      "Hybrid searches that fell back to vector-only",
			},
		),
		citationLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "citation_lookups_total",
				Help:      "Deep link resolutions by outcome",
			},
			[]string{"result"},
		),
		streamOverflows: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_buffer_overflows_total",
				Help:      "Streams force-flushed before a reasoning block ended",
			},
		),
		answers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answer requests by outcome",
			},
			[]string{"status"},
		),
	}
}

// RecordChannel records one retrieval channel call.
func (c *Collector) RecordChannel(channel, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.channelRequests.WithLabelValues(channel, status).Inc()
	c.channelDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// RecordSearch records the size of a search response.
func (c *Collector) RecordSearch(results int) {
	if c == nil {
		return
	}
	c.searchResults.Observe(float64(results))
}

// RecordFusionFallback counts a vector-only fallback.
func (c *Collector) RecordFusionFallback() {
	if c == nil {
		return
	}
	c.fusionFallbacks.Inc()
}

// RecordCitationLookup counts a deep link resolution by outcome.
func (c *Collector) RecordCitationLookup(result string) {
	if c == nil {
		return
	}
	c.citationLookups.WithLabelValues(result).Inc()
}

// RecordStreamOverflow counts a forced stream buffer flush.
func (c *Collector) RecordStreamOverflow() {
	if c == nil {
		return
	}
	c.streamOverflows.Inc()
}

// RecordAnswer counts an answer request by outcome.
func (c *Collector) RecordAnswer(status string) {
	if c == nil {
		return
	}
	c.answers.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
