// Package metrics defines the Prometheus collectors for the indexing and
// lookup paths and serves them for scraping.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	LookupsTotal   *prometheus.CounterVec
	LookupLatency  *prometheus.HistogramVec
	LookupResults  *prometheus.HistogramVec
	CacheHitsTotal prometheus.Counter
	CacheMisses    prometheus.Counter

	NodesIndexedTotal *prometheus.CounterVec
	WordsIndexedTotal *prometheus.CounterVec
	IndexErrorsTotal  *prometheus.CounterVec
	ReindexDuration   *prometheus.HistogramVec
	ActivationsTotal  *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookups_total",
				Help: "Lookups by request type and outcome (ok, empty, invalid, error).",
			},
			[]string{"type", "outcome"},
		),
		LookupLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lookup_latency_seconds",
				Help:    "Lookup latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"type", "cache_status"},
		),
		LookupResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lookup_results_count",
				Help:    "Number of rows returned per lookup.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"type"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lookup_cache_hits_total",
				Help: "Total number of lookup cache hits.",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lookup_cache_misses_total",
				Help: "Total number of lookup cache misses.",
			},
		),
		NodesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodes_indexed_total",
				Help: "Nodes written to the inactive generation.",
			},
			[]string{"domain"},
		),
		WordsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "words_indexed_total",
				Help: "Word rows written to the inactive generation.",
			},
			[]string{"domain"},
		),
		IndexErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_item_errors_total",
				Help: "Items skipped during indexing because of a per-item failure.",
			},
			[]string{"domain"},
		),
		ReindexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reindex_duration_seconds",
				Help:    "Wall time of a full reindex run.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"domain"},
		),
		ActivationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_activations_total",
				Help: "Generation swaps by status.",
			},
			[]string{"domain", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LookupsTotal,
		m.LookupLatency,
		m.LookupResults,
		m.CacheHitsTotal,
		m.CacheMisses,
		m.NodesIndexedTotal,
		m.WordsIndexedTotal,
		m.IndexErrorsTotal,
		m.ReindexDuration,
		m.ActivationsTotal,
	)

	return m
}
