package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch metrics
	WindowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_etl_fetch_windows_total",
			Help: "Total number of feed windows requested, by outcome",
		},
		[]string{"status"},
	)

	RawEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quake_etl_fetch_raw_events_total",
			Help: "Total number of raw events received from the feed",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quake_etl_fetch_window_duration_seconds",
			Help:    "Duration of a single feed window request in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Load metrics
	RowsLoadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quake_etl_load_rows_total",
			Help: "Total number of rows appended to the earthquakes table",
		},
	)

	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quake_etl_load_duration_seconds",
			Help:    "Duration of a bulk append in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quake_etl_load_errors_total",
			Help: "Total number of failed bulk appends",
		},
	)

	// Pipeline metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_etl_runs_total",
			Help: "Total number of pipeline runs, by outcome",
		},
		[]string{"status"},
	)

	// Query metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quake_etl_query_duration_seconds",
			Help:    "Duration of dashboard and insight queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_etl_cache_requests_total",
			Help: "Total number of query cache lookups, by result",
		},
		[]string{"result"},
	)
)
