package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_curator_items_accepted_total",
		Help: "Items inserted as new during ingestion",
	})

	ItemsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_curator_items_duplicate_total",
		Help: "Items skipped because their link was already stored",
	})

	ItemsError = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_curator_items_error_total",
		Help: "Items skipped because of a storage error other than a duplicate link",
	})

	EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_curator_entries_skipped_total",
		Help: "Feed entries dropped during normalization for lacking a title or link",
	})

	FetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rss_curator_fetch_outcomes_total",
		Help: "Feed fetches by outcome",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rss_curator_cycle_duration_seconds",
		Help:    "Duration of full ingestion cycles",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})

	EventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_curator_events_failed_total",
		Help: "Ingestion events that could not be delivered",
	})
)
