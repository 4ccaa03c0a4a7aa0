package ingest

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/events"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/metrics"
)

type SourceLister interface {
	ListActive(ctx context.Context) ([]database.FeedSource, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]feed.RawEntry, feed.FetchOutcome)
}

// Orchestrator runs ingestion cycles over all active sources
type Orchestrator struct {
	sources    SourceLister
	fetcher    Fetcher
	ingester   *Ingester
	notifier   events.Notifier
	validators feed.ValidatorStore
}

// NewOrchestrator wires a cycle runner. validators may be nil when
// conditional fetching is disabled; it must be the store the fetcher reads.
func NewOrchestrator(sources SourceLister, fetcher Fetcher, ingester *Ingester, notifier events.Notifier, validators feed.ValidatorStore) *Orchestrator {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}

	return &Orchestrator{
		sources:    sources,
		fetcher:    fetcher,
		ingester:   ingester,
		notifier:   notifier,
		validators: validators,
	}
}

// RunCycle fetches every active source in turn and returns the number of new
// items stored. Failures of one source are logged and do not stop the cycle;
// only a failure to list sources is returned.
func (o *Orchestrator) RunCycle(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	sources, err := o.sources.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active feed sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Warn("No active feed sources found")
		return 0, nil
	}

	total := 0
	for _, source := range sources {
		total += o.runSource(ctx, source)
	}

	slog.Info("Ingestion cycle completed", "feeds", len(sources), "new", total, "duration", time.Since(start))

	return total, nil
}

func (o *Orchestrator) runSource(ctx context.Context, source database.FeedSource) int {
	start := time.Now()
	name := cmp.Or(source.Name, source.URL)

	entries, outcome := o.fetcher.Fetch(ctx, source.URL)
	metrics.FetchOutcomes.WithLabelValues(outcome.Kind.String()).Inc()

	if outcome.IsFailed() {
		slog.Warn("Failed to fetch feed", "feed", name, "url", source.URL, "reason", outcome.Reason)
		return 0
	}
	if outcome.Kind == feed.OutcomePartialParseOk {
		slog.Warn("Feed parsed with errors", "feed", name, "url", source.URL, "reason", outcome.Reason)
	}

	candidates := lo.FilterMap(entries, func(entry feed.RawEntry, _ int) (feed.Item, bool) {
		return feed.Normalize(entry)
	})
	skipped := len(entries) - len(candidates)
	metrics.EntriesSkipped.Add(float64(skipped))

	result := o.ingester.Ingest(ctx, name, candidates)
	o.commitValidators(ctx, source.URL, outcome.Validators, result)

	if err := o.notifier.Notify(ctx, result.Inserted); err != nil {
		metrics.EventsFailed.Add(float64(len(result.Inserted)))
		slog.Error("Failed to publish item events", "feed", name, "count", len(result.Inserted), "error", err)
	}

	slog.Info("Feed ingested",
		"feed", name,
		"duration", time.Since(start),
		"total", len(entries),
		"skipped", skipped,
		"duplicates", result.SkippedDuplicate,
		"errors", result.SkippedError,
		"new", len(result.Accepted))

	return len(result.Accepted)
}

// commitValidators remembers the response validators only when every entry
// of the batch was stored or already known. After a storage error the old
// validators are dropped too, so the next cycle refetches the full document.
func (o *Orchestrator) commitValidators(ctx context.Context, url string, v feed.Validators, result Result) {
	if o.validators == nil {
		return
	}

	if result.SkippedError > 0 {
		if err := o.validators.Delete(ctx, url); err != nil {
			slog.Warn("Failed to drop cache validators", "url", url, "error", err)
		}
		return
	}

	if v.IsZero() {
		return
	}
	if err := o.validators.Set(ctx, url, v); err != nil {
		slog.Warn("Failed to store cache validators", "url", url, "error", err)
	}
}
