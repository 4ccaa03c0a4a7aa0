package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/metrics"
)

// ItemStore inserts one item, returning database.ErrDuplicate when the link
// is already stored
type ItemStore interface {
	Insert(ctx context.Context, item *database.Item) error
}

type Result struct {
	Accepted         []string
	SkippedDuplicate int
	SkippedError     int

	// Inserted holds the stored rows, in the order they were accepted
	Inserted []database.Item
}

type Ingester struct {
	items ItemStore
}

func NewIngester(items ItemStore) *Ingester {
	return &Ingester{items: items}
}

// Ingest inserts each candidate on its own. A duplicate link is counted and
// leaves the stored row alone; any other failure is logged and counted.
// Earlier inserts are never undone by a later failure.
func (in *Ingester) Ingest(ctx context.Context, feedName string, candidates []feed.Item) Result {
	result := Result{Accepted: []string{}}

	for _, candidate := range candidates {
		item := database.Item{
			Title:       candidate.Title,
			Summary:     candidate.Summary,
			Link:        candidate.Link,
			Category:    candidate.Category,
			PublishedAt: candidate.PublishedAt,
			FeedSource:  feedName,
		}

		err := in.items.Insert(ctx, &item)
		switch {
		case err == nil:
			result.Accepted = append(result.Accepted, item.Title)
			result.Inserted = append(result.Inserted, item)
			metrics.ItemsAccepted.Inc()
			slog.Debug("Item added", "feed", feedName, "title", item.Title)
		case errors.Is(err, database.ErrDuplicate):
			result.SkippedDuplicate++
			metrics.ItemsDuplicate.Inc()
		default:
			result.SkippedError++
			metrics.ItemsError.Inc()
			slog.Error("Failed to store item", "feed", feedName, "link", item.Link, "error", err)
		}
	}

	return result
}
