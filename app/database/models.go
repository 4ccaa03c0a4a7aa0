package database

import (
	"time"
)

// FeedSource represents a registered feed endpoint
type FeedSource struct {
	ID        int64
	URL       string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Item represents a stored feed item. FeedSource is the source name at
// ingestion time, not a reference to feed_sources.
type Item struct {
	ID           int64
	Title        string
	Summary      string
	Link         string
	Category     string
	PublishedAt  string // stored as provided upstream
	FeedSource   string
	Approved     bool
	AISuggestion *string
	CreatedAt    time.Time
}

type ItemFilter struct {
	Approved       *bool
	WithoutSuggest bool
	Limit          int
}

type ItemStats struct {
	Total    int
	Pending  int
	Approved int
}
