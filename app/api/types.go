package api

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/registry"
)

type GeneratorInterface interface {
	Run(items []database.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type RegistryInterface interface {
	List(ctx context.Context) ([]database.FeedSource, error)
	ListActive(ctx context.Context) ([]database.FeedSource, error)
	Add(ctx context.Context, url, name string) (*database.FeedSource, error)
	Remove(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

var _ RegistryInterface = (*registry.Registry)(nil)

type ItemStore interface {
	Get(ctx context.Context, id int64) (*database.Item, error)
	List(ctx context.Context, filter database.ItemFilter) ([]database.Item, error)
	SetAISuggestion(ctx context.Context, id int64, suggestion string) (bool, error)
	Approve(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (database.ItemStats, error)
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

type Suggester interface {
	Suggest(ctx context.Context, title, summary string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, item database.Item) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthReporter interface {
	Health(ctx context.Context) map[string]interface{}
}

// Deps are the collaborators the handlers need. Cache may be nil.
type Deps struct {
	Registry  RegistryInterface
	Items     ItemStore
	Generator GeneratorInterface
	Runner    CycleRunner
	Suggester Suggester
	Publisher Publisher
	DB        Pinger
	Cache     HealthReporter
	Version   string
}

type Handler struct {
	registry  RegistryInterface
	items     ItemStore
	generator GeneratorInterface
	runner    CycleRunner
	suggester Suggester
	publisher Publisher
	db        Pinger
	cache     HealthReporter
	version   string
	startedAt time.Time
}

type addFeedRequest struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type itemResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Link         string    `json:"link"`
	Category     string    `json:"category"`
	PublishedAt  string    `json:"published_at"`
	FeedSource   string    `json:"feed_source"`
	Approved     bool      `json:"approved"`
	AISuggestion *string   `json:"ai_suggestion"`
	CreatedAt    time.Time `json:"created_at"`
}

type sourceResponse struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toItemResponse(item database.Item, _ int) itemResponse {
	return itemResponse{
		ID:           item.ID,
		Title:        item.Title,
		Summary:      item.Summary,
		Link:         item.Link,
		Category:     item.Category,
		PublishedAt:  item.PublishedAt,
		FeedSource:   item.FeedSource,
		Approved:     item.Approved,
		AISuggestion: item.AISuggestion,
		CreatedAt:    item.CreatedAt,
	}
}

func toSourceResponse(source database.FeedSource, _ int) sourceResponse {
	return sourceResponse{
		ID:        source.ID,
		URL:       source.URL,
		Name:      source.Name,
		Active:    source.Active,
		CreatedAt: source.CreatedAt,
	}
}
