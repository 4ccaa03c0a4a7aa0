package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
)

var (
	ErrDuplicateURL = errors.New("feed URL already registered")
	ErrInvalidFeed  = errors.New("invalid feed")
)

// Prober fetches a feed once, ignoring any cached validators
type Prober interface {
	Probe(ctx context.Context, url string) ([]feed.RawEntry, feed.FetchOutcome)
}

// Sources is the storage the registry needs
type Sources interface {
	Insert(ctx context.Context, url, name string) (*database.FeedSource, error)
	ListActive(ctx context.Context) ([]database.FeedSource, error)
	List(ctx context.Context) ([]database.FeedSource, error)
	GetByID(ctx context.Context, id int64) (*database.FeedSource, error)
	GetByURL(ctx context.Context, url string) (*database.FeedSource, error)
	Delete(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	Count(ctx context.Context) (int, error)
}

type Registry struct {
	sources    Sources
	prober     Prober
	validators feed.ValidatorStore
}

// New creates a registry. validators may be nil; when set, a removed source
// loses its cached ETag and Last-Modified so a later re-add starts clean.
func New(sources Sources, prober Prober, validators feed.ValidatorStore) *Registry {
	return &Registry{sources: sources, prober: prober, validators: validators}
}

func (r *Registry) ListActive(ctx context.Context) ([]database.FeedSource, error) {
	return r.sources.ListActive(ctx)
}

func (r *Registry) List(ctx context.Context) ([]database.FeedSource, error) {
	return r.sources.List(ctx)
}

// Add validates the feed and registers it as active. Name defaults to the URL.
// A feed that fails to parse and has no entries is ErrInvalidFeed; a
// partially malformed feed with entries is accepted.
func (r *Registry) Add(ctx context.Context, url, name string) (*database.FeedSource, error) {
	url = strings.TrimSpace(url)
	if !feed.IsFeedURL(url) {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", ErrInvalidFeed, url)
	}

	existing, err := r.sources.GetByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateURL
	}

	entries, outcome := r.prober.Probe(ctx, url)
	if outcome.IsFailed() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFeed, outcome.Reason)
	}

	source, err := r.sources.Insert(ctx, url, cmp.Or(strings.TrimSpace(name), url))
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrDuplicateURL
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Feed source added", "feed", source.Name, "url", source.URL, "outcome", outcome.Kind.String(), "entries", len(entries))

	return source, nil
}

// Remove deletes a source and reports whether one was removed
func (r *Registry) Remove(ctx context.Context, id int64) (bool, error) {
	source, err := r.sources.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if source == nil {
		return false, nil
	}

	removed, err := r.sources.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	if r.validators != nil {
		if err := r.validators.Delete(ctx, source.URL); err != nil {
			slog.Warn("Failed to drop cache validators", "url", source.URL, "error", err)
		}
	}

	slog.Info("Feed source removed", "id", id, "url", source.URL)

	return true, nil
}

func (r *Registry) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	return r.sources.SetActive(ctx, id, active)
}

// Seed inserts the given sources when none are registered yet. Seeds are not
// probed. Returns the number inserted.
func (r *Registry) Seed(ctx context.Context, seeds []feed.Seed) (int, error) {
	count, err := r.sources.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		slog.Debug("Feed sources present, skipping seed", "count", count)
		return 0, nil
	}

	inserted := 0
	for _, seed := range seeds {
		_, err := r.sources.Insert(ctx, seed.URL, cmp.Or(seed.Name, seed.URL))
		if errors.Is(err, database.ErrDuplicate) {
			continue
		}
		if err != nil {
			slog.Warn("Failed to seed feed source", "url", seed.URL, "error", err)
			continue
		}
		inserted++
	}

	if inserted > 0 {
		slog.Info("Feed sources seeded", "count", inserted)
	}

	return inserted, nil
}
