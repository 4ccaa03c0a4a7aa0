package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-curator/app/cache"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
)

type fakeProber struct {
	entries []feed.RawEntry
	outcome feed.FetchOutcome
	calls   int
}

func (p *fakeProber) Probe(_ context.Context, _ string) ([]feed.RawEntry, feed.FetchOutcome) {
	p.calls++
	return p.entries, p.outcome
}

func newTestRegistry(t *testing.T, prober Prober) (*Registry, *database.SourceRepository) {
	t.Helper()
	return newRegistryWithValidators(t, prober, nil)
}

func newRegistryWithValidators(t *testing.T, prober Prober, validators feed.ValidatorStore) (*Registry, *database.SourceRepository) {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	sources := database.NewSourceRepository(db)
	return New(sources, prober, validators), sources
}

func oneEntry() []feed.RawEntry {
	title, link := "Entry", "https://example.com/a"
	return []feed.RawEntry{{Title: &title, Link: &link}}
}

func TestAddRegistersActiveSource(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, &fakeProber{entries: oneEntry(), outcome: feed.Ok()})

	source, err := reg.Add(ctx, " https://example.com/feed.xml ", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/feed.xml", source.URL)
	assert.Equal(t, "https://example.com/feed.xml", source.Name)
	assert.True(t, source.Active)

	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestAddDuplicateURL(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{entries: oneEntry(), outcome: feed.Ok()}
	reg, _ := newTestRegistry(t, prober)

	_, err := reg.Add(ctx, "https://example.com/feed.xml", "Example")
	require.NoError(t, err)

	_, err = reg.Add(ctx, "https://example.com/feed.xml", "Again")
	assert.ErrorIs(t, err, ErrDuplicateURL)
	assert.Equal(t, 1, prober.calls)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Example", all[0].Name)
}

func TestAddRejectsInvalidFeed(t *testing.T) {
	ctx := context.Background()
	reg, sources := newTestRegistry(t, &fakeProber{outcome: feed.Failed("malformed feed without entries")})

	_, err := reg.Add(ctx, "https://example.com/broken.xml", "Broken")
	assert.ErrorIs(t, err, ErrInvalidFeed)

	count, err := sources.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAddRejectsNonHTTPURL(t *testing.T) {
	prober := &fakeProber{outcome: feed.Ok()}
	reg, _ := newTestRegistry(t, prober)

	_, err := reg.Add(context.Background(), "file:///etc/passwd", "")
	assert.ErrorIs(t, err, ErrInvalidFeed)
	assert.Equal(t, 0, prober.calls)
}

func TestAddAcceptsPartialParse(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeProber{entries: oneEntry(), outcome: feed.PartialParseOk("illegal character")})

	source, err := reg.Add(context.Background(), "https://example.com/sloppy.xml", "Sloppy")
	require.NoError(t, err)
	assert.Equal(t, "Sloppy", source.Name)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, &fakeProber{entries: oneEntry(), outcome: feed.Ok()})

	source, err := reg.Add(ctx, "https://example.com/feed.xml", "Example")
	require.NoError(t, err)

	removed, err := reg.Remove(ctx, source.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = reg.Remove(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = reg.Remove(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveDropsCachedValidators(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	validators, err := cache.NewValidatorCache(server.Addr())
	require.NoError(t, err)
	defer validators.Close()

	reg, _ := newRegistryWithValidators(t, &fakeProber{entries: oneEntry(), outcome: feed.Ok()}, validators)

	source, err := reg.Add(ctx, "https://example.com/feed.xml", "Example")
	require.NoError(t, err)

	other, err := reg.Add(ctx, "https://example.com/other.xml", "Other")
	require.NoError(t, err)

	require.NoError(t, validators.Set(ctx, source.URL, feed.Validators{ETag: `"v1"`}))
	require.NoError(t, validators.Set(ctx, other.URL, feed.Validators{ETag: `"v9"`}))

	removed, err := reg.Remove(ctx, source.ID)
	require.NoError(t, err)
	require.True(t, removed)

	stored, err := validators.Get(ctx, source.URL)
	require.NoError(t, err)
	assert.True(t, stored.IsZero())

	kept, err := validators.Get(ctx, other.URL)
	require.NoError(t, err)
	assert.Equal(t, `"v9"`, kept.ETag)

	// a re-added source fetches unconditionally
	readded, err := reg.Add(ctx, source.URL, "Example")
	require.NoError(t, err)
	stored, err = validators.Get(ctx, readded.URL)
	require.NoError(t, err)
	assert.True(t, stored.IsZero())
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	reg, sources := newTestRegistry(t, &fakeProber{outcome: feed.Failed("never called")})

	seeds := []feed.Seed{
		{URL: "https://a.example.com/feed", Name: "A"},
		{URL: "https://b.example.com/feed"},
	}

	inserted, err := reg.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	b, err := sources.GetByURL(ctx, "https://b.example.com/feed")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "https://b.example.com/feed", b.Name)

	inserted, err = reg.Seed(ctx, append(seeds, feed.Seed{URL: "https://c.example.com/feed"}))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}
