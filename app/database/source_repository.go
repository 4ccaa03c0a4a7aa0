package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var sourceColumns = []string{"id", "url", "name", "active", "created_at"}

// SourceRepository handles database operations for feed sources
type SourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new feed source repository
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Insert registers a new active source. Returns ErrDuplicate if the URL exists.
func (r *SourceRepository) Insert(ctx context.Context, url, name string) (*FeedSource, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	ib := r.db.flavor.NewInsertBuilder()
	ib.InsertInto("feed_sources").Cols("url", "name").Values(url, name)
	query, args := ib.Build()

	var id int64
	err := r.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert feed source: %w", err)
	}

	source, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("feed source %d vanished after insert", id)
	}

	return source, nil
}

// ListActive returns all sources with active = true
func (r *SourceRepository) ListActive(ctx context.Context) ([]FeedSource, error) {
	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(sourceColumns...).From("feed_sources").Where(sb.Equal("active", true)).OrderBy("id")
	query, args := sb.Build()

	sources, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active feed sources: %w", err)
	}
	return sources, nil
}

// List returns every source, newest first
func (r *SourceRepository) List(ctx context.Context) ([]FeedSource, error) {
	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(sourceColumns...).From("feed_sources").OrderBy("created_at DESC", "id DESC")
	query, args := sb.Build()

	sources, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed sources: %w", err)
	}
	return sources, nil
}

// GetByID retrieves a source by ID, returning nil when it does not exist
func (r *SourceRepository) GetByID(ctx context.Context, id int64) (*FeedSource, error) {
	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(sourceColumns...).From("feed_sources").Where(sb.Equal("id", id))
	return r.get(ctx, sb)
}

// GetByURL retrieves a source by URL, returning nil when it does not exist
func (r *SourceRepository) GetByURL(ctx context.Context, url string) (*FeedSource, error) {
	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(sourceColumns...).From("feed_sources").Where(sb.Equal("url", url))
	return r.get(ctx, sb)
}

// Delete removes a source and reports whether a row was removed
func (r *SourceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	dlb := r.db.flavor.NewDeleteBuilder()
	dlb.DeleteFrom("feed_sources").Where(dlb.Equal("id", id))
	query, args := dlb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete feed source: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows > 0, nil
}

// SetActive sets the active status of a source and reports whether it exists
func (r *SourceRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	ub := r.db.flavor.NewUpdateBuilder()
	ub.Update("feed_sources").Set(ub.Assign("active", active)).Where(ub.Equal("id", id))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to set feed source active status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows > 0, nil
}

// CountActive returns the number of active sources
func (r *SourceRepository) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	sb := r.db.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From("feed_sources").Where(sb.Equal("active", true))
	query, args := sb.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active feed sources: %w", err)
	}
	return count, nil
}

func (r *SourceRepository) get(ctx context.Context, sb interface{ Build() (string, []interface{}) }) (*FeedSource, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query, args := sb.Build()

	var source FeedSource
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&source.ID, &source.URL, &source.Name, &source.Active, &source.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed source: %w", err)
	}

	return &source, nil
}

func (r *SourceRepository) query(ctx context.Context, query string, args ...interface{}) ([]FeedSource, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []FeedSource{}
	for rows.Next() {
		var source FeedSource
		if err := rows.Scan(&source.ID, &source.URL, &source.Name, &source.Active, &source.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed source rows: %w", err)
	}

	return sources, nil
}

// Count returns the number of sources regardless of status
func (r *SourceRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_sources").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feed sources: %w", err)
	}
	return count, nil
}
