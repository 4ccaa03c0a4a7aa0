package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const DefaultCategory = "General"

var itemColumns = []string{
	"id", "title", "summary", "link", "category", "published_at",
	"feed_source", "approved", "ai_suggestion", "created_at",
}

// ItemRepository handles database operations for feed items
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert stores a new item and sets item.ID. An existing row with the same
// link is never modified; the call returns ErrDuplicate instead.
func (r *ItemRepository) Insert(ctx context.Context, item *Item) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	ib := r.db.flavor.NewInsertBuilder()
	ib.InsertInto("feed_items").
		Cols("title", "summary", "link", "category", "published_at", "feed_source").
		Values(item.Title, item.Summary, item.Link, cmp.Or(item.Category, DefaultCategory), item.PublishedAt, item.FeedSource)
	query, args := ib.Build()

	err := r.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&item.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// Get retrieves an item by ID, returning nil when it does not exist
func (r *ItemRepository) Get(ctx context.Context, id int64) (*Item, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(itemColumns...).From("feed_items").Where(sb.Equal("id", id))
	query, args := sb.Build()

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// List returns items ordered by publication date, newest first
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]Item, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	sb := r.db.flavor.NewSelectBuilder()
	sb.Select(itemColumns...).From("feed_items")
	if filter.Approved != nil {
		sb.Where(sb.Equal("approved", *filter.Approved))
	}
	if filter.WithoutSuggest {
		sb.Where(sb.IsNull("ai_suggestion"))
	}
	sb.OrderBy("published_at DESC", "id DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}
	query, args := sb.Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// SetAISuggestion stores a suggestion and reports whether the item exists
func (r *ItemRepository) SetAISuggestion(ctx context.Context, id int64, suggestion string) (bool, error) {
	ub := r.db.flavor.NewUpdateBuilder()
	ub.Update("feed_items").Set(ub.Assign("ai_suggestion", suggestion)).Where(ub.Equal("id", id))
	return r.update(ctx, ub, "set item suggestion")
}

// Approve marks an item approved and reports whether the item exists
func (r *ItemRepository) Approve(ctx context.Context, id int64) (bool, error) {
	ub := r.db.flavor.NewUpdateBuilder()
	ub.Update("feed_items").Set(ub.Assign("approved", true)).Where(ub.Equal("id", id))
	return r.update(ctx, ub, "approve item")
}

// Delete removes an item and reports whether a row was removed
func (r *ItemRepository) Delete(ctx context.Context, id int64) (bool, error) {
	dlb := r.db.flavor.NewDeleteBuilder()
	dlb.DeleteFrom("feed_items").Where(dlb.Equal("id", id))
	return r.update(ctx, dlb, "delete item")
}

// PurgeApproved deletes approved items created before the given time
func (r *ItemRepository) PurgeApproved(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var cutoff interface{} = before.UTC()
	if r.db.driver == DriverSQLite {
		// CURRENT_TIMESTAMP is stored as UTC text
		cutoff = before.UTC().Format("2006-01-02 15:04:05")
	}

	dlb := r.db.flavor.NewDeleteBuilder()
	dlb.DeleteFrom("feed_items").Where(
		dlb.Equal("approved", true),
		dlb.LessThan("created_at", cutoff),
	)
	query, args := dlb.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge approved items: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// Stats returns item counts by approval status
func (r *ItemRepository) Stats(ctx context.Context) (ItemStats, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var stats ItemStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN approved THEN 0 ELSE 1 END), 0),
			COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0)
		FROM feed_items
	`).Scan(&stats.Total, &stats.Pending, &stats.Approved)
	if err != nil {
		return ItemStats{}, fmt.Errorf("failed to get item stats: %w", err)
	}

	return stats, nil
}

func (r *ItemRepository) update(ctx context.Context, b interface{ Build() (string, []interface{}) }, op string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query, args := b.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var suggestion sql.NullString

	err := row.Scan(
		&item.ID, &item.Title, &item.Summary, &item.Link, &item.Category, &item.PublishedAt,
		&item.FeedSource, &item.Approved, &suggestion, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if suggestion.Valid {
		item.AISuggestion = &suggestion.String
	}

	return &item, nil
}
