package shopping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoList is returned when an operation needs a shopping list and none exists yet.
var ErrNoList = errors.New("no shopping list")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository handles persistence of shopping lists.
type Repository struct {
	db DBTX
}

// NewRepository creates a new shopping list repository.
func NewRepository(d DBTX) *Repository {
	return &Repository{db: d}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// Current returns the most recently modified list with its items, or nil if
// there is none.
func (r *Repository) Current(ctx context.Context) (*List, error) {
	const query = `SELECT id, created_at, modified_at FROM shopping_lists ORDER BY modified_at DESC LIMIT 1`
	var l List
	err := r.db.QueryRowContext(ctx, query).Scan(&l.ID, &l.CreatedAt, &l.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No shopping list yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current shopping list: %w", err)
	}

	items, err := r.items(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return &l, nil
}

// GetOrCreateCurrent returns the current list, creating an empty one if needed.
func (r *Repository) GetOrCreateCurrent(ctx context.Context, now time.Time) (*List, error) {
	l, err := r.Current(ctx)
	if err != nil || l != nil {
		return l, err
	}
	l = NewList(now.UTC())
	const insert = `INSERT INTO shopping_lists (id, created_at, modified_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, insert, l.ID, l.CreatedAt, l.ModifiedAt); err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}
	return l, nil
}

// Save writes the list header and every item, keeping the item order.
func (r *Repository) Save(ctx context.Context, l *List) error {
	const upsert = `
INSERT INTO shopping_lists (id, created_at, modified_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET modified_at = excluded.modified_at`
	if _, err := r.db.ExecContext(ctx, upsert, l.ID, l.CreatedAt.UTC(), l.ModifiedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save shopping list: %w", err)
	}
	for i, it := range l.Items {
		if err := r.InsertItem(ctx, it, i); err != nil {
			return err
		}
	}
	return nil
}

// InsertItem inserts or updates an item at the given position.
func (r *Repository) InsertItem(ctx context.Context, it *Item, position int) error {
	const upsert = `
INSERT INTO shopping_list_items (id, list_id, article_id, quantity, checked, manually_added, manual_quantity, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    article_id = excluded.article_id,
    quantity = excluded.quantity,
    checked = excluded.checked,
    manually_added = excluded.manually_added,
    manual_quantity = excluded.manual_quantity,
    position = excluded.position`
	_, err := r.db.ExecContext(ctx, upsert,
		it.ID, it.ListID, it.ArticleID, ClampedQuantity(it), it.Checked, it.ManuallyAdded, it.ManualQuantity, position)
	if err != nil {
		return fmt.Errorf("failed to save shopping item %s: %w", it.ID, err)
	}
	return nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete shopping item %s: %w", id, err)
	}
	return nil
}

// Delete removes a list and its items.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete items of shopping list %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete shopping list %s: %w", id, err)
	}
	return nil
}

func (r *Repository) items(ctx context.Context, listID uuid.UUID) ([]*Item, error) {
	const query = `
SELECT id, list_id, article_id, quantity, checked, manually_added, manual_quantity
FROM shopping_list_items WHERE list_id = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ListID, &it.ArticleID, &it.Quantity, &it.Checked, &it.ManuallyAdded, &it.ManualQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan shopping item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}
