package manual

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flujoapp/flujo/internal/platform/db"
)

// ErrNotFound indicates the entry does not exist.
var ErrNotFound = errors.New("manual: not found")

// Repository provides PostgreSQL backed persistence for manual entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateEntry inserts a new manual movement.
func (r *Repository) CreateEntry(ctx context.Context, input EntryInput) (*Entry, error) {
	const query = `
		INSERT INTO manual_entries (kind, description, amount, entry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	var e Entry
	err := r.pool.QueryRow(ctx, query, input.Kind, input.Description, input.Amount, input.EntryDate).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("manual: create entry: %w", err)
	}
	e.Kind = input.Kind
	e.Description = input.Description
	e.Amount = input.Amount
	e.EntryDate = input.EntryDate
	return &e, nil
}

// ListEntries returns filtered entries plus the unpaginated total.
func (r *Repository) ListEntries(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	var kind pgtype.Text
	if req.Kind != "" {
		kind = pgtype.Text{String: string(req.Kind), Valid: true}
	}
	var from, to pgtype.Date
	if !req.From.IsZero() {
		from = pgtype.Date{Time: req.From, Valid: true}
	}
	if !req.To.IsZero() {
		to = pgtype.Date{Time: req.To, Valid: true}
	}

	limit := req.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if req.Page > 1 {
		offset = (req.Page - 1) * limit
	}

	var out []Entry
	var total int
	// Count and page run in one transaction so the total matches the rows.
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const countQuery = `
			SELECT COUNT(*) FROM manual_entries
			WHERE ($1::text IS NULL OR kind = $1)
			  AND ($2::date IS NULL OR entry_date >= $2)
			  AND ($3::date IS NULL OR entry_date <= $3)`
		if err := tx.QueryRow(ctx, countQuery, kind, from, to).Scan(&total); err != nil {
			return fmt.Errorf("manual: count entries: %w", err)
		}

		const query = `
			SELECT id, kind, description, amount, entry_date, created_at, updated_at
			FROM manual_entries
			WHERE ($1::text IS NULL OR kind = $1)
			  AND ($2::date IS NULL OR entry_date >= $2)
			  AND ($3::date IS NULL OR entry_date <= $3)
			ORDER BY entry_date DESC, id DESC
			LIMIT $4 OFFSET $5`
		rows, err := tx.Query(ctx, query, kind, from, to, limit, offset)
		if err != nil {
			return fmt.Errorf("manual: list entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			var entryDate pgtype.Date
			if err := rows.Scan(&e.ID, &e.Kind, &e.Description, &e.Amount, &entryDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
				return fmt.Errorf("manual: scan entry: %w", err)
			}
			if entryDate.Valid {
				e.EntryDate = entryDate.Time
			}
			out = append(out, e)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("manual: list entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteEntry removes one manual movement.
func (r *Repository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM manual_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("manual: delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
