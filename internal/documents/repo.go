package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Get returns a live (non-deleted) document.
func (r *Repo) Get(ctx context.Context, id int64) (*Document, error) {
	const q = `
SELECT id, title, content, creator_id, is_deleted, created_at, updated_at
FROM documents
WHERE id = $1 AND is_deleted = FALSE;
`
	var d Document
	err := r.db.QueryRow(ctx, q, id).
		Scan(&d.ID, &d.Title, &d.Content, &d.CreatorID, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// UpdateContent overwrites the live content. Used by version restore.
func (r *Repo) UpdateContent(ctx context.Context, id int64, content string) error {
	const q = `
UPDATE documents
SET content = $2, updated_at = now()
WHERE id = $1 AND is_deleted = FALSE;
`
	tag, err := r.db.Exec(ctx, q, id, content)
	if err != nil {
		return fmt.Errorf("update document content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListModifiedBetween returns live documents whose updated_at falls in
// [from, to). The daily snapshot job walks this set.
func (r *Repo) ListModifiedBetween(ctx context.Context, from, to time.Time) ([]Document, error) {
	const q = `
SELECT id, title, content, creator_id, is_deleted, created_at, updated_at
FROM documents
WHERE is_deleted = FALSE AND updated_at >= $1 AND updated_at < $2
ORDER BY id;
`
	rows, err := r.db.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("list modified documents: %w", err)
	}
	defer rows.Close()

	out := make([]Document, 0, 16)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.CreatorID, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
