package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// VersionRepository handles PostgreSQL operations for the version ledger.
type VersionRepository struct {
	db *sql.DB
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(db *sql.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `id, document_id, version_number, stored_content, content_size, content_hash,
       author_id, change_description, is_auto_save, is_restore, is_delta, base_version_id,
       created_at, updated_at`

// Create inserts a new version, assigning the next contiguous version number
// for the document. Numbering is serialized by the unique
// (document_id, version_number) index: two concurrent saves that compute the
// same "next" number collide on insert and the loser retries.
func (r *VersionRepository) Create(ctx context.Context, v *domain.Version) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}

	var baseID sql.NullString
	if v.BaseVersionID != nil {
		baseID = sql.NullString{String: *v.BaseVersionID, Valid: true}
	}

	for i := 0; i < 5; i++ {
		var next int
		err := r.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version_number), 0) + 1 FROM document_versions WHERE document_id = $1`,
			v.DocumentID,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("next version number: %w", err)
		}

		const q = `
INSERT INTO document_versions (
	id, document_id, version_number, stored_content, content_size, content_hash,
	author_id, change_description, is_auto_save, is_restore, is_delta, base_version_id
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at;
`
		err = r.db.QueryRowContext(ctx, q,
			v.ID, v.DocumentID, next, v.StoredContent, v.ContentSize, v.ContentHash,
			v.AuthorID, v.ChangeDescription, v.IsAutoSave, v.IsRestore, v.IsDelta, baseID,
		).Scan(&v.CreatedAt, &v.UpdatedAt)

		if err == nil {
			v.VersionNumber = next
			return nil
		}

		// unique violation on (document_id, version_number) → lost the race, retry
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return fmt.Errorf("insert version: %w", err)
	}

	return fmt.Errorf("failed to assign version number for document %d", v.DocumentID)
}

// GetByID fetches one version of a document.
func (r *VersionRepository) GetByID(ctx context.Context, documentID int64, versionID string) (*domain.Version, error) {
	q := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 AND id = $2`

	v, err := scanVersion(r.db.QueryRowContext(ctx, q, documentID, versionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// FindByHash returns the newest version of the document with the given
// content hash, or nil if none exists.
func (r *VersionRepository) FindByHash(ctx context.Context, documentID int64, hash string) (*domain.Version, error) {
	q := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1 AND content_hash = $2
ORDER BY version_number DESC
LIMIT 1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, q, documentID, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find version by hash: %w", err)
	}
	return v, nil
}

// ListByDocument returns a page of versions ordered newest-number first.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID int64, limit, offset int) ([]domain.Version, error) {
	q := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC
LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, q, documentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Version, 0, limit)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByDocument returns the total number of versions for a document.
func (r *VersionRepository) CountByDocument(ctx context.Context, documentID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_versions WHERE document_id = $1`, documentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return n, nil
}

// LatestNumber returns the highest version number for a document, 0 if none.
func (r *VersionRepository) LatestNumber(ctx context.Context, documentID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = $1`, documentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("latest version number: %w", err)
	}
	return n, nil
}

// Latest returns the newest version of a document, or nil if none exists.
func (r *VersionRepository) Latest(ctx context.Context, documentID int64) (*domain.Version, error) {
	q := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC
LIMIT 1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, q, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return v, nil
}

// LatestFull returns the newest full-snapshot (non-delta) version, or nil.
func (r *VersionRepository) LatestFull(ctx context.Context, documentID int64) (*domain.Version, error) {
	q := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1 AND is_delta = FALSE
ORDER BY version_number DESC
LIMIT 1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, q, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest full version: %w", err)
	}
	return v, nil
}

// CountNewerThan counts versions with a number greater than versionNumber.
func (r *VersionRepository) CountNewerThan(ctx context.Context, documentID int64, versionNumber int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_versions WHERE document_id = $1 AND version_number > $2`,
		documentID, versionNumber,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count newer versions: %w", err)
	}
	return n, nil
}

// Delete removes one version. Returns false when the row was already gone;
// a double delete is not an error.
func (r *VersionRepository) Delete(ctx context.Context, documentID int64, versionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM document_versions WHERE document_id = $1 AND id = $2`,
		documentID, versionID,
	)
	if err != nil {
		return false, fmt.Errorf("delete version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAutoSavesBefore removes a document's auto-save versions created
// before the cutoff. Manual saves and restores are never touched.
func (r *VersionRepository) DeleteAutoSavesBefore(ctx context.Context, documentID int64, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM document_versions
		 WHERE document_id = $1 AND is_auto_save = TRUE AND created_at < $2`,
		documentID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old auto-saves: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAgedAutoSaves removes auto-save versions older than the cutoff
// across all documents (coarse age-based cleanup).
func (r *VersionRepository) DeleteAgedAutoSaves(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM document_versions WHERE is_auto_save = TRUE AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete aged auto-saves: %w", err)
	}
	return res.RowsAffected()
}

// ListAutoSavesInWindow returns auto-save thinning candidates with
// from <= created_at < to, ordered per document newest first.
func (r *VersionRepository) ListAutoSavesInWindow(ctx context.Context, from, to time.Time) ([]domain.RetentionCandidate, error) {
	const q = `
SELECT id, document_id, created_at, octet_length(stored_content)
FROM document_versions
WHERE is_auto_save = TRUE AND created_at >= $1 AND created_at < $2
ORDER BY document_id, created_at DESC`

	return r.listCandidates(ctx, q, from, to)
}

// ListAutoSavesBefore returns auto-save thinning candidates created before
// the cutoff, ordered per document newest first.
func (r *VersionRepository) ListAutoSavesBefore(ctx context.Context, before time.Time) ([]domain.RetentionCandidate, error) {
	const q = `
SELECT id, document_id, created_at, octet_length(stored_content)
FROM document_versions
WHERE is_auto_save = TRUE AND created_at < $1
ORDER BY document_id, created_at DESC`

	return r.listCandidates(ctx, q, before)
}

// HasAutoSaveBetween reports whether the document already has an auto-save
// version inside [from, to).
func (r *VersionRepository) HasAutoSaveBetween(ctx context.Context, documentID int64, from, to time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM document_versions
			WHERE document_id = $1 AND is_auto_save = TRUE AND created_at >= $2 AND created_at < $3
		)`,
		documentID, from, to,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check daily auto-save: %w", err)
	}
	return exists, nil
}

func (r *VersionRepository) listCandidates(ctx context.Context, q string, args ...interface{}) ([]domain.RetentionCandidate, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list retention candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.RetentionCandidate
	for rows.Next() {
		var c domain.RetentionCandidate
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.CreatedAt, &c.StoredBytes); err != nil {
			return nil, fmt.Errorf("scan retention candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*domain.Version, error) {
	var v domain.Version
	var baseID sql.NullString

	err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.StoredContent,
		&v.ContentSize,
		&v.ContentHash,
		&v.AuthorID,
		&v.ChangeDescription,
		&v.IsAutoSave,
		&v.IsRestore,
		&v.IsDelta,
		&baseID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if baseID.Valid {
		v.BaseVersionID = &baseID.String
	}
	return &v, nil
}
