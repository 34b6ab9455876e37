package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docwave/docwave-backend/internal/documents"
	"github.com/docwave/docwave-backend/internal/versioning/codec"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
	"github.com/docwave/docwave-backend/internal/versioning/strategy"
)

// Ledger is the version-ledger surface the request-path services need.
type Ledger interface {
	Create(ctx context.Context, v *domain.Version) error
	GetByID(ctx context.Context, documentID int64, versionID string) (*domain.Version, error)
	FindByHash(ctx context.Context, documentID int64, hash string) (*domain.Version, error)
	ListByDocument(ctx context.Context, documentID int64, limit, offset int) ([]domain.Version, error)
	CountByDocument(ctx context.Context, documentID int64) (int, error)
	LatestNumber(ctx context.Context, documentID int64) (int, error)
	Latest(ctx context.Context, documentID int64) (*domain.Version, error)
	Delete(ctx context.Context, documentID int64, versionID string) (bool, error)
	DeleteAutoSavesBefore(ctx context.Context, documentID int64, cutoff time.Time) (int64, error)
}

// DocumentStore is the external document collaborator.
type DocumentStore interface {
	Get(ctx context.Context, id int64) (*documents.Document, error)
	UpdateContent(ctx context.Context, id int64, content string) error
}

// LatestCache caches the latest version number per document. May be absent.
type LatestCache interface {
	Get(ctx context.Context, documentID int64) (int, bool, error)
	Set(ctx context.Context, documentID int64, versionNumber int) error
	Invalidate(ctx context.Context, documentID int64) error
}

// Chooser picks full-vs-delta storage for a candidate save.
type Chooser interface {
	Choose(ctx context.Context, documentID int64, content string) (*strategy.Decision, error)
}

// VersionService handles business logic for the version ledger.
type VersionService struct {
	ledger          Ledger
	docs            DocumentStore
	cache           LatestCache // optional
	selector        Chooser     // optional; optimized saves fall back to full
	maxContentBytes int64
}

// NewVersionService creates a new VersionService
func NewVersionService(ledger Ledger, docs DocumentStore, cache LatestCache, selector Chooser, maxContentBytes int64) *VersionService {
	return &VersionService{
		ledger:          ledger,
		docs:            docs,
		cache:           cache,
		selector:        selector,
		maxContentBytes: maxContentBytes,
	}
}

// SaveVersion checkpoints the given content as a full snapshot. Saving the
// same content twice is idempotent: the existing version is returned and no
// new row is created.
func (s *VersionService) SaveVersion(ctx context.Context, documentID, userID int64, content string, opts domain.SaveOptions) (*domain.Version, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}

	hash := codec.Hash(content)
	existing, err := s.ledger.FindByHash(ctx, documentID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	compressed, err := codec.Compress(content)
	if err != nil {
		return nil, fmt.Errorf("compress content: %w", err)
	}

	v := &domain.Version{
		DocumentID:        documentID,
		StoredContent:     compressed,
		ContentSize:       int64(len(content)),
		ContentHash:       hash,
		AuthorID:          userID,
		ChangeDescription: opts.ChangeDescription,
		IsAutoSave:        opts.IsAutoSave,
	}
	if err := s.ledger.Create(ctx, v); err != nil {
		return nil, err
	}

	s.cacheLatest(ctx, documentID, v.VersionNumber)
	return v, nil
}

// SaveVersionOptimized is SaveVersion with delta storage: the strategy
// selector decides whether the new version is stored as a full snapshot or
// as a patch against the last full snapshot.
func (s *VersionService) SaveVersionOptimized(ctx context.Context, documentID, userID int64, content string, opts domain.SaveOptions) (*domain.Version, error) {
	if s.selector == nil {
		return s.SaveVersion(ctx, documentID, userID, content, opts)
	}

	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}

	hash := codec.Hash(content)
	existing, err := s.ledger.FindByHash(ctx, documentID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	decision, err := s.selector.Choose(ctx, documentID, content)
	if err != nil {
		return nil, fmt.Errorf("choose storage strategy: %w", err)
	}
	log.Printf("[versions] doc=%d strategy=%s reason=%q", documentID, decision.Strategy, decision.Reason)

	v := &domain.Version{
		DocumentID:        documentID,
		ContentSize:       int64(len(content)),
		ContentHash:       hash,
		AuthorID:          userID,
		ChangeDescription: opts.ChangeDescription,
		IsAutoSave:        opts.IsAutoSave,
	}

	if decision.Strategy == domain.StrategyDelta {
		compressed, err := codec.Compress(decision.PatchText)
		if err != nil {
			return nil, fmt.Errorf("compress delta: %w", err)
		}
		baseID := decision.BaseVersionID
		v.StoredContent = compressed
		v.IsDelta = true
		v.BaseVersionID = &baseID
	} else {
		compressed, err := codec.Compress(content)
		if err != nil {
			return nil, fmt.Errorf("compress content: %w", err)
		}
		v.StoredContent = compressed
	}

	if err := s.ledger.Create(ctx, v); err != nil {
		return nil, err
	}

	s.cacheLatest(ctx, documentID, v.VersionNumber)
	return v, nil
}

// GetVersions returns one page of a document's history, newest first.
func (s *VersionService) GetVersions(ctx context.Context, documentID int64, page, pageSize int) (*domain.VersionPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and page_size must be positive", domain.ErrValidation)
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return nil, err
	}

	total, err := s.ledger.CountByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	versions, err := s.ledger.ListByDocument(ctx, documentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &domain.VersionPage{
		Versions: versions,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  page*pageSize < total,
	}, nil
}

// GetVersionDetail returns a version together with its reconstructed content.
func (s *VersionService) GetVersionDetail(ctx context.Context, documentID int64, versionID string) (*domain.VersionDetail, error) {
	v, err := s.ledger.GetByID(ctx, documentID, versionID)
	if err != nil {
		return nil, err
	}

	content, err := resolveContent(ctx, s.ledger, v)
	if err != nil {
		return nil, err
	}

	return &domain.VersionDetail{Version: *v, Content: content}, nil
}

// RestoreVersion rolls the live document back to an earlier version. The
// target is never mutated: its content is written to the live document and
// recorded as a brand-new version continuing the number sequence.
func (s *VersionService) RestoreVersion(ctx context.Context, documentID, userID int64, versionID string) (*domain.Version, error) {
	target, err := s.ledger.GetByID(ctx, documentID, versionID)
	if err != nil {
		return nil, err
	}

	content, err := resolveContent(ctx, s.ledger, target)
	if err != nil {
		return nil, err
	}

	if err := s.docs.UpdateContent(ctx, documentID, content); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %d", domain.ErrDocNotFound, documentID)
		}
		return nil, err
	}

	compressed, err := codec.Compress(content)
	if err != nil {
		return nil, fmt.Errorf("compress content: %w", err)
	}

	// No hash dedup here: restoring always records a new history entry,
	// even though an older version with the same hash exists.
	v := &domain.Version{
		DocumentID:        documentID,
		StoredContent:     compressed,
		ContentSize:       int64(len(content)),
		ContentHash:       codec.Hash(content),
		AuthorID:          userID,
		ChangeDescription: fmt.Sprintf("restored from version %d", target.VersionNumber),
		IsAutoSave:        false,
		IsRestore:         true,
	}
	if err := s.ledger.Create(ctx, v); err != nil {
		return nil, err
	}

	s.cacheLatest(ctx, documentID, v.VersionNumber)
	return v, nil
}

// CleanOldVersions deletes the document's auto-save versions older than
// keepDays. Manual saves and restores are exempt.
func (s *VersionService) CleanOldVersions(ctx context.Context, documentID int64, keepDays int) (int64, error) {
	if keepDays < 1 {
		return 0, fmt.Errorf("%w: keep_days must be positive", domain.ErrValidation)
	}
	if err := s.ensureDocument(ctx, documentID); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	return s.ledger.DeleteAutoSavesBefore(ctx, documentID, cutoff)
}

// DeleteVersion removes a specific version unconditionally. Deleting a
// document's only version is the caller's responsibility to avoid.
func (s *VersionService) DeleteVersion(ctx context.Context, documentID int64, versionID string) error {
	ok, err := s.ledger.Delete(ctx, documentID, versionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, documentID); err != nil {
			log.Printf("[versions] invalidate latest cache doc=%d: %v", documentID, err)
		}
	}
	return nil
}

// GetLatestVersionNumber returns the latest version number, 0 if none.
func (s *VersionService) GetLatestVersionNumber(ctx context.Context, documentID int64) (int, error) {
	if s.cache != nil {
		if n, ok, err := s.cache.Get(ctx, documentID); err == nil && ok {
			return n, nil
		} else if err != nil {
			log.Printf("[versions] latest cache read doc=%d: %v", documentID, err)
		}
	}

	n, err := s.ledger.LatestNumber(ctx, documentID)
	if err != nil {
		return 0, err
	}

	s.cacheLatest(ctx, documentID, n)
	return n, nil
}

func (s *VersionService) validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if s.maxContentBytes > 0 && int64(len(content)) > s.maxContentBytes {
		return fmt.Errorf("%w: content exceeds %d bytes", domain.ErrValidation, s.maxContentBytes)
	}
	return nil
}

func (s *VersionService) ensureDocument(ctx context.Context, documentID int64) error {
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return fmt.Errorf("%w: document %d", domain.ErrDocNotFound, documentID)
		}
		return err
	}
	return nil
}

func (s *VersionService) cacheLatest(ctx context.Context, documentID int64, versionNumber int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, documentID, versionNumber); err != nil {
		log.Printf("[versions] latest cache write doc=%d: %v", documentID, err)
	}
}

// resolveContent reconstructs a version's text. Delta versions are resolved
// against their base full snapshot; the chain is capped at one hop and a
// base that is itself a delta is treated as corrupt data.
func resolveContent(ctx context.Context, ledger Ledger, v *domain.Version) (string, error) {
	if !v.IsDelta {
		return codec.Decompress(v.StoredContent)
	}

	if v.BaseVersionID == nil {
		return "", fmt.Errorf("%w: delta version %s has no base", domain.ErrCorruptData, v.ID)
	}

	base, err := ledger.GetByID(ctx, v.DocumentID, *v.BaseVersionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: base version %s of delta %s is gone", domain.ErrCorruptData, *v.BaseVersionID, v.ID)
		}
		return "", err
	}
	if base.IsDelta {
		return "", fmt.Errorf("%w: delta version %s is based on another delta %s", domain.ErrCorruptData, v.ID, base.ID)
	}

	baseContent, err := codec.Decompress(base.StoredContent)
	if err != nil {
		return "", err
	}
	patch, err := codec.Decompress(v.StoredContent)
	if err != nil {
		return "", err
	}
	return codec.ApplyPatch(baseContent, patch)
}
