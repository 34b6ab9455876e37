package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/docwave/docwave-backend/internal/documents"
	"github.com/docwave/docwave-backend/internal/versioning/codec"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// RetentionLedger is the ledger surface the retention jobs need.
type RetentionLedger interface {
	Latest(ctx context.Context, documentID int64) (*domain.Version, error)
	HasAutoSaveBetween(ctx context.Context, documentID int64, from, to time.Time) (bool, error)
	ListAutoSavesInWindow(ctx context.Context, from, to time.Time) ([]domain.RetentionCandidate, error)
	ListAutoSavesBefore(ctx context.Context, before time.Time) ([]domain.RetentionCandidate, error)
	Delete(ctx context.Context, documentID int64, versionID string) (bool, error)
	DeleteAgedAutoSaves(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentLister feeds the daily snapshot job.
type DocumentLister interface {
	ListModifiedBetween(ctx context.Context, from, to time.Time) ([]documents.Document, error)
}

// Saver is how retention creates versions. The daily job goes through the
// optimized path so background checkpoints get delta storage when it pays.
type Saver interface {
	SaveVersionOptimized(ctx context.Context, documentID, userID int64, content string, opts domain.SaveOptions) (*domain.Version, error)
}

type DailyReport struct {
	CheckedDocuments int `json:"checked_documents"`
	CreatedVersions  int `json:"created_versions"`
}

type ThinningReport struct {
	Deleted    int   `json:"deleted"`
	FreedBytes int64 `json:"freed_bytes"`
}

// RetentionService implements the tiered retention policy. Every run is
// stateless and re-derives everything from the ledger, so jobs stay
// horizontally restartable.
type RetentionService struct {
	ledger          RetentionLedger
	docs            DocumentLister
	saver           Saver
	dayBucketAfter  int // days
	weekBucketAfter int // days
	maxAgeDays      int
	limiter         *rate.Limiter
	now             func() time.Time
}

// NewRetentionService creates a new RetentionService
func NewRetentionService(ledger RetentionLedger, docs DocumentLister, saver Saver, dayBucketAfter, weekBucketAfter, maxAgeDays, deletesPerSecond int) *RetentionService {
	if deletesPerSecond < 1 {
		deletesPerSecond = 50
	}
	return &RetentionService{
		ledger:          ledger,
		docs:            docs,
		saver:           saver,
		dayBucketAfter:  dayBucketAfter,
		weekBucketAfter: weekBucketAfter,
		maxAgeDays:      maxAgeDays,
		limiter:         rate.NewLimiter(rate.Limit(deletesPerSecond), deletesPerSecond),
		now:             time.Now,
	}
}

// RunDailySnapshots ensures every document modified yesterday has at least
// one auto-save version for that day. A failing document is logged and
// skipped; the batch never aborts.
func (s *RetentionService) RunDailySnapshots(ctx context.Context) (*DailyReport, error) {
	now := s.now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfYesterday := startOfToday.AddDate(0, 0, -1)

	docs, err := s.docs.ListModifiedBetween(ctx, startOfYesterday, startOfToday)
	if err != nil {
		return nil, fmt.Errorf("list documents modified yesterday: %w", err)
	}

	report := &DailyReport{CheckedDocuments: len(docs)}
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}

		has, err := s.ledger.HasAutoSaveBetween(ctx, doc.ID, startOfYesterday, startOfToday)
		if err != nil {
			log.Printf("[retention] daily check doc=%d: %v", doc.ID, err)
			continue
		}
		if has {
			continue
		}

		latest, err := s.ledger.Latest(ctx, doc.ID)
		if err != nil {
			log.Printf("[retention] latest version doc=%d: %v", doc.ID, err)
			continue
		}
		if latest != nil && latest.ContentHash == codec.Hash(doc.Content) {
			continue
		}
		latestNum := 0
		if latest != nil {
			latestNum = latest.VersionNumber
		}

		v, err := s.saver.SaveVersionOptimized(ctx, doc.ID, doc.CreatorID, doc.Content, domain.SaveOptions{
			ChangeDescription: fmt.Sprintf("daily autosave for %s", startOfYesterday.Format("2006-01-02")),
			IsAutoSave:        true,
		})
		if err != nil {
			log.Printf("[retention] daily snapshot doc=%d: %v", doc.ID, err)
			continue
		}
		// Hash dedup can hand back an older version; only a row that
		// advanced the history counts as created.
		if v.VersionNumber > latestNum {
			report.CreatedVersions++
		}
	}

	log.Printf("[retention] daily snapshots: checked=%d created=%d", report.CheckedDocuments, report.CreatedVersions)
	return report, nil
}

// RunThinning reduces auto-save density for older windows: between
// dayBucketAfter and weekBucketAfter days old, one version per document per
// calendar day survives; older than weekBucketAfter days, one per ISO week.
// Only auto-saves are ever candidates; manual saves and restores are not
// part of the evaluation at all.
func (s *RetentionService) RunThinning(ctx context.Context) (*ThinningReport, error) {
	now := s.now().UTC()
	weekCutoff := now.AddDate(0, 0, -s.weekBucketAfter)
	dayCutoff := now.AddDate(0, 0, -s.dayBucketAfter)

	report := &ThinningReport{}

	dayCandidates, err := s.ledger.ListAutoSavesInWindow(ctx, weekCutoff, dayCutoff)
	if err != nil {
		return nil, fmt.Errorf("list day-window candidates: %w", err)
	}
	s.thin(ctx, dayCandidates, report, func(c domain.RetentionCandidate) string {
		return c.CreatedAt.UTC().Format("2006-01-02")
	})

	weekCandidates, err := s.ledger.ListAutoSavesBefore(ctx, weekCutoff)
	if err != nil {
		return nil, fmt.Errorf("list week-window candidates: %w", err)
	}
	s.thin(ctx, weekCandidates, report, func(c domain.RetentionCandidate) string {
		year, week := c.CreatedAt.UTC().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	})

	log.Printf("[retention] thinning: deleted=%d freed=%dB", report.Deleted, report.FreedBytes)
	return report, nil
}

// thin keeps the first candidate seen per (document, bucket) and deletes the
// rest. Candidates arrive per document newest first, so the newest version
// of each bucket is the one retained.
func (s *RetentionService) thin(ctx context.Context, candidates []domain.RetentionCandidate, report *ThinningReport, bucket func(domain.RetentionCandidate) string) {
	type key struct {
		documentID int64
		bucket     string
	}
	seen := make(map[key]bool)

	for _, c := range candidates {
		k := key{documentID: c.DocumentID, bucket: bucket(c)}
		if !seen[k] {
			seen[k] = true
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			log.Printf("[retention] thinning aborted: %v", err)
			return
		}

		ok, err := s.ledger.Delete(ctx, c.DocumentID, c.ID)
		if err != nil {
			log.Printf("[retention] thinning delete doc=%d ver=%s: %v", c.DocumentID, c.ID, err)
			continue
		}
		if ok {
			report.Deleted++
			report.FreedBytes += c.StoredBytes
		}
	}
}

// RunAgeCleanup deletes auto-saves past the hard retention horizon.
func (s *RetentionService) RunAgeCleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.maxAgeDays)
	deleted, err := s.ledger.DeleteAgedAutoSaves(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("[retention] age cleanup: deleted=%d older than %s", deleted, cutoff.Format("2006-01-02"))
	return deleted, nil
}
