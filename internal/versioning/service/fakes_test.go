package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docwave/docwave-backend/internal/documents"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// fakeLedger is an in-memory version ledger for service tests. It satisfies
// Ledger, RetentionLedger and strategy.History.
type fakeLedger struct {
	versions map[int64][]*domain.Version
	clock    time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		versions: make(map[int64][]*domain.Version),
		clock:    time.Now().UTC().Add(-time.Hour),
	}
}

func (f *fakeLedger) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeLedger) Create(_ context.Context, v *domain.Version) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	next := 0
	for _, existing := range f.versions[v.DocumentID] {
		if existing.VersionNumber > next {
			next = existing.VersionNumber
		}
	}
	v.VersionNumber = next + 1
	v.CreatedAt = f.tick()
	v.UpdatedAt = v.CreatedAt
	f.versions[v.DocumentID] = append(f.versions[v.DocumentID], v)
	return nil
}

func (f *fakeLedger) GetByID(_ context.Context, documentID int64, versionID string) (*domain.Version, error) {
	for _, v := range f.versions[documentID] {
		if v.ID == versionID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) FindByHash(_ context.Context, documentID int64, hash string) (*domain.Version, error) {
	var found *domain.Version
	for _, v := range f.versions[documentID] {
		if v.ContentHash == hash && (found == nil || v.VersionNumber > found.VersionNumber) {
			found = v
		}
	}
	if found == nil {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (f *fakeLedger) ListByDocument(_ context.Context, documentID int64, limit, offset int) ([]domain.Version, error) {
	all := append([]*domain.Version(nil), f.versions[documentID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].VersionNumber > all[j].VersionNumber })

	out := []domain.Version{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, *all[i])
	}
	return out, nil
}

func (f *fakeLedger) CountByDocument(_ context.Context, documentID int64) (int, error) {
	return len(f.versions[documentID]), nil
}

func (f *fakeLedger) LatestNumber(_ context.Context, documentID int64) (int, error) {
	n := 0
	for _, v := range f.versions[documentID] {
		if v.VersionNumber > n {
			n = v.VersionNumber
		}
	}
	return n, nil
}

func (f *fakeLedger) Latest(_ context.Context, documentID int64) (*domain.Version, error) {
	var latest *domain.Version
	for _, v := range f.versions[documentID] {
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeLedger) LatestFull(_ context.Context, documentID int64) (*domain.Version, error) {
	var latest *domain.Version
	for _, v := range f.versions[documentID] {
		if v.IsDelta {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeLedger) CountNewerThan(_ context.Context, documentID int64, versionNumber int) (int, error) {
	n := 0
	for _, v := range f.versions[documentID] {
		if v.VersionNumber > versionNumber {
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) Delete(_ context.Context, documentID int64, versionID string) (bool, error) {
	vs := f.versions[documentID]
	for i, v := range vs {
		if v.ID == versionID {
			f.versions[documentID] = append(vs[:i], vs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) DeleteAutoSavesBefore(_ context.Context, documentID int64, cutoff time.Time) (int64, error) {
	var kept []*domain.Version
	var deleted int64
	for _, v := range f.versions[documentID] {
		if v.IsAutoSave && v.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	f.versions[documentID] = kept
	return deleted, nil
}

func (f *fakeLedger) DeleteAgedAutoSaves(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for documentID := range f.versions {
		n, _ := f.DeleteAutoSavesBefore(ctx, documentID, cutoff)
		total += n
	}
	return total, nil
}

func (f *fakeLedger) HasAutoSaveBetween(_ context.Context, documentID int64, from, to time.Time) (bool, error) {
	for _, v := range f.versions[documentID] {
		if v.IsAutoSave && !v.CreatedAt.Before(from) && v.CreatedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ListAutoSavesInWindow(_ context.Context, from, to time.Time) ([]domain.RetentionCandidate, error) {
	return f.candidates(func(v *domain.Version) bool {
		return !v.CreatedAt.Before(from) && v.CreatedAt.Before(to)
	}), nil
}

func (f *fakeLedger) ListAutoSavesBefore(_ context.Context, before time.Time) ([]domain.RetentionCandidate, error) {
	return f.candidates(func(v *domain.Version) bool {
		return v.CreatedAt.Before(before)
	}), nil
}

func (f *fakeLedger) candidates(match func(*domain.Version) bool) []domain.RetentionCandidate {
	var out []domain.RetentionCandidate
	for _, vs := range f.versions {
		for _, v := range vs {
			if v.IsAutoSave && match(v) {
				out = append(out, domain.RetentionCandidate{
					ID:          v.ID,
					DocumentID:  v.DocumentID,
					CreatedAt:   v.CreatedAt,
					StoredBytes: int64(len(v.StoredContent)),
				})
			}
		}
	}
	// per document newest first, matching the repository's ordering
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// all returns every stored version of a document, oldest number first.
func (f *fakeLedger) all(documentID int64) []*domain.Version {
	vs := append([]*domain.Version(nil), f.versions[documentID]...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].VersionNumber < vs[j].VersionNumber })
	return vs
}

type fakeDocs struct {
	docs map[int64]*documents.Document
}

func newFakeDocs(docs ...*documents.Document) *fakeDocs {
	f := &fakeDocs{docs: make(map[int64]*documents.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Get(_ context.Context, id int64) (*documents.Document, error) {
	d, ok := f.docs[id]
	if !ok || d.IsDeleted {
		return nil, documents.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDocs) UpdateContent(_ context.Context, id int64, content string) error {
	d, ok := f.docs[id]
	if !ok || d.IsDeleted {
		return documents.ErrNotFound
	}
	d.Content = content
	d.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDocs) ListModifiedBetween(_ context.Context, from, to time.Time) ([]documents.Document, error) {
	var out []documents.Document
	for _, d := range f.docs {
		if !d.IsDeleted && !d.UpdatedAt.Before(from) && d.UpdatedAt.Before(to) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
