package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwave/docwave-backend/internal/documents"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
	"github.com/docwave/docwave-backend/internal/versioning/strategy"
)

const testMaxContent = 10 * 1024 * 1024

func newTestService() (*VersionService, *fakeLedger, *fakeDocs) {
	ledger := newFakeLedger()
	docs := newFakeDocs(&documents.Document{ID: 1, Title: "notes", Content: "live", CreatorID: 9, UpdatedAt: time.Now()})
	svc := NewVersionService(ledger, docs, nil, nil, testMaxContent)
	return svc, ledger, docs
}

func TestSaveAndListVersions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	v1, err := svc.SaveVersion(ctx, 1, 9, "Hello", domain.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.False(t, v1.IsDelta)

	v2, err := svc.SaveVersion(ctx, 1, 9, "Hello World", domain.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)

	page, err := svc.GetVersions(ctx, 1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.False(t, page.HasMore)
	require.Len(t, page.Versions, 2)
	assert.Equal(t, 2, page.Versions[0].VersionNumber)
	assert.Equal(t, 1, page.Versions[1].VersionNumber)

	detail, err := svc.GetVersionDetail(ctx, 1, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", detail.Content)
}

func TestSaveVersionDedup(t *testing.T) {
	svc, ledger, _ := newTestService()
	ctx := context.Background()

	v1, err := svc.SaveVersion(ctx, 1, 9, "A", domain.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)

	// Identical content: no new row, the original comes back unchanged.
	again, err := svc.SaveVersion(ctx, 1, 9, "A", domain.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, again.VersionNumber)
	assert.Equal(t, v1.ID, again.ID)

	n, err := ledger.CountByDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v2, err := svc.SaveVersion(ctx, 1, 9, "B", domain.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
}

func TestSaveVersionMonotonicNumbering(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		v, err := svc.SaveVersion(ctx, 1, 9, fmt.Sprintf("content %d", i), domain.SaveOptions{})
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
	}

	n, err := svc.GetLatestVersionNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestSaveVersionValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SaveVersion(ctx, 1, 9, "", domain.SaveOptions{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	small := NewVersionService(newFakeLedger(), newFakeDocs(&documents.Document{ID: 1}), nil, nil, 10)
	_, err = small.SaveVersion(ctx, 1, 9, strings.Repeat("x", 11), domain.SaveOptions{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSaveVersionDocumentMissing(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SaveVersion(context.Background(), 404, 9, "content", domain.SaveOptions{})
	assert.True(t, errors.Is(err, domain.ErrDocNotFound))
}

func TestGetVersionsValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetVersions(ctx, 1, 0, 20)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.GetVersions(ctx, 1, 1, -1)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetVersionsPagination(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.SaveVersion(ctx, 1, 9, fmt.Sprintf("content %d", i), domain.SaveOptions{})
		require.NoError(t, err)
	}

	page, err := svc.GetVersions(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Versions, 2)
	assert.Equal(t, 3, page.Versions[0].VersionNumber)
	assert.Equal(t, 2, page.Versions[1].VersionNumber)

	last, err := svc.GetVersions(ctx, 1, 3, 2)
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Versions, 1)
}

func TestRestoreVersion(t *testing.T) {
	svc, ledger, docs := newTestService()
	ctx := context.Background()

	v1, err := svc.SaveVersion(ctx, 1, 9, "X", domain.SaveOptions{})
	require.NoError(t, err)
	_, err = svc.SaveVersion(ctx, 1, 9, "Y", domain.SaveOptions{})
	require.NoError(t, err)
	_, err = svc.SaveVersion(ctx, 1, 9, "Z", domain.SaveOptions{})
	require.NoError(t, err)

	restored, err := svc.RestoreVersion(ctx, 1, 7, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.VersionNumber)
	assert.True(t, restored.IsRestore)
	assert.False(t, restored.IsAutoSave)
	assert.Equal(t, int64(7), restored.AuthorID)
	assert.Equal(t, "restored from version 1", restored.ChangeDescription)

	// Live document content was overwritten.
	doc, err := docs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "X", doc.Content)

	// The target version still exists, untouched, and history grew to 4.
	target, err := ledger.GetByID(ctx, 1, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, target.VersionNumber)

	n, err := ledger.CountByDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// The new version's content equals the restored target's.
	detail, err := svc.GetVersionDetail(ctx, 1, restored.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", detail.Content)
}

func TestDeleteVersion(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	v1, err := svc.SaveVersion(ctx, 1, 9, "A", domain.SaveOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVersion(ctx, 1, v1.ID))

	err = svc.DeleteVersion(ctx, 1, v1.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCleanOldVersionsSparesManualSaves(t *testing.T) {
	svc, ledger, _ := newTestService()
	ctx := context.Background()

	oldAuto, err := svc.SaveVersion(ctx, 1, 9, "old auto", domain.SaveOptions{IsAutoSave: true})
	require.NoError(t, err)
	oldManual, err := svc.SaveVersion(ctx, 1, 9, "old manual", domain.SaveOptions{})
	require.NoError(t, err)

	// Age both past the horizon.
	for _, v := range ledger.all(1) {
		v.CreatedAt = v.CreatedAt.AddDate(0, 0, -60)
	}

	freshAuto, err := svc.SaveVersion(ctx, 1, 9, "fresh auto", domain.SaveOptions{IsAutoSave: true})
	require.NoError(t, err)

	deleted, err := svc.CleanOldVersions(ctx, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = ledger.GetByID(ctx, 1, oldAuto.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = ledger.GetByID(ctx, 1, oldManual.ID)
	assert.NoError(t, err)
	_, err = ledger.GetByID(ctx, 1, freshAuto.ID)
	assert.NoError(t, err)
}

func TestSaveVersionOptimizedStoresDelta(t *testing.T) {
	ledger := newFakeLedger()
	docs := newFakeDocs(&documents.Document{ID: 1, CreatorID: 9, UpdatedAt: time.Now()})
	selector := strategy.NewSelector(ledger, 10, 0.3, 0.2)
	svc := NewVersionService(ledger, docs, nil, selector, testMaxContent)
	ctx := context.Background()

	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "section %d holds distinct prose about topic %d\n", i, i*13)
	}
	base := b.String()

	v1, err := svc.SaveVersionOptimized(ctx, 1, 9, base, domain.SaveOptions{IsAutoSave: true})
	require.NoError(t, err)
	assert.False(t, v1.IsDelta)

	edited := base + "appended conclusion paragraph\n"
	v2, err := svc.SaveVersionOptimized(ctx, 1, 9, edited, domain.SaveOptions{IsAutoSave: true})
	require.NoError(t, err)
	assert.True(t, v2.IsDelta)
	require.NotNil(t, v2.BaseVersionID)
	assert.Equal(t, v1.ID, *v2.BaseVersionID)
	assert.Less(t, len(v2.StoredContent), len(v1.StoredContent))

	// A delta version must still read back as complete text.
	detail, err := svc.GetVersionDetail(ctx, 1, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, edited, detail.Content)
}

func TestResolveContentRejectsDeltaChains(t *testing.T) {
	svc, ledger, _ := newTestService()
	ctx := context.Background()

	v1, err := svc.SaveVersion(ctx, 1, 9, "full base", domain.SaveOptions{})
	require.NoError(t, err)

	// Corrupt the ledger by hand: a delta whose base is another delta.
	badBase := &domain.Version{DocumentID: 1, ContentHash: "h1", IsDelta: true, BaseVersionID: &v1.ID, StoredContent: []byte("x")}
	require.NoError(t, ledger.Create(ctx, badBase))
	bad := &domain.Version{DocumentID: 1, ContentHash: "h2", IsDelta: true, BaseVersionID: &badBase.ID, StoredContent: []byte("y")}
	require.NoError(t, ledger.Create(ctx, bad))

	_, err = svc.GetVersionDetail(ctx, 1, bad.ID)
	assert.True(t, errors.Is(err, domain.ErrCorruptData))
}
