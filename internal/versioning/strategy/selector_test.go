package strategy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwave/docwave-backend/internal/versioning/codec"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

type fakeHistory struct {
	latestFull *domain.Version
	sinceFull  int
}

func (f *fakeHistory) LatestFull(_ context.Context, _ int64) (*domain.Version, error) {
	return f.latestFull, nil
}

func (f *fakeHistory) CountNewerThan(_ context.Context, _ int64, _ int) (int, error) {
	return f.sinceFull, nil
}

func fullVersion(t *testing.T, id string, number int, content string) *domain.Version {
	t.Helper()
	compressed, err := codec.Compress(content)
	require.NoError(t, err)
	return &domain.Version{
		ID:            id,
		VersionNumber: number,
		StoredContent: compressed,
		ContentHash:   codec.Hash(content),
	}
}

func TestChooseFirstVersion(t *testing.T) {
	sel := NewSelector(&fakeHistory{}, 10, 0.3, 0.2)

	d, err := sel.Choose(context.Background(), 1, "brand new doc")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFull, d.Strategy)
	assert.Equal(t, "first version", d.Reason)
}

func TestChooseIntervalReached(t *testing.T) {
	h := &fakeHistory{
		latestFull: fullVersion(t, "v-full", 1, "base content"),
		sinceFull:  10,
	}
	sel := NewSelector(h, 10, 0.3, 0.2)

	d, err := sel.Choose(context.Background(), 1, "base content plus a bit")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFull, d.Strategy)
	assert.Equal(t, "interval reached", d.Reason)
}

func TestChooseChangeRatioTooHigh(t *testing.T) {
	h := &fakeHistory{
		latestFull: fullVersion(t, "v-full", 1, "short"),
		sinceFull:  2,
	}
	sel := NewSelector(h, 10, 0.3, 0.2)

	// Entirely different, much longer content: ratio well above 0.3.
	d, err := sel.Choose(context.Background(), 1, strings.Repeat("completely different body ", 50))
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFull, d.Strategy)
	assert.Equal(t, "change ratio too high", d.Reason)
}

func TestChooseDelta(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "paragraph %d discusses topic %d in moderate detail\n", i, i*37)
	}
	base := b.String()
	h := &fakeHistory{
		latestFull: fullVersion(t, "v-full", 3, base),
		sinceFull:  2,
	}
	sel := NewSelector(h, 10, 0.3, 0.2)

	// Small tail edit: tiny patch, big savings over a full snapshot.
	d, err := sel.Choose(context.Background(), 1, base+"one new line at the end\n")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyDelta, d.Strategy)
	assert.Equal(t, "v-full", d.BaseVersionID)
	assert.NotEmpty(t, d.PatchText)
	assert.Contains(t, d.Reason, "delta saves")

	// The emitted patch must reconstruct the candidate content.
	got, err := codec.ApplyPatch(base, d.PatchText)
	require.NoError(t, err)
	assert.Equal(t, base+"one new line at the end\n", got)
}

func TestChangeRatio(t *testing.T) {
	assert.Equal(t, 0.0, ChangeRatio("", ""))
	assert.Equal(t, 0.0, ChangeRatio("same", "same"))
	assert.Equal(t, 1.0, ChangeRatio("", "abcd"))
	assert.Equal(t, 0.5, ChangeRatio("abcd", "abXY"))
	// Appending doubles the length: half the max length is new.
	assert.Equal(t, 0.5, ChangeRatio("abcd", "abcdabcd"))
}
