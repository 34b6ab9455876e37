package codec

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// Diff computes the edit script from old to new with semantic cleanup:
// trivial adjacent edits are merged into fewer, more readable spans. Use
// this for display and comparison.
func Diff(oldText, newText string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	return dmp.DiffCleanupSemantic(diffs)
}

// MakePatch builds a serialized patch from old to new with efficiency
// cleanup, which favors minimal data size over readability. The returned
// text is the storage form for delta versions.
func MakePatch(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupEfficiency(diffs)
	patches := dmp.PatchMake(oldText, diffs)
	return dmp.PatchToText(patches)
}

// ApplyPatch reconstructs new content from a base text and a serialized
// patch. Every hunk must apply; a single failed hunk means the stored delta
// no longer matches its base, which is corrupt data.
func ApplyPatch(oldText, patchText string) (string, error) {
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return "", fmt.Errorf("%w: parse patch: %v", domain.ErrCorruptData, err)
	}

	result, applied := dmp.PatchApply(patches, oldText)
	for i, ok := range applied {
		if !ok {
			return "", fmt.Errorf("%w: patch hunk %d failed to apply", domain.ErrCorruptData, i)
		}
	}
	return result, nil
}
