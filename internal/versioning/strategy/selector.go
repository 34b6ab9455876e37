package strategy

import (
	"context"
	"fmt"

	"github.com/docwave/docwave-backend/internal/versioning/codec"
	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// History is the slice of the version ledger the selector needs.
type History interface {
	// LatestFull returns the newest non-delta version, or nil if none exists.
	LatestFull(ctx context.Context, documentID int64) (*domain.Version, error)
	// CountNewerThan counts versions with a number greater than versionNumber.
	CountNewerThan(ctx context.Context, documentID int64, versionNumber int) (int, error)
}

// Decision is the selector's verdict for one candidate save.
type Decision struct {
	Strategy      string
	BaseVersionID string // set when Strategy is delta
	PatchText     string // set when Strategy is delta
	Reason        string // informational, for audit logs only
}

// Selector decides whether a new version is stored as a full snapshot or as
// a delta against the last full snapshot. Rules are evaluated in order and
// the first match wins.
type Selector struct {
	history        History
	interval       int
	maxChangeRatio float64
	minSavings     float64
}

func NewSelector(history History, interval int, maxChangeRatio, minSavings float64) *Selector {
	return &Selector{
		history:        history,
		interval:       interval,
		maxChangeRatio: maxChangeRatio,
		minSavings:     minSavings,
	}
}

func (s *Selector) Choose(ctx context.Context, documentID int64, content string) (*Decision, error) {
	base, err := s.history.LatestFull(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("latest full version: %w", err)
	}
	if base == nil {
		return &Decision{Strategy: domain.StrategyFull, Reason: "first version"}, nil
	}

	sinceFull, err := s.history.CountNewerThan(ctx, documentID, base.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("count since full: %w", err)
	}
	if sinceFull >= s.interval {
		return &Decision{Strategy: domain.StrategyFull, Reason: "interval reached"}, nil
	}

	baseContent, err := codec.Decompress(base.StoredContent)
	if err != nil {
		return nil, fmt.Errorf("decompress base version %s: %w", base.ID, err)
	}

	if ChangeRatio(baseContent, content) > s.maxChangeRatio {
		return &Decision{Strategy: domain.StrategyFull, Reason: "change ratio too high"}, nil
	}

	patch := codec.MakePatch(baseContent, content)
	deltaBytes, err := codec.Compress(patch)
	if err != nil {
		return nil, fmt.Errorf("compress delta: %w", err)
	}
	fullBytes, err := codec.Compress(content)
	if err != nil {
		return nil, fmt.Errorf("compress full: %w", err)
	}

	saved := 1.0
	if len(fullBytes) > 0 {
		saved = 1.0 - float64(len(deltaBytes))/float64(len(fullBytes))
	}
	if saved < s.minSavings {
		return &Decision{Strategy: domain.StrategyFull, Reason: "delta inefficient"}, nil
	}

	return &Decision{
		Strategy:      domain.StrategyDelta,
		BaseVersionID: base.ID,
		PatchText:     patch,
		Reason:        fmt.Sprintf("delta saves %.0f%%", saved*100),
	}, nil
}

// ChangeRatio is a cheap character-level estimate of how much of the text
// changed: (length difference + same-index mismatches over the overlapping
// prefix) / max length. Two empty strings have ratio 0. This is an internal
// heuristic, not an edit distance.
func ChangeRatio(oldText, newText string) float64 {
	oldRunes := []rune(oldText)
	newRunes := []rune(newText)

	maxLen := len(oldRunes)
	if len(newRunes) > maxLen {
		maxLen = len(newRunes)
	}
	if maxLen == 0 {
		return 0
	}

	minLen := len(oldRunes)
	if len(newRunes) < minLen {
		minLen = len(newRunes)
	}

	mismatches := maxLen - minLen
	for i := 0; i < minLen; i++ {
		if oldRunes[i] != newRunes[i] {
			mismatches++
		}
	}

	return float64(mismatches) / float64(maxLen)
}
