package service

import (
	"context"
	"fmt"
	"log"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// ConflictInfo tells an editor whether its claimed base version is stale.
type ConflictInfo struct {
	HasConflict   bool   `json:"has_conflict"`
	LatestVersion int    `json:"latest_version"`
	YourVersion   int    `json:"your_version"`
	Message       string `json:"message"`
}

// MergeResult is the outcome of last-write-wins resolution. There is no
// content-level merging: the client's content always wins, and
// ConflictDetected only records that a conflict existed.
type MergeResult struct {
	Winner           string `json:"winner"`
	ConflictDetected bool   `json:"conflict_detected"`
	Content          string `json:"content"`
	NewVersion       int    `json:"new_version"`
}

// ConflictDetails carries the server's latest version for client-side diffing.
type ConflictDetails struct {
	ServerVersion    *domain.Version `json:"server_version"`
	ClientVersion    int             `json:"client_version"`
	ConflictedFields []string        `json:"conflicted_fields"`
}

// ConflictService flags lost-update conditions before a save is committed.
type ConflictService struct {
	ledger Ledger
	cache  LatestCache // optional
}

// NewConflictService creates a new ConflictService
func NewConflictService(ledger Ledger, cache LatestCache) *ConflictService {
	return &ConflictService{ledger: ledger, cache: cache}
}

// DetectConflict compares the client's claimed base version against the
// server's latest. No versions yet, or a client at/ahead of the latest,
// means no conflict.
func (s *ConflictService) DetectConflict(ctx context.Context, documentID int64, clientVersion int) (*ConflictInfo, error) {
	if clientVersion < 0 {
		return nil, fmt.Errorf("%w: client version must be >= 0", domain.ErrValidation)
	}

	latest, err := s.latestNumber(ctx, documentID)
	if err != nil {
		return nil, err
	}

	info := &ConflictInfo{
		HasConflict:   latest > clientVersion,
		LatestVersion: latest,
		YourVersion:   clientVersion,
	}
	if info.HasConflict {
		info.Message = fmt.Sprintf("document was updated to version %d while you were on version %d", latest, clientVersion)
	} else {
		info.Message = "your version is current"
	}
	return info, nil
}

// ResolveLastWriteWins accepts the client's content as-is. True concurrent
// merging (CRDT/OT) is a product decision this service deliberately avoids.
func (s *ConflictService) ResolveLastWriteWins(ctx context.Context, documentID int64, content string, clientVersion int) (*MergeResult, error) {
	info, err := s.DetectConflict(ctx, documentID, clientVersion)
	if err != nil {
		return nil, err
	}

	if info.HasConflict {
		log.Printf("[conflict] doc=%d last-write-wins over server version %d", documentID, info.LatestVersion)
	}

	return &MergeResult{
		Winner:           "client",
		ConflictDetected: info.HasConflict,
		Content:          content,
		NewVersion:       info.LatestVersion + 1,
	}, nil
}

// Details returns the server's latest version record for UI diffing, or nil
// when there is no conflict.
func (s *ConflictService) Details(ctx context.Context, documentID int64, clientVersion int) (*ConflictDetails, error) {
	info, err := s.DetectConflict(ctx, documentID, clientVersion)
	if err != nil {
		return nil, err
	}
	if !info.HasConflict {
		return nil, nil
	}

	server, err := s.ledger.Latest(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &ConflictDetails{
		ServerVersion:    server,
		ClientVersion:    clientVersion,
		ConflictedFields: []string{"content"},
	}, nil
}

func (s *ConflictService) latestNumber(ctx context.Context, documentID int64) (int, error) {
	if s.cache != nil {
		if n, ok, err := s.cache.Get(ctx, documentID); err == nil && ok {
			return n, nil
		} else if err != nil {
			log.Printf("[conflict] latest cache read doc=%d: %v", documentID, err)
		}
	}
	return s.ledger.LatestNumber(ctx, documentID)
}
