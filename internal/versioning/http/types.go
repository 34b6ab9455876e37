package http

import (
	"context"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
	"github.com/docwave/docwave-backend/internal/versioning/service"
)

// VersionAPI is the version-store surface the handlers call.
type VersionAPI interface {
	SaveVersion(ctx context.Context, documentID, userID int64, content string, opts domain.SaveOptions) (*domain.Version, error)
	GetVersions(ctx context.Context, documentID int64, page, pageSize int) (*domain.VersionPage, error)
	GetVersionDetail(ctx context.Context, documentID int64, versionID string) (*domain.VersionDetail, error)
	RestoreVersion(ctx context.Context, documentID, userID int64, versionID string) (*domain.Version, error)
	CleanOldVersions(ctx context.Context, documentID int64, keepDays int) (int64, error)
	DeleteVersion(ctx context.Context, documentID int64, versionID string) error
}

type ConflictAPI interface {
	DetectConflict(ctx context.Context, documentID int64, clientVersion int) (*service.ConflictInfo, error)
	ResolveLastWriteWins(ctx context.Context, documentID int64, content string, clientVersion int) (*service.MergeResult, error)
	Details(ctx context.Context, documentID int64, clientVersion int) (*service.ConflictDetails, error)
}

type CompareAPI interface {
	CompareVersions(ctx context.Context, documentID int64, sourceID, targetID string) (*service.CompareResult, error)
}

// RetentionAPI exposes the scheduled jobs for manual triggering.
type RetentionAPI interface {
	RunDailySnapshots(ctx context.Context) (*service.DailyReport, error)
	RunThinning(ctx context.Context) (*service.ThinningReport, error)
}

type saveVersionReq struct {
	UserID            int64  `json:"user_id"`
	Content           string `json:"content"`
	ChangeDescription string `json:"change_description"`
	IsAutoSave        *bool  `json:"is_auto_save"` // defaults to true
}

type restoreReq struct {
	UserID int64 `json:"user_id"`
}

type cleanupReq struct {
	KeepDays *int `json:"keep_days"` // nil defaults to the configured horizon
}

type resolveConflictReq struct {
	Content       string `json:"content"`
	ClientVersion int    `json:"client_version"`
}
