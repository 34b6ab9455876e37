package domain

import "time"

// Storage strategy constants
const (
	StrategyFull  = "full"
	StrategyDelta = "delta"
)

// Version represents one immutable snapshot (or delta) of a document's content.
type Version struct {
	ID                string     `json:"id"`
	DocumentID        int64      `json:"document_id"`
	VersionNumber     int        `json:"version_number"`
	StoredContent     []byte     `json:"-"`
	ContentSize       int64      `json:"content_size"`
	ContentHash       string     `json:"content_hash"`
	AuthorID          int64      `json:"author_id"`
	ChangeDescription string     `json:"change_description,omitempty"`
	IsAutoSave        bool       `json:"is_auto_save"`
	IsRestore         bool       `json:"is_restore"`
	IsDelta           bool       `json:"is_delta"`
	BaseVersionID     *string    `json:"base_version_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SaveOptions carries the optional parts of a save request.
type SaveOptions struct {
	ChangeDescription string
	IsAutoSave        bool
}

// VersionPage is one page of a document's version history, newest first.
type VersionPage struct {
	Versions []Version `json:"versions"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	HasMore  bool      `json:"has_more"`
}

// VersionDetail is a version record together with its reconstructed content.
type VersionDetail struct {
	Version
	Content string `json:"content"`
}

// RetentionCandidate is the slim projection the thinning job works over.
type RetentionCandidate struct {
	ID          string
	DocumentID  int64
	CreatedAt   time.Time
	StoredBytes int64
}
