package documents

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is the live document record. Versioning only reads it and, on
// restore, overwrites its content; full document CRUD lives elsewhere.
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatorID int64     `json:"creator_id"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
