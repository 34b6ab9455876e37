package service

import (
	"context"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/docwave/docwave-backend/internal/versioning/codec"
)

// Span classifications in a comparison result.
const (
	SpanEqual  = "equal"
	SpanInsert = "insert"
	SpanDelete = "delete"
)

type Span struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CompareStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Unchanged int `json:"unchanged"`
}

type VersionRef struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
}

type CompareResult struct {
	Source VersionRef   `json:"source"`
	Target VersionRef   `json:"target"`
	Spans  []Span       `json:"spans"`
	Stats  CompareStats `json:"stats"`
}

// CompareService produces structured diffs between two stored versions.
type CompareService struct {
	ledger Ledger
}

// NewCompareService creates a new CompareService
func NewCompareService(ledger Ledger) *CompareService {
	return &CompareService{ledger: ledger}
}

// CompareVersions diffs two versions of a document with semantic cleanup,
// so spans read as meaningful edits rather than a minimal edit script.
func (s *CompareService) CompareVersions(ctx context.Context, documentID int64, sourceID, targetID string) (*CompareResult, error) {
	source, err := s.ledger.GetByID(ctx, documentID, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.ledger.GetByID(ctx, documentID, targetID)
	if err != nil {
		return nil, err
	}

	sourceContent, err := resolveContent(ctx, s.ledger, source)
	if err != nil {
		return nil, err
	}
	targetContent, err := resolveContent(ctx, s.ledger, target)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		Source: VersionRef{ID: source.ID, VersionNumber: source.VersionNumber, CreatedAt: source.CreatedAt},
		Target: VersionRef{ID: target.ID, VersionNumber: target.VersionNumber, CreatedAt: target.CreatedAt},
	}

	for _, d := range codec.Diff(sourceContent, targetContent) {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			result.Spans = append(result.Spans, Span{Type: SpanInsert, Text: d.Text})
			result.Stats.Additions += n
		case diffmatchpatch.DiffDelete:
			result.Spans = append(result.Spans, Span{Type: SpanDelete, Text: d.Text})
			result.Stats.Deletions += n
		default:
			result.Spans = append(result.Spans, Span{Type: SpanEqual, Text: d.Text})
			result.Stats.Unchanged += n
		}
	}

	return result, nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "<br>",
)

// RenderCompareHTML renders a comparison as ins/del/span markup with all
// text content escaped. Used for notification emails, not the primary UI.
func RenderCompareHTML(result *CompareResult) string {
	var b strings.Builder
	for _, span := range result.Spans {
		text := htmlEscaper.Replace(span.Text)
		switch span.Type {
		case SpanInsert:
			b.WriteString("<ins>")
			b.WriteString(text)
			b.WriteString("</ins>")
		case SpanDelete:
			b.WriteString("<del>")
			b.WriteString(text)
			b.WriteString("</del>")
		default:
			b.WriteString("<span>")
			b.WriteString(text)
			b.WriteString("</span>")
		}
	}
	return b.String()
}
