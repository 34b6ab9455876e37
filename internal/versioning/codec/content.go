package codec

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
)

// Compress gzips UTF-8 text. Decompress(Compress(x)) == x for all x.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress is the inverse of Compress. Invalid payloads surface as
// domain.ErrCorruptData: a stored blob that no longer gunzips is a
// storage-integrity problem, not a caller mistake.
func Decompress(b []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	return string(out), nil
}

// Hash returns a hex-encoded SHA-256 digest of the text. Used for content
// equality (dedup), not security.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
