// Package sourceid derives stable catalog keys for ingested sources, so the
// same file or URL always maps to the same ledger row across runs.
package sourceid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	filePrefix = "file:"
	urlPrefix  = "url:"
)

// ForFile returns a stable key for the given absolute file path. The same
// path always yields the same key.
func ForFile(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return filePrefix + hex.EncodeToString(hash[:])
}

// ForURL returns a stable key for the given URL.
func ForURL(url string) string {
	hash := sha256.Sum256([]byte(url))
	return urlPrefix + hex.EncodeToString(hash[:])
}

// Random returns a short random identifier for sources with no natural name,
// such as inline text submissions.
func Random() string {
	return uuid.New().String()[:8]
}
