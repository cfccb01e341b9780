// Package ingest turns loaded documents into embedded chunks and commits
// them to a chunk store.
package ingest

import "strings"

const (
	// DefaultChunkSize is the window width in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many runes consecutive windows share.
	DefaultChunkOverlap = 200
)

// Splitter cuts text into overlapping windows measured in runes, so
// multi-byte scripts split at character boundaries, never mid-rune.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given window size and overlap.
// Non-positive size or negative overlap fall back to the defaults.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split normalizes whitespace runs to single spaces, then emits windows of
// up to size runes advancing by size-overlap each step. Overlap at or above
// the window size degrades to a one-rune step rather than looping forever.
func (s *Splitter) Split(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.size - s.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := min(i+s.size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
