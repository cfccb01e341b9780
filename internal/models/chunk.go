// Package models defines core data structures for chunks, sources, and store statistics.
package models

import "time"

// Chunk is the atomic retrievable unit: a text passage with its embedding
// and provenance metadata. Content and Embedding are immutable once stored.
type Chunk struct {
	Content    string     `json:"content"`
	Embedding  []float32  `json:"-"`
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	SourceKind SourceKind `json:"source_kind,omitempty"`
	ChunkIndex int        `json:"chunk_index"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Source returns the chunk's provenance as a SourceRef.
func (c *Chunk) Source() SourceRef {
	return SourceRef{ID: c.SourceID, Type: c.SourceType, Kind: c.SourceKind}
}

// ScoredChunk is a chunk paired with its similarity to a query embedding.
// Search results do not carry the stored embedding.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// Document is a loaded source document (or one segment of it, e.g. a PDF
// page or CSV row) before chunking. Loaders produce one or more Documents
// per source; the ingestion pipeline assigns chunk indexes continuously
// across them.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
