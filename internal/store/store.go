// Package store provides chunk storage backends behind a single contract:
// an in-process flat-file store with linear-scan search, and an external
// Milvus collection with index-native search. The backend is chosen once at
// startup via the factory and never switched at runtime.
package store

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// ChunkStore is the contract shared by all backends. Implementations own the
// chunks they hold: inserted embeddings are copied, and search results do not
// alias internal state.
//
// Search returns at most topK chunks ordered by descending similarity, ties
// broken by original insertion order. topK <= 0 fails with ErrInvalidTopK;
// topK larger than the collection returns everything. Searching an empty
// store returns an empty result, not an error.
type ChunkStore interface {
	// InsertMany appends chunks and returns the number actually committed.
	// Every embedding must match the store's fixed dimension.
	InsertMany(ctx context.Context, chunks []models.Chunk) (int, error)
	// Search ranks all chunks against queryEmbedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]models.ScoredChunk, error)
	// Stats reports the collection aggregates.
	Stats(ctx context.Context) (*models.StoreStats, error)
	// Clear removes every chunk. Irreversible.
	Clear(ctx context.Context) error
	Close() error
}
