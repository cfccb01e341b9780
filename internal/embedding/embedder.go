// Package embedding produces vector embeddings for text through the OpenAI
// embeddings API, fronted by an LRU cache and a client-side rate limit. A
// deterministic mock embedder stands in for the API in tests and offline use.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbedding wraps every failure to produce an embedding, whatever the
// underlying cause, so callers can classify without knowing the provider.
var ErrEmbedding = errors.New("embedding failed")

// Embedder produces vector embeddings for text. All embeddings from one
// embedder have the same width, reported by Dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
