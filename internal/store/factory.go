package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BackendType identifies a chunk storage backend.
type BackendType string

const (
	// BackendFlat stores chunks in memory with a JSON snapshot on disk.
	BackendFlat BackendType = "flat"
	// BackendMilvus stores chunks in an external Milvus collection.
	BackendMilvus BackendType = "milvus"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is "flat" or "milvus". Empty selects flat.
	Backend string
	// SnapshotPath is the flat backend's snapshot file.
	SnapshotPath string
	// Dimensions is the embedding width every stored vector must have.
	Dimensions int
	// Model names the embedding model, recorded in snapshot metadata.
	Model string
	// Milvus configures the milvus backend. Its Dimensions field defaults
	// to Options.Dimensions when zero.
	Milvus MilvusOptions
}

// NewChunkStore builds the backend named in opts.
func NewChunkStore(ctx context.Context, opts Options, logger *zap.Logger) (ChunkStore, error) {
	switch BackendType(opts.Backend) {
	case BackendFlat, "":
		s, err := OpenFlatFile(opts.SnapshotPath, opts.Dimensions, opts.Model)
		if err != nil {
			return nil, fmt.Errorf("open flat store: %w", err)
		}
		return s, nil

	case BackendMilvus:
		milvusOpts := opts.Milvus
		if milvusOpts.Dimensions == 0 {
			milvusOpts.Dimensions = opts.Dimensions
		}
		s, err := NewMilvus(ctx, milvusOpts, logger)
		if err != nil {
			return nil, fmt.Errorf("connect milvus store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: flat, milvus)", opts.Backend)
	}
}
