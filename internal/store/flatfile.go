package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// FlatFile is a ChunkStore backed by an in-memory slice and a JSON snapshot
// on disk. Every mutation persists the snapshot before the in-memory state is
// updated, so a crash mid-write leaves the previous snapshot intact.
type FlatFile struct {
	path      string
	dims      int
	model     string
	createdAt time.Time

	mu      sync.RWMutex
	chunks  []models.Chunk
	sources []models.SourceRef
	seen    map[sourceKey]struct{}
}

type sourceKey struct {
	id  string
	typ models.SourceType
}

// snapshot is the on-disk layout. Embeddings are stored verbatim; chunk
// provenance travels in per-entry metadata so the file stays self-describing.
type snapshot struct {
	Embeddings []snapshotEntry `json:"embeddings"`
	Metadata   snapshotMeta    `json:"metadata"`
}

type snapshotEntry struct {
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata"`
	ChunkIndex int               `json:"chunk_index"`
}

type snapshotMeta struct {
	TotalChunks int      `json:"total_chunks"`
	Dimensions  int      `json:"dimensions"`
	Model       string   `json:"model"`
	CreatedAt   string   `json:"created_at"`
	SourceFiles []string `json:"source_files"`
}

// OpenFlatFile loads the snapshot at path, or starts a fresh empty store when
// none exists yet. A fresh store takes its dimension from dimensions; a loaded
// store keeps the persisted dimension and rejects a conflicting value.
func OpenFlatFile(path string, dimensions int, model string) (*FlatFile, error) {
	s, err := LoadSnapshot(path)
	if err == nil {
		if dimensions > 0 && dimensions != s.dims {
			return nil, &DimensionMismatchError{Want: s.dims, Got: dimensions}
		}
		return s, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return nil, err
	}

	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	return &FlatFile{
		path:      path,
		dims:      dimensions,
		model:     model,
		createdAt: time.Now().UTC(),
		seen:      make(map[sourceKey]struct{}),
	}, nil
}

// LoadSnapshot reads an existing snapshot from path. It returns
// ErrSnapshotNotFound if the file does not exist.
func LoadSnapshot(path string) (*FlatFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Metadata.Dimensions <= 0 {
		return nil, fmt.Errorf("snapshot %s: dimensions must be positive, got %d", path, snap.Metadata.Dimensions)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, snap.Metadata.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	s := &FlatFile{
		path:      path,
		dims:      snap.Metadata.Dimensions,
		model:     snap.Metadata.Model,
		createdAt: createdAt,
		chunks:    make([]models.Chunk, 0, len(snap.Embeddings)),
		seen:      make(map[sourceKey]struct{}),
	}

	for i, entry := range snap.Embeddings {
		if len(entry.Embedding) != s.dims {
			return nil, fmt.Errorf("snapshot entry %d: %w", i,
				&DimensionMismatchError{Want: s.dims, Got: len(entry.Embedding)})
		}
		chunk := models.Chunk{
			Content:    entry.Content,
			Embedding:  entry.Embedding,
			SourceID:   entry.Metadata["source_id"],
			SourceType: models.SourceType(entry.Metadata["source_type"]),
			SourceKind: models.SourceKind(entry.Metadata["source_kind"]),
			ChunkIndex: entry.ChunkIndex,
		}
		if ts, err := time.Parse(time.RFC3339Nano, entry.Metadata["created_at"]); err == nil {
			chunk.CreatedAt = ts
		}
		s.chunks = append(s.chunks, chunk)
		s.register(chunk.Source())
	}

	return s, nil
}

// register records a source the first time it appears. Callers hold the write
// lock or exclusive ownership of s.
func (s *FlatFile) register(ref models.SourceRef) {
	key := sourceKey{id: ref.ID, typ: ref.Type}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.sources = append(s.sources, ref)
}

// InsertMany validates every chunk, persists the grown snapshot, and only
// then commits the new chunks in memory. A failed persist leaves both the
// file and the in-memory state untouched.
func (s *FlatFile) InsertMany(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != s.dims {
			return 0, fmt.Errorf("chunk %d: %w", i,
				&DimensionMismatchError{Want: s.dims, Got: len(chunks[i].Embedding)})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Chunk, 0, len(s.chunks)+len(chunks))
	next = append(next, s.chunks...)
	for _, chunk := range chunks {
		embedding := make([]float32, s.dims)
		copy(embedding, chunk.Embedding)
		chunk.Embedding = embedding
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now().UTC()
		}
		next = append(next, chunk)
	}

	if err := s.persist(next); err != nil {
		return 0, fmt.Errorf("persist snapshot: %w", err)
	}

	s.chunks = next
	for _, chunk := range chunks {
		s.register(chunk.Source())
	}
	return len(chunks), nil
}

// Search scores every chunk against the query and returns the topK best,
// ordered by descending similarity with insertion order breaking ties.
func (s *FlatFile) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]models.ScoredChunk, error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	if len(queryEmbedding) != s.dims {
		return nil, &DimensionMismatchError{Want: s.dims, Got: len(queryEmbedding)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}

	scored := make([]models.ScoredChunk, len(s.chunks))
	for i := range s.chunks {
		chunk := s.chunks[i]
		chunk.Embedding = nil
		scored[i] = models.ScoredChunk{
			Chunk:      chunk,
			Similarity: Cosine(queryEmbedding, s.chunks[i].Embedding),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK:topK], nil
}

// Stats reports collection aggregates under a read lock. The sources slice is
// a copy in first-seen order.
func (s *FlatFile) Stats(ctx context.Context) (*models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.StoreStats{
		TotalChunks:    len(s.chunks),
		TotalDocuments: len(s.sources),
		Dimensions:     s.dims,
		Sources:        append([]models.SourceRef(nil), s.sources...),
		Backend:        string(BackendFlat),
	}, nil
}

// Clear persists an empty snapshot and drops all chunks. Clearing an already
// empty store succeeds.
func (s *FlatFile) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(nil); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.chunks = nil
	s.sources = nil
	s.seen = make(map[sourceKey]struct{})
	return nil
}

func (s *FlatFile) Close() error {
	return nil
}

// persist writes the snapshot for the given chunk set to a temporary file in
// the snapshot directory and renames it into place, so readers never observe
// a half-written file. Caller holds the write lock.
func (s *FlatFile) persist(chunks []models.Chunk) error {
	snap := snapshot{
		Embeddings: make([]snapshotEntry, 0, len(chunks)),
		Metadata: snapshotMeta{
			TotalChunks: len(chunks),
			Dimensions:  s.dims,
			Model:       s.model,
			CreatedAt:   s.createdAt.Format(time.RFC3339Nano),
		},
	}

	seen := make(map[sourceKey]struct{}, len(s.seen))
	for _, chunk := range chunks {
		snap.Embeddings = append(snap.Embeddings, snapshotEntry{
			Content:   chunk.Content,
			Embedding: chunk.Embedding,
			Metadata: map[string]string{
				"source_id":   chunk.SourceID,
				"source_type": string(chunk.SourceType),
				"source_kind": string(chunk.SourceKind),
				"created_at":  chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
			ChunkIndex: chunk.ChunkIndex,
		})
		key := sourceKey{id: chunk.SourceID, typ: chunk.SourceType}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			snap.Metadata.SourceFiles = append(snap.Metadata.SourceFiles, chunk.SourceID)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
