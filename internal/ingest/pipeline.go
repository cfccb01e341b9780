package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

// Pipeline chunks documents, embeds every chunk, and inserts the batch into
// the chunk store in one call, so a source either lands completely or not at
// all on backends with atomic inserts.
type Pipeline struct {
	store    store.ChunkStore
	embedder embedding.Embedder
	splitter *Splitter
	logger   *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking overrides the default window size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) { p.splitter = NewSplitter(size, overlap) }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline over the given store and embedder.
func NewPipeline(chunkStore store.ChunkStore, embedder embedding.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    chunkStore,
		embedder: embedder,
		splitter: NewSplitter(DefaultChunkSize, DefaultChunkOverlap),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestDocuments chunks and embeds all documents of one source and commits
// them as a single batch. Chunk indexes run continuously across the source's
// documents in order. Sources that yield no text are a no-op.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []models.Document, ref models.SourceRef) (int, error) {
	var texts []string
	for _, doc := range docs {
		texts = append(texts, p.splitter.Split(doc.Text)...)
	}
	if len(texts) == 0 {
		p.logger.Warn("source yielded no chunks", zap.String("source", ref.ID))
		return 0, nil
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	now := time.Now().UTC()
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			Content:    text,
			Embedding:  embeddings[i],
			SourceID:   ref.ID,
			SourceType: ref.Type,
			SourceKind: ref.Kind,
			ChunkIndex: i,
			CreatedAt:  now,
		}
	}

	inserted, err := p.store.InsertMany(ctx, chunks)
	if err != nil {
		return inserted, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("ingested source",
		zap.String("source", ref.ID),
		zap.String("kind", string(ref.Kind)),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", inserted))
	return inserted, nil
}

// IngestText ingests raw text as a single document under ref.
func (p *Pipeline) IngestText(ctx context.Context, text string, ref models.SourceRef) (int, error) {
	return p.IngestDocuments(ctx, []models.Document{{Text: text}}, ref)
}
