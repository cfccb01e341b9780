package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	fieldID         = "id"
	fieldEmbedding  = "embedding"
	fieldContent    = "content"
	fieldSourceID   = "source_id"
	fieldSourceType = "source_type"
	fieldSourceKind = "source_kind"
	fieldChunkIndex = "chunk_index"
	fieldCreatedAt  = "created_at"

	ivfNList    = 128
	searchProbe = "16"
)

// MilvusOptions configures the milvus backend.
type MilvusOptions struct {
	Address  string
	Username string
	Password string
	Database string

	// Collection is the collection name. Defaults to "kotae_chunks".
	Collection string
	// Dimensions is the embedding width of the collection's vector field.
	Dimensions int

	// BatchSize bounds how many chunks a single insert RPC carries.
	BatchSize int
	// BatchTimeout bounds each insert sub-batch including its flush.
	BatchTimeout time.Duration
	// BatchDelay is the pause between consecutive sub-batches.
	BatchDelay time.Duration

	// MaxSourceScan caps how many rows Stats scans when collecting distinct
	// sources. Collections larger than the cap report a truncated list.
	MaxSourceScan int
	// ContentMaxLength is the varchar capacity of the content field.
	ContentMaxLength int
}

func (o *MilvusOptions) applyDefaults() {
	if o.Collection == "" {
		o.Collection = "kotae_chunks"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 30 * time.Second
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	} else if o.BatchDelay == 0 {
		o.BatchDelay = 100 * time.Millisecond
	}
	if o.MaxSourceScan <= 0 {
		o.MaxSourceScan = 10000
	}
	if o.ContentMaxLength <= 0 {
		o.ContentMaxLength = 65535
	}
}

// Milvus is a ChunkStore backed by a Milvus collection. The collection and
// its index are created on first use; a connection-level failure triggers one
// reconnect and one retry before the error surfaces as ErrBackendUnavailable.
type Milvus struct {
	opts   MilvusOptions
	logger *zap.Logger

	mu     sync.Mutex
	client *milvusclient.Client
	ready  bool
}

// NewMilvus dials the Milvus server. The collection itself is created lazily
// on the first operation that needs it.
func NewMilvus(ctx context.Context, opts MilvusOptions, logger *zap.Logger) (*Milvus, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("milvus address is required")
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", opts.Dimensions)
	}
	opts.applyDefaults()

	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Milvus{opts: opts, logger: logger}
	client, err := milvusclient.New(ctx, m.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrBackendUnavailable, opts.Address, err)
	}
	m.client = client

	logger.Info("connected to milvus",
		zap.String("address", opts.Address),
		zap.String("collection", opts.Collection),
		zap.Int("dimensions", opts.Dimensions))
	return m, nil
}

func (m *Milvus) clientConfig() *milvusclient.ClientConfig {
	return &milvusclient.ClientConfig{
		Address:  m.opts.Address,
		Username: m.opts.Username,
		Password: m.opts.Password,
		DBName:   m.opts.Database,
	}
}

func (m *Milvus) conn() *milvusclient.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// ensureReady creates, indexes, and loads the collection once per process.
// The flag is only set after the whole sequence succeeds, so a partial setup
// is retried on the next call.
func (m *Milvus) ensureReady(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}
	if err := m.setupCollection(ctx); err != nil {
		return err
	}
	m.ready = true
	return nil
}

// setupCollection runs under m.mu.
func (m *Milvus) setupCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.opts.Collection))
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}

	if !has {
		schema := entity.NewSchema().
			WithName(m.opts.Collection).
			WithDescription("document chunks with embeddings").
			WithAutoID(true).
			WithField(entity.NewField().
				WithName(fieldID).
				WithDataType(entity.FieldTypeInt64).
				WithIsPrimaryKey(true).
				WithIsAutoID(true)).
			WithField(entity.NewField().
				WithName(fieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(m.opts.Dimensions))).
			WithField(entity.NewField().
				WithName(fieldContent).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(m.opts.ContentMaxLength))).
			WithField(entity.NewField().
				WithName(fieldSourceID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(1024)).
			WithField(entity.NewField().
				WithName(fieldSourceType).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(16)).
			WithField(entity.NewField().
				WithName(fieldSourceKind).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(16)).
			WithField(entity.NewField().
				WithName(fieldChunkIndex).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName(fieldCreatedAt).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64))

		if err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(m.opts.Collection, schema)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.L2, ivfNList)
		task, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.opts.Collection, fieldEmbedding, idx))
		if err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("await index: %w", err)
		}

		m.logger.Info("created milvus collection", zap.String("collection", m.opts.Collection))
	}

	loadTask, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.opts.Collection))
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("await load: %w", err)
	}
	return nil
}

// InsertMany writes chunks in sub-batches of BatchSize. If a sub-batch fails
// the already-committed count travels in a PartialInsertError; batches before
// the failure stay in the collection.
func (m *Milvus) InsertMany(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != m.opts.Dimensions {
			return 0, fmt.Errorf("chunk %d: %w", i,
				&DimensionMismatchError{Want: m.opts.Dimensions, Got: len(chunks[i].Embedding)})
		}
	}
	if err := m.ensureReady(ctx); err != nil {
		return 0, err
	}

	inserted := 0
	for start := 0; start < len(chunks); start += m.opts.BatchSize {
		end := min(start+m.opts.BatchSize, len(chunks))
		if err := m.insertBatch(ctx, chunks[start:end]); err != nil {
			return inserted, &PartialInsertError{Inserted: inserted, Err: err}
		}
		inserted = end

		if end < len(chunks) && m.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return inserted, &PartialInsertError{Inserted: inserted, Err: ctx.Err()}
			case <-time.After(m.opts.BatchDelay):
			}
		}
	}

	m.logger.Debug("inserted chunks", zap.Int("count", inserted), zap.String("collection", m.opts.Collection))
	return inserted, nil
}

func (m *Milvus) insertBatch(ctx context.Context, batch []models.Chunk) error {
	contents := make([]string, len(batch))
	vectors := make([][]float32, len(batch))
	sourceIDs := make([]string, len(batch))
	sourceTypes := make([]string, len(batch))
	sourceKinds := make([]string, len(batch))
	chunkIndexes := make([]int64, len(batch))
	createdAts := make([]string, len(batch))

	for i, chunk := range batch {
		contents[i] = chunk.Content
		vectors[i] = chunk.Embedding
		sourceIDs[i] = chunk.SourceID
		sourceTypes[i] = string(chunk.SourceType)
		sourceKinds[i] = string(chunk.SourceKind)
		chunkIndexes[i] = int64(chunk.ChunkIndex)
		ts := chunk.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		createdAts[i] = ts.UTC().Format(time.RFC3339Nano)
	}

	bctx, cancel := context.WithTimeout(ctx, m.opts.BatchTimeout)
	defer cancel()

	return m.withRetry(bctx, "insert batch", func(ctx context.Context) error {
		_, err := m.conn().Insert(ctx, milvusclient.NewColumnBasedInsertOption(m.opts.Collection,
			column.NewColumnVarChar(fieldContent, contents),
			column.NewColumnFloatVector(fieldEmbedding, m.opts.Dimensions, vectors),
			column.NewColumnVarChar(fieldSourceID, sourceIDs),
			column.NewColumnVarChar(fieldSourceType, sourceTypes),
			column.NewColumnVarChar(fieldSourceKind, sourceKinds),
			column.NewColumnInt64(fieldChunkIndex, chunkIndexes),
			column.NewColumnVarChar(fieldCreatedAt, createdAts),
		))
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		flushTask, err := m.conn().Flush(ctx, milvusclient.NewFlushOption(m.opts.Collection))
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if err := flushTask.Await(ctx); err != nil {
			return fmt.Errorf("await flush: %w", err)
		}
		return nil
	})
}

// Search runs an ANN query and converts L2 distances to similarities. A
// collection reported as unloaded is loaded once and the search retried.
func (m *Milvus) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]models.ScoredChunk, error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	if len(queryEmbedding) != m.opts.Dimensions {
		return nil, &DimensionMismatchError{Want: m.opts.Dimensions, Got: len(queryEmbedding)}
	}
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	var out []models.ScoredChunk
	err := m.withRetry(ctx, "search", func(ctx context.Context) error {
		results, err := m.doSearch(ctx, queryEmbedding, topK)
		if err != nil && isNotLoaded(err) {
			if lerr := m.loadCollection(ctx); lerr == nil {
				results, err = m.doSearch(ctx, queryEmbedding, topK)
			}
		}
		if err != nil {
			return err
		}
		out = decodeSearchResults(results)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Milvus) doSearch(ctx context.Context, queryEmbedding []float32, topK int) ([]milvusclient.ResultSet, error) {
	opt := milvusclient.NewSearchOption(m.opts.Collection, topK, []entity.Vector{entity.FloatVector(queryEmbedding)}).
		WithANNSField(fieldEmbedding).
		WithSearchParam("nprobe", searchProbe).
		WithOutputFields(fieldContent, fieldSourceID, fieldSourceType, fieldSourceKind, fieldChunkIndex, fieldCreatedAt)

	results, err := m.conn().Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

func (m *Milvus) loadCollection(ctx context.Context) error {
	task, err := m.conn().LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.opts.Collection))
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await load: %w", err)
	}
	return nil
}

func decodeSearchResults(results []milvusclient.ResultSet) []models.ScoredChunk {
	if len(results) == 0 {
		return nil
	}
	rs := results[0]

	out := make([]models.ScoredChunk, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		var chunk models.Chunk
		for _, col := range rs.Fields {
			switch c := col.(type) {
			case *column.ColumnVarChar:
				if i >= len(c.Data()) {
					continue
				}
				val := c.Data()[i]
				switch c.Name() {
				case fieldContent:
					chunk.Content = val
				case fieldSourceID:
					chunk.SourceID = val
				case fieldSourceType:
					chunk.SourceType = models.SourceType(val)
				case fieldSourceKind:
					chunk.SourceKind = models.SourceKind(val)
				case fieldCreatedAt:
					if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
						chunk.CreatedAt = ts
					}
				}
			case *column.ColumnInt64:
				if c.Name() == fieldChunkIndex && i < len(c.Data()) {
					chunk.ChunkIndex = int(c.Data()[i])
				}
			}
		}

		similarity := 0.0
		if i < len(rs.Scores) {
			similarity = DistanceToSimilarity(float64(rs.Scores[i]))
		}
		out = append(out, models.ScoredChunk{Chunk: chunk, Similarity: similarity})
	}
	return out
}

// Stats reads the server-side row count and scans up to MaxSourceScan rows
// for distinct sources. SourcesTruncated reports when the scan hit the cap.
func (m *Milvus) Stats(ctx context.Context) (*models.StoreStats, error) {
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	stats := &models.StoreStats{
		Dimensions: m.opts.Dimensions,
		Backend:    string(BackendMilvus),
	}

	err := m.withRetry(ctx, "collection stats", func(ctx context.Context) error {
		raw, err := m.conn().GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(m.opts.Collection))
		if err != nil {
			return fmt.Errorf("collection stats: %w", err)
		}
		if v, ok := raw["row_count"]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("parse row_count %q: %w", v, err)
			}
			stats.TotalChunks = int(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = m.withRetry(ctx, "scan sources", func(ctx context.Context) error {
		refs, truncated, err := m.scanSources(ctx)
		if err != nil {
			return err
		}
		stats.Sources = refs
		stats.TotalDocuments = len(refs)
		stats.SourcesTruncated = truncated
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (m *Milvus) scanSources(ctx context.Context) ([]models.SourceRef, bool, error) {
	opt := milvusclient.NewQueryOption(m.opts.Collection).
		WithFilter(fmt.Sprintf("%s >= 0", fieldChunkIndex)).
		WithOutputFields(fieldSourceID, fieldSourceType, fieldSourceKind).
		WithLimit(m.opts.MaxSourceScan)

	rs, err := m.conn().Query(ctx, opt)
	if err != nil {
		return nil, false, fmt.Errorf("query sources: %w", err)
	}

	ids := varCharData(rs.GetColumn(fieldSourceID))
	types := varCharData(rs.GetColumn(fieldSourceType))
	kinds := varCharData(rs.GetColumn(fieldSourceKind))

	var refs []models.SourceRef
	seen := make(map[sourceKey]struct{})
	for i, id := range ids {
		ref := models.SourceRef{ID: id}
		if i < len(types) {
			ref.Type = models.SourceType(types[i])
		}
		if i < len(kinds) {
			ref.Kind = models.SourceKind(kinds[i])
		}
		key := sourceKey{id: ref.ID, typ: ref.Type}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, ref)
	}

	return refs, len(ids) >= m.opts.MaxSourceScan, nil
}

func varCharData(col column.Column) []string {
	vc, ok := col.(*column.ColumnVarChar)
	if !ok {
		return nil
	}
	return vc.Data()
}

// Clear drops the collection and recreates it empty.
func (m *Milvus) Clear(ctx context.Context) error {
	err := m.withRetry(ctx, "drop collection", func(ctx context.Context) error {
		if err := m.conn().DropCollection(ctx, milvusclient.NewDropCollectionOption(m.opts.Collection)); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()

	m.logger.Info("cleared milvus collection", zap.String("collection", m.opts.Collection))
	return m.ensureReady(ctx)
}

func (m *Milvus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close(context.Background())
	m.client = nil
	return err
}

// withRetry runs fn once and, on a connection-level failure, reconnects and
// tries once more. A failure that survives the retry is wrapped in
// ErrBackendUnavailable; other errors pass through untouched.
func (m *Milvus) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !isUnavailable(err) {
		return err
	}

	m.logger.Warn("milvus call failed, reconnecting",
		zap.String("op", op), zap.Error(err))

	if rerr := m.reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
	}

	if err = fn(ctx); err != nil {
		if isUnavailable(err) {
			return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
		}
		return err
	}
	return nil
}

func (m *Milvus) reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		_ = m.client.Close(ctx)
	}
	client, err := milvusclient.New(ctx, m.clientConfig())
	if err != nil {
		return err
	}
	m.client = client
	return nil
}

// isUnavailable reports whether err looks like a connection-level failure
// rather than a server-side rejection.
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"transport is closing",
		"no such host",
		"unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isNotLoaded(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not loaded")
}
