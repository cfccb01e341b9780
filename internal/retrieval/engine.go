// Package retrieval coordinates the two core flows: ingesting sources into
// the chunk store and answering queries from it. The engine owns no state of
// its own; it wires the loader, pipeline, store, catalog, and optional answer
// synthesis together.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/loader"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/sourceid"
	"github.com/hyperjump/kotae/internal/store"
)

// DefaultTopK is used when a query does not request a result count.
const DefaultTopK = 5

// ErrEmptyQuery rejects queries that are empty after trimming whitespace.
var ErrEmptyQuery = fmt.Errorf("%w: query text is empty", embedding.ErrEmbedding)

// Engine runs retrieval queries and ingestion over the configured backends.
type Engine struct {
	store    store.ChunkStore
	embedder embedding.Embedder
	loader   *loader.Loader
	pipeline *ingest.Pipeline
	catalog  *catalog.Catalog
	synth    answer.Synthesizer
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog attaches a source catalog for incremental ingestion and
// source listing.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithSynthesizer attaches answer synthesis for queries that request it.
func WithSynthesizer(s answer.Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given store, embedder, loader, and
// ingestion pipeline.
func NewEngine(
	chunkStore store.ChunkStore,
	embedder embedding.Embedder,
	docLoader *loader.Loader,
	pipeline *ingest.Pipeline,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:    chunkStore,
		embedder: embedder,
		loader:   docLoader,
		pipeline: pipeline,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query embeds the query text and returns the topK most similar chunks.
// A non-positive topK falls back to DefaultTopK. An empty store yields an
// empty result with StatusNoDocuments, not an error. When withAnswer is set
// and a synthesizer is enabled, the result carries a generated answer;
// synthesis failures degrade to a retrieval-only result.
func (e *Engine) Query(ctx context.Context, query string, topK int, withAnswer bool) (*models.QueryResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.store.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	res := &models.QueryResult{
		Query:   query,
		Results: results,
	}
	if len(results) == 0 {
		res.Status = models.StatusNoDocuments
		res.QueryTimeMS = time.Since(start).Milliseconds()
		return res, nil
	}

	if withAnswer && e.synth != nil && e.synth.Enabled() {
		ans, err := e.synth.Generate(ctx, query, results)
		if err != nil {
			e.logger.Warn("answer synthesis failed", zap.String("query", query), zap.Error(err))
		} else {
			res.Answer = ans
		}
	}

	res.QueryTimeMS = time.Since(start).Milliseconds()
	return res, nil
}

// Stats reports the active store's collection statistics.
func (e *Engine) Stats(ctx context.Context) (*models.StoreStats, error) {
	return e.store.Stats(ctx)
}

// Sources lists ingested sources from the catalog, or derives a minimal
// listing from store stats when no catalog is attached.
func (e *Engine) Sources(ctx context.Context) ([]catalog.Entry, error) {
	if e.catalog != nil {
		return e.catalog.List(ctx)
	}

	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]catalog.Entry, 0, len(stats.Sources))
	for _, src := range stats.Sources {
		entries = append(entries, catalog.Entry{
			SourceID: src.ID,
			Type:     src.Type,
			Kind:     src.Kind,
		})
	}
	return entries, nil
}

// Clear drops every chunk from the store and empties the catalog.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	if e.catalog != nil {
		if err := e.catalog.Clear(ctx); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}
	e.logger.Info("cleared all indexed documents")
	return nil
}

// IngestFailure records one source that could not be ingested.
type IngestFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// IngestReport summarizes one Ingest call. Failures do not abort the
// remaining sources.
type IngestReport struct {
	Ingested int             `json:"ingested"`
	Skipped  int             `json:"skipped"`
	Chunks   int             `json:"chunks"`
	Failures []IngestFailure `json:"failures,omitempty"`
}

// Ingest loads and indexes each source, which may be a file path, a
// directory (walked recursively for supported formats), or an http(s) URL.
// Unchanged files recorded in the catalog are skipped unless force is set.
// Per-source failures are collected in the report; only an empty source list
// or a cancelled context fails the call itself.
func (e *Engine) Ingest(ctx context.Context, sources []string, force bool) (*IngestReport, error) {
	if len(sources) == 0 {
		return nil, errors.New("no sources to ingest")
	}

	report := &IngestReport{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			inserted, err := e.ingestURL(ctx, src)
			if err != nil {
				e.logger.Warn("ingest failed", zap.String("source", src), zap.Error(err))
				report.Failures = append(report.Failures, IngestFailure{Source: src, Error: err.Error()})
				continue
			}
			report.Ingested++
			report.Chunks += inserted
			continue
		}

		info, err := os.Stat(src)
		if err != nil {
			report.Failures = append(report.Failures, IngestFailure{Source: src, Error: err.Error()})
			continue
		}
		if info.IsDir() {
			files, err := collectFiles(src)
			if err != nil {
				report.Failures = append(report.Failures, IngestFailure{Source: src, Error: err.Error()})
				continue
			}
			for _, f := range files {
				if err := ctx.Err(); err != nil {
					return report, err
				}
				e.ingestFileInto(ctx, report, f, force)
			}
			continue
		}

		e.ingestFileInto(ctx, report, src, force)
	}

	e.logger.Info("ingest finished",
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", report.Skipped),
		zap.Int("chunks", report.Chunks),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

// IngestText indexes raw text as a single document. An empty title gets a
// generated one so repeated untitled submissions stay distinct sources.
func (e *Engine) IngestText(ctx context.Context, text, title string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("text is empty")
	}
	if title == "" {
		title = "text-" + sourceid.Random()
	}
	ref := models.SourceRef{ID: title, Type: models.SourceTypeFile, Kind: models.KindText}
	return e.pipeline.IngestText(ctx, text, ref)
}

func (e *Engine) ingestFileInto(ctx context.Context, report *IngestReport, path string, force bool) {
	inserted, skipped, err := e.ingestFile(ctx, path, force)
	switch {
	case err != nil:
		e.logger.Warn("ingest failed", zap.String("source", path), zap.Error(err))
		report.Failures = append(report.Failures, IngestFailure{Source: path, Error: err.Error()})
	case skipped:
		report.Skipped++
	default:
		report.Ingested++
		report.Chunks += inserted
	}
}

func (e *Engine) ingestFile(ctx context.Context, path string, force bool) (inserted int, skipped bool, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, false, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, false, fmt.Errorf("not a regular file: %s", abs)
	}

	key := sourceid.ForFile(abs)
	if e.catalog != nil && !force {
		needs, err := e.catalog.NeedsIngest(ctx, key, info)
		if err != nil {
			return 0, false, fmt.Errorf("check catalog: %w", err)
		}
		if !needs {
			e.logger.Debug("skipping unchanged file", zap.String("path", abs))
			return 0, true, nil
		}
	}

	docs, ref, err := e.loader.LoadFile(ctx, abs)
	if err != nil {
		return 0, false, err
	}
	inserted, err = e.pipeline.IngestDocuments(ctx, docs, ref)
	if err != nil {
		return inserted, false, err
	}

	e.recordSource(ctx, catalog.Entry{
		Key:      key,
		SourceID: ref.ID,
		Type:     ref.Type,
		Kind:     ref.Kind,
		Path:     abs,
		ModTime:  info.ModTime().UnixNano(),
		Size:     info.Size(),
		Chunks:   inserted,
	})
	return inserted, false, nil
}

func (e *Engine) ingestURL(ctx context.Context, pageURL string) (int, error) {
	docs, ref, err := e.loader.LoadURL(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	inserted, err := e.pipeline.IngestDocuments(ctx, docs, ref)
	if err != nil {
		return inserted, err
	}

	e.recordSource(ctx, catalog.Entry{
		Key:      sourceid.ForURL(pageURL),
		SourceID: ref.ID,
		Type:     ref.Type,
		Kind:     ref.Kind,
		Path:     pageURL,
		Chunks:   inserted,
	})
	return inserted, nil
}

// recordSource updates the catalog after chunks are already committed.
// A catalog failure is logged, not surfaced: failing here would invite a
// retry that duplicates the committed chunks.
func (e *Engine) recordSource(ctx context.Context, entry catalog.Entry) {
	if e.catalog == nil {
		return
	}
	if err := e.catalog.Upsert(ctx, &entry); err != nil {
		e.logger.Warn("catalog update failed",
			zap.String("source", entry.SourceID), zap.Error(err))
	}
}

// collectFiles walks dir and returns regular files with supported extensions.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !loader.SupportedExtension(filepath.Ext(path)) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
