// Package integration runs the assembled stack against real files and
// on-disk state: loaders, chunking, embedding, the flat-file store, and
// the source catalog together.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/loader"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/store"
)

const integrationDims = 32

// The deterministic embedder maps identical text to identical vectors, so a
// query repeating a document's content must rank that document first.
const (
	contentA = "PostgreSQL uses multi-version concurrency control for isolation."
	contentB = "The Raft protocol elects a single leader per term."
)

func buildEngine(t *testing.T, snapshotPath, catalogPath string) (*retrieval.Engine, *store.FlatFile, *catalog.Catalog) {
	t.Helper()
	st, err := store.OpenFlatFile(snapshotPath, integrationDims, "mock")
	if err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Open(catalogPath)
	if err != nil {
		_ = st.Close()
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(integrationDims)
	pipe := ingest.NewPipeline(st, emb)
	engine := retrieval.NewEngine(st, emb, loader.NewLoader(nil), pipe, retrieval.WithCatalog(cat))
	return engine, st, cat
}

func TestIntegration_IngestQueryRestart(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.json")
	catalogPath := filepath.Join(dir, "catalog.db")

	docDir := filepath.Join(dir, "docs")
	if err := os.Mkdir(docDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "a.txt"), []byte(contentA), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "b.txt"), []byte(contentB), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	engine, st, cat := buildEngine(t, snapshotPath, catalogPath)

	report, err := engine.Ingest(ctx, []string{docDir}, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Ingested != 2 || len(report.Failures) != 0 {
		t.Fatalf("ingested %d with failures %+v, want 2 clean", report.Ingested, report.Failures)
	}

	res, err := engine.Query(ctx, contentA, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) == 0 {
		t.Fatal("no results before restart")
	}
	if got := res.Results[0].SourceID; got != "a.txt" {
		t.Errorf("top result = %s, want a.txt", got)
	}
	if res.Results[0].Similarity < 0.999 {
		t.Errorf("similarity = %.4f, want ~1.0", res.Results[0].Similarity)
	}

	// Simulate a restart: close everything and rebuild from the same paths.
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := cat.Close(); err != nil {
		t.Fatal(err)
	}

	engine2, st2, cat2 := buildEngine(t, snapshotPath, catalogPath)
	defer func() {
		_ = st2.Close()
		_ = cat2.Close()
	}()

	stats, err := engine2.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 2 || stats.TotalDocuments != 2 {
		t.Errorf("after restart: %d chunks, %d documents; want 2, 2",
			stats.TotalChunks, stats.TotalDocuments)
	}

	res, err = engine2.Query(ctx, contentB, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) == 0 {
		t.Fatal("no results after restart")
	}
	if got := res.Results[0].SourceID; got != "b.txt" {
		t.Errorf("top result after restart = %s, want b.txt", got)
	}

	// The catalog survived the restart too, so unchanged files are skipped.
	again, err := engine2.Ingest(ctx, []string{docDir}, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.Ingested != 0 || again.Skipped != 2 {
		t.Errorf("re-ingest after restart: ingested %d, skipped %d; want 0, 2",
			again.Ingested, again.Skipped)
	}
}

func TestIntegration_SourcesAndClear(t *testing.T) {
	dir := t.TempDir()
	engine, st, cat := buildEngine(t,
		filepath.Join(dir, "snapshot.json"), filepath.Join(dir, "catalog.db"))
	defer func() {
		_ = st.Close()
		_ = cat.Close()
	}()

	ctx := context.Background()
	if _, err := engine.IngestText(ctx, contentA, "postgres-notes"); err != nil {
		t.Fatal(err)
	}

	sources, err := engine.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Inline text bypasses the catalog; the listing covers files and URLs.
	if len(sources) != 0 {
		t.Errorf("sources = %d entries, want 0 for text-only ingestion", len(sources))
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 1 {
		t.Fatalf("chunks = %d, want 1", stats.TotalChunks)
	}

	if err := engine.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, err = engine.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 0 {
		t.Errorf("chunks after clear = %d, want 0", stats.TotalChunks)
	}
}
