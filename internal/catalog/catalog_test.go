package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalog_UpsertGet(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	e := &Entry{
		Key:      "file:abc",
		SourceID: "report.pdf",
		Type:     models.SourceTypeFile,
		Kind:     models.KindPDF,
		Path:     "/docs/report.pdf",
		ModTime:  123456789,
		Size:     2048,
		Chunks:   7,
	}
	if err := c.Upsert(ctx, e); err != nil {
		t.Fatal(err)
	}
	if e.IngestedAt.IsZero() {
		t.Error("IngestedAt should be set")
	}

	got, err := c.Get(ctx, "file:abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceID != "report.pdf" || got.Kind != models.KindPDF || got.Chunks != 7 {
		t.Errorf("got %+v", got)
	}

	// Upsert on the same key replaces, not duplicates.
	e.Chunks = 9
	if err := c.Upsert(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, _ = c.Get(ctx, "file:abc")
	if got.Chunks != 9 {
		t.Errorf("expected 9 chunks after upsert, got %d", got.Chunks)
	}
	n, _ := c.Count(ctx)
	if n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestCatalog_GetMissing(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.Get(context.Background(), "file:missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_List(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_ = c.Upsert(ctx, &Entry{Key: "file:a", SourceID: "a.txt", Type: models.SourceTypeFile, Path: "/a.txt"})
	time.Sleep(10 * time.Millisecond)
	_ = c.Upsert(ctx, &Entry{Key: "url:b", SourceID: "https://example.com", Type: models.SourceTypeURL, Path: "https://example.com"})

	entries, err := c.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Most recent first.
	if entries[0].Key != "url:b" || entries[1].Key != "file:a" {
		t.Errorf("order = %s, %s", entries[0].Key, entries[1].Key)
	}
}

func TestCatalog_DeleteClear(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_ = c.Upsert(ctx, &Entry{Key: "file:a", SourceID: "a.txt", Type: models.SourceTypeFile, Path: "/a.txt"})
	_ = c.Upsert(ctx, &Entry{Key: "file:b", SourceID: "b.txt", Type: models.SourceTypeFile, Path: "/b.txt"})

	if err := c.Delete(ctx, "file:a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "file:a"); !errors.Is(err, ErrNotFound) {
		t.Error("expected a gone after delete")
	}

	// Deleting a missing key succeeds.
	if err := c.Delete(ctx, "file:nope"); err != nil {
		t.Errorf("delete missing: %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ := c.Count(ctx)
	if n != 0 {
		t.Errorf("expected empty catalog after clear, got %d", n)
	}
}

func TestCatalog_NeedsIngest(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(path)

	// Unknown key always needs ingestion.
	need, err := c.NeedsIngest(ctx, "file:doc", info)
	if err != nil || !need {
		t.Fatalf("NeedsIngest on unknown key = (%v, %v), want (true, nil)", need, err)
	}

	_ = c.Upsert(ctx, &Entry{
		Key: "file:doc", SourceID: "doc.txt", Type: models.SourceTypeFile,
		Path: path, ModTime: info.ModTime().UnixNano(), Size: info.Size(),
	})

	need, err = c.NeedsIngest(ctx, "file:doc", info)
	if err != nil || need {
		t.Errorf("NeedsIngest on unchanged file = (%v, %v), want (false, nil)", need, err)
	}

	// Grow the file; mtime may not tick but size does.
	if err := os.WriteFile(path, []byte("changed content"), 0o600); err != nil {
		t.Fatal(err)
	}
	info, _ = os.Stat(path)
	need, err = c.NeedsIngest(ctx, "file:doc", info)
	if err != nil || !need {
		t.Errorf("NeedsIngest on changed file = (%v, %v), want (true, nil)", need, err)
	}
}

func TestCatalog_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Upsert(ctx, &Entry{Key: "file:a", SourceID: "a.txt", Type: models.SourceTypeFile, Path: "/a.txt", Chunks: 3})
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := c.Get(ctx, "file:a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Chunks != 3 {
		t.Errorf("got %+v", got)
	}
}
