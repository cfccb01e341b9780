// Package catalog keeps a SQLite ledger of ingested sources: where each one
// came from, when it was ingested, and how many chunks it produced. The
// ledger drives incremental re-ingestion and the sources listing.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound indicates the key has no ledger entry.
var ErrNotFound = errors.New("source not found")

// Entry is one ledger row. Key is the stable sourceid key; SourceID is the
// human-readable id (file name or URL) the store also carries.
type Entry struct {
	Key        string            `json:"key"`
	SourceID   string            `json:"source_id"`
	Type       models.SourceType `json:"type"`
	Kind       models.SourceKind `json:"kind,omitempty"`
	Path       string            `json:"path,omitempty"`
	ModTime    int64             `json:"mod_time,omitempty"`
	Size       int64             `json:"size,omitempty"`
	Chunks     int               `json:"chunks"`
	IngestedAt time.Time         `json:"ingested_at"`
}

// Catalog is the SQLite-backed source ledger.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the ledger database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		key TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		type TEXT NOT NULL,
		kind TEXT,
		path TEXT NOT NULL,
		mod_time INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sources_ingested_at ON sources(ingested_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or replaces the ledger entry for e.Key and stamps
// e.IngestedAt.
func (c *Catalog) Upsert(ctx context.Context, e *Entry) error {
	e.IngestedAt = time.Now()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO sources (key, source_id, type, kind, path, mod_time, size, chunks, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			source_id = excluded.source_id,
			type = excluded.type,
			kind = excluded.kind,
			path = excluded.path,
			mod_time = excluded.mod_time,
			size = excluded.size,
			chunks = excluded.chunks,
			ingested_at = excluded.ingested_at`,
		e.Key, e.SourceID, string(e.Type), string(e.Kind), e.Path, e.ModTime, e.Size, e.Chunks, e.IngestedAt,
	)
	return err
}

// Get returns the entry for key, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, key string) (*Entry, error) {
	var e Entry
	var typ, kind string

	err := c.db.QueryRowContext(ctx,
		`SELECT key, source_id, type, kind, path, mod_time, size, chunks, ingested_at
		 FROM sources WHERE key = ?`, key,
	).Scan(&e.Key, &e.SourceID, &typ, &kind, &e.Path, &e.ModTime, &e.Size, &e.Chunks, &e.IngestedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	e.Type = models.SourceType(typ)
	e.Kind = models.SourceKind(kind)
	return &e, nil
}

// List returns all entries, most recently ingested first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT key, source_id, type, kind, path, mod_time, size, chunks, ingested_at
		 FROM sources ORDER BY ingested_at DESC, source_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ, kind string
		if err := rows.Scan(&e.Key, &e.SourceID, &typ, &kind, &e.Path, &e.ModTime, &e.Size, &e.Chunks, &e.IngestedAt); err != nil {
			return nil, err
		}
		e.Type = models.SourceType(typ)
		e.Kind = models.SourceKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *Catalog) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM sources WHERE key = ?`, key)
	return err
}

// Clear removes every entry.
func (c *Catalog) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM sources`)
	return err
}

// Count returns the number of ledger entries.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// NeedsIngest reports whether the file behind key changed since its last
// ingestion, comparing mtime and size. Unknown keys always need ingestion.
func (c *Catalog) NeedsIngest(ctx context.Context, key string, info os.FileInfo) (bool, error) {
	e, err := c.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return e.ModTime != info.ModTime().UnixNano() || e.Size != info.Size(), nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
