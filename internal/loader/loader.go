// Package loader turns files and web pages into plain-text documents ready
// for chunking. Each format produces one or more documents: PDFs split per
// page, spreadsheets per sheet, presentations per slide, CSVs per row.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// UnsupportedFormatError is returned for file extensions no loader handles.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Ext)
}

// SupportedExtension reports whether LoadFile handles files with the given
// extension. Directory walks use it to skip formats that would fail with
// UnsupportedFormatError.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".csv", ".json", ".xlsx", ".docx", ".pptx",
		".rtf", ".odt", ".html", ".htm", ".txt", ".md", ".rst":
		return true
	}
	return false
}

// Loader reads local files and remote pages into documents.
type Loader struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewLoader builds a loader with a retrying HTTP client for web sources.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(3 * time.Second)

	return &Loader{http: client, logger: logger}
}

// Load reads source, which is either a local file path or an http(s) URL,
// and returns its documents plus the source reference they belong to.
func (l *Loader) Load(ctx context.Context, source string) ([]models.Document, models.SourceRef, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.LoadURL(ctx, source)
	}
	return l.LoadFile(ctx, source)
}

// LoadFile reads one local file. The extension selects the loader; extensions
// without a loader fail with UnsupportedFormatError.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]models.Document, models.SourceRef, error) {
	ext := strings.ToLower(filepath.Ext(path))
	ref := models.SourceRef{
		ID:   filepath.Base(path),
		Type: models.SourceTypeFile,
		Kind: models.KindForExtension(ext),
	}

	// OpenDocument and RTF extraction works on paths, not bytes.
	if ext == ".rtf" || ext == ".odt" {
		docs, err := loadWithCat(path)
		return docs, ref, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ref, fmt.Errorf("read file: %w", err)
	}

	var docs []models.Document
	switch ext {
	case ".pdf":
		docs, err = loadPDF(content)
	case ".csv":
		docs, err = loadCSV(content)
	case ".json":
		docs, err = loadJSON(content)
	case ".xlsx":
		docs, err = loadXLSX(content)
	case ".docx":
		docs, err = loadDOCX(content)
	case ".pptx":
		docs, err = loadPPTX(content)
	case ".html", ".htm":
		var doc models.Document
		doc, err = parseWebpage(string(content), "")
		if err == nil {
			docs = []models.Document{doc}
		}
	case ".txt", ".md", ".rst", "":
		docs, err = loadText(content)
	default:
		return nil, ref, &UnsupportedFormatError{Ext: ext}
	}
	if err != nil {
		return nil, ref, err
	}

	l.logger.Debug("loaded file",
		zap.String("path", path),
		zap.String("kind", string(ref.Kind)),
		zap.Int("documents", len(docs)))
	return docs, ref, nil
}
