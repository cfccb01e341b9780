package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"

	"github.com/hyperjump/kotae/internal/models"
)

// loadWithCat extracts text from RTF and OpenDocument files.
func loadWithCat(path string) ([]models.Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", strings.ToLower(filepath.Ext(path)), err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.Document{{Text: text}}, nil
}
