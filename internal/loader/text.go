package loader

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// loadText returns the content as one document, replacing invalid UTF-8
// sequences with the replacement character. Whitespace-only files yield no
// documents.
func loadText(content []byte) ([]models.Document, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.Document{{Text: text}}, nil
}
