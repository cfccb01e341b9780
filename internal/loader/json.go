package loader

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// loadJSON re-renders the value with indentation so nested keys land near
// their values in the chunked text.
func loadJSON(content []byte) ([]models.Document, error) {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}
	return []models.Document{{Text: string(pretty)}}, nil
}
