package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// loadCSV turns each data row into one document of "header: value" lines, so
// a search hit points at the row it came from. The first row is the header.
func loadCSV(content []byte) ([]models.Document, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	docs := make([]models.Document, 0, len(records)-1)
	for i, row := range records[1:] {
		var b strings.Builder
		for j, val := range row {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			name := fmt.Sprintf("column_%d", j+1)
			if j < len(header) && strings.TrimSpace(header[j]) != "" {
				name = strings.TrimSpace(header[j])
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(val)
		}
		if b.Len() == 0 {
			continue
		}
		docs = append(docs, models.Document{
			Text:     b.String(),
			Metadata: map[string]string{"row": strconv.Itoa(i + 1)},
		})
	}
	return docs, nil
}
