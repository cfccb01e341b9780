// Package cli provides CLI output utilities for kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteQueryResult writes a query result to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteQueryResult(w io.Writer, res *models.QueryResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		writeQueryResultText(w, res)
		return nil
	}
}

func writeQueryResultText(w io.Writer, res *models.QueryResult) {
	if res.Status != "" {
		fmt.Fprintf(w, "\n%s (%dms)\n", res.Status, res.QueryTimeMS)
		return
	}
	fmt.Fprintf(w, "\nFound %d chunks in %dms\n\n", len(res.Results), res.QueryTimeMS)
	for i, result := range res.Results {
		writeOneChunk(w, i+1, result)
	}
	if res.Answer != "" {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Answer:\n\n%s\n", res.Answer)
	}
}

func writeOneChunk(w io.Writer, rank int, result models.ScoredChunk) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", rank, result.Similarity)
	fmt.Fprintf(w, "Source: %s (%s, chunk %d)\n", result.SourceID, result.SourceKind, result.ChunkIndex)
	fmt.Fprintf(w, "\n%s\n", utils.TruncateWords(result.Content, 80))
	fmt.Fprintln(w)
}

// PrintQueryResult prints a query result to stdout in text format.
func PrintQueryResult(res *models.QueryResult) {
	_ = WriteQueryResult(os.Stdout, res, OutputText)
}

// WriteStats writes store statistics to w in the given format.
func WriteStats(w io.Writer, stats *models.StoreStats, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	default:
		fmt.Fprintf(w, "\nBackend:    %s\n", stats.Backend)
		fmt.Fprintf(w, "Chunks:     %d\n", stats.TotalChunks)
		if stats.SourcesTruncated {
			fmt.Fprintf(w, "Documents:  %d (at least; listing truncated)\n", stats.TotalDocuments)
		} else {
			fmt.Fprintf(w, "Documents:  %d\n", stats.TotalDocuments)
		}
		fmt.Fprintf(w, "Dimensions: %d\n", stats.Dimensions)
		return nil
	}
}

// WriteIngestReport writes an ingestion summary to w in the given format.
func WriteIngestReport(w io.Writer, report *retrieval.IngestReport, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		fmt.Fprintf(w, "\nIngested %d sources (%d chunks), skipped %d unchanged\n",
			report.Ingested, report.Chunks, report.Skipped)
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  failed: %s: %s\n", f.Source, f.Error)
		}
		return nil
	}
}

// WriteSources writes the source listing to w in the given format.
func WriteSources(w io.Writer, entries []catalog.Entry, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		if len(entries) == 0 {
			fmt.Fprintln(w, "\nNo sources indexed")
			return nil
		}
		fmt.Fprintf(w, "\n%d sources:\n", len(entries))
		for _, e := range entries {
			fmt.Fprintf(w, "  %s (%s, %d chunks)", e.SourceID, e.Kind, e.Chunks)
			if e.Path != "" && e.Path != e.SourceID {
				fmt.Fprintf(w, "  %s", utils.Truncate(e.Path, 60))
			}
			fmt.Fprintln(w)
		}
		return nil
	}
}
