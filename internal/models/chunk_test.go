package models

import (
	"testing"
	"time"
)

func TestChunk_Source(t *testing.T) {
	c := Chunk{
		Content:    "hello",
		SourceID:   "report.pdf",
		SourceType: SourceTypeFile,
		SourceKind: KindPDF,
		ChunkIndex: 3,
		CreatedAt:  time.Now(),
	}
	ref := c.Source()
	if ref.ID != "report.pdf" || ref.Type != SourceTypeFile || ref.Kind != KindPDF {
		t.Errorf("Source() = %+v", ref)
	}
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want SourceKind
	}{
		{".pdf", KindPDF},
		{".PDF", KindPDF},
		{".csv", KindCSV},
		{".json", KindJSON},
		{".xlsx", KindXLSX},
		{".docx", KindDOCX},
		{".rtf", KindRTF},
		{".odt", KindRTF},
		{".html", KindWebpage},
		{".txt", KindText},
		{".md", KindText},
		{"", KindText},
		{".weird", KindText},
	}
	for _, tt := range tests {
		if got := KindForExtension(tt.ext); got != tt.want {
			t.Errorf("KindForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
