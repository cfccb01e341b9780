package models

import "strings"

// SourceType distinguishes how a document entered the system.
type SourceType string

const (
	// SourceTypeFile marks documents loaded from the local filesystem.
	SourceTypeFile SourceType = "file"
	// SourceTypeURL marks documents fetched from the web.
	SourceTypeURL SourceType = "url"
)

// SourceKind is the document format within a SourceType.
type SourceKind string

const (
	KindPDF     SourceKind = "pdf"
	KindCSV     SourceKind = "csv"
	KindJSON    SourceKind = "json"
	KindText    SourceKind = "text"
	KindWebpage SourceKind = "webpage"
	KindXLSX    SourceKind = "xlsx"
	KindDOCX    SourceKind = "docx"
	KindPPTX    SourceKind = "pptx"
	KindRTF     SourceKind = "rtf"
)

// KindForExtension maps a file extension (with leading dot, any case) to a
// SourceKind. Unknown extensions map to KindText.
func KindForExtension(ext string) SourceKind {
	switch strings.ToLower(ext) {
	case ".pdf":
		return KindPDF
	case ".csv":
		return KindCSV
	case ".json":
		return KindJSON
	case ".xlsx":
		return KindXLSX
	case ".docx":
		return KindDOCX
	case ".pptx":
		return KindPPTX
	case ".rtf", ".odt":
		return KindRTF
	case ".html", ".htm":
		return KindWebpage
	default:
		return KindText
	}
}

// SourceRef identifies one ingested document: its id (file name or URL),
// type, and format kind. Deduplicated pairs of (ID, Type) form the store's
// source registry.
type SourceRef struct {
	ID   string     `json:"id"`
	Type SourceType `json:"type"`
	Kind SourceKind `json:"kind,omitempty"`
}
