package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	// docxDefaultPart is the usual path of the main document body.
	docxDefaultPart = "word/document.xml"
	// docxContentTypes lists part names and content types in OOXML packages.
	docxContentTypes = "[Content_Types].xml"
	// docxMainType marks the main document part in [Content_Types].xml.
	docxMainType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wordTextTag matches <w:t>text</w:t> with any attributes on the tag.
var wordTextTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Override elements carry PartName and ContentType in either order.
var (
	docxPartFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)
	docxTypeFirst = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"[^>]+PartName="([^"]+)"`)
)

// loadDOCX extracts one document from a .docx zip by collecting every
// <w:t> text node of the main document part, so text survives whatever
// paragraph and run attributes the producer wrote.
func loadDOCX(content []byte) ([]models.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open docx: not a zip: %w", err)
	}

	partPath := mainDocumentPart(zr)
	if partPath == "" {
		partPath = docxDefaultPart
	}

	docXML, err := readZipFile(zr, partPath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("open docx: %s not found", partPath)
	}

	parts := wordTextTag.FindAllStringSubmatch(string(docXML), -1)
	var b strings.Builder
	for _, p := range parts {
		piece := strings.TrimSpace(p[1])
		if piece == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(piece)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, nil
	}
	return []models.Document{{Text: text}}, nil
}

// mainDocumentPart resolves the main document path from [Content_Types].xml.
// Returns "" when the package carries no usable override.
func mainDocumentPart(zr *zip.Reader) string {
	data, err := readZipFile(zr, docxContentTypes)
	if err != nil || data == nil {
		return ""
	}

	content := string(data)
	if m := docxPartFirst.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := docxTypeFirst.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// readZipFile returns the named file's bytes, or nil when absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			rc.Close()
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		rc.Close()
		return buf.Bytes(), nil
	}
	return nil, nil
}
