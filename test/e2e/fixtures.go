// This file builds minimal files of each supported format for the
// file-ingestion tests.
package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// FixtureExtensions lists the file extensions the fixture builder covers.
// PDF is left out: a minimal PDF with extractable text is not generated here.
// RTF and ODT go through an external extractor and are covered by the loader
// tests instead.
var FixtureExtensions = []string{
	".txt", ".md", ".rst",
	".docx", ".pptx", ".xlsx",
	".csv", ".json", ".html",
}

// WriteMinimalFile returns the bytes of a minimal file of the given extension
// whose extracted text contains the given content. For plain types the bytes
// are the raw text; for structured types they wrap the content in the
// smallest shape the format's loader accepts.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md", ".rst":
		return []byte(text), nil
	case ".docx":
		return minimalDocx(text), nil
	case ".pptx":
		return minimalPptx(text), nil
	case ".xlsx":
		return minimalXlsx(text)
	case ".csv":
		return []byte("note\n" + text + "\n"), nil
	case ".json":
		return []byte(fmt.Sprintf("{\"note\": %q}", text)), nil
	case ".html":
		return minimalHTML(text), nil
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalPptx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("ppt/slides/slide1.xml")
	_, _ = fw.Write([]byte(`<p:sld xmlns:p="a" xmlns:a="b"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalHTML(text string) []byte {
	return []byte(`<html><head><title>Fixture</title></head><body><p>` + text + `</p></body></html>`)
}
