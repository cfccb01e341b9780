package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

func testLoader() *Loader {
	return NewLoader(zap.NewNop())
}

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_Text(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("Hello world\nLine 2"))

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "Hello world\nLine 2" {
		t.Errorf("docs = %+v", docs)
	}
	if ref.ID != "notes.txt" || ref.Type != models.SourceTypeFile || ref.Kind != models.KindText {
		t.Errorf("ref = %+v", ref)
	}
}

func TestLoadFile_TextInvalidUTF8(t *testing.T) {
	path := writeTemp(t, "raw.md", []byte("hello\x80world"))

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if docs[0].Text != "hello�world" {
		t.Errorf("got %q", docs[0].Text)
	}
}

func TestLoadFile_TextWhitespaceOnly(t *testing.T) {
	path := writeTemp(t, "blank.txt", []byte("   \n\t  \n"))

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents from whitespace-only file, want 0", len(docs))
	}
}

func TestLoadFile_CSV(t *testing.T) {
	csv := "name,role\nAda,engineer\nGrace,admiral\n"
	path := writeTemp(t, "people.csv", []byte(csv))

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindCSV {
		t.Errorf("kind = %q, want csv", ref.Kind)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Text != "name: Ada\nrole: engineer" {
		t.Errorf("row 1 = %q", docs[0].Text)
	}
	if docs[1].Metadata["row"] != "2" {
		t.Errorf("row 2 metadata = %v", docs[1].Metadata)
	}
}

func TestLoadFile_CSVRaggedRow(t *testing.T) {
	csv := "name\nAda,extra\n"
	path := writeTemp(t, "ragged.csv", []byte(csv))

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Text != "name: Ada\ncolumn_2: extra" {
		t.Errorf("got %q", docs[0].Text)
	}
}

func TestLoadFile_CSVHeaderOnly(t *testing.T) {
	path := writeTemp(t, "empty.csv", []byte("name,role\n"))

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents from header-only csv, want 0", len(docs))
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeTemp(t, "config.json", []byte(`{"name":"kotae","port":8080}`))

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindJSON {
		t.Errorf("kind = %q, want json", ref.Kind)
	}
	if len(docs) != 1 || !strings.Contains(docs[0].Text, `"name": "kotae"`) {
		t.Errorf("docs = %+v", docs)
	}
}

func TestLoadFile_JSONInvalid(t *testing.T) {
	path := writeTemp(t, "broken.json", []byte(`{"name":`))

	_, _, err := testLoader().LoadFile(context.Background(), path)
	if err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestLoadFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	f.Close()
	path := writeTemp(t, "data.xlsx", buf.Bytes())

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindXLSX {
		t.Errorf("kind = %q, want xlsx", ref.Kind)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Text != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", docs[0].Text)
	}
	if docs[0].Metadata["sheet"] != "Sheet1" {
		t.Errorf("metadata = %v", docs[0].Metadata)
	}
}

// minimalDocx returns .docx zip bytes with the given text in <w:t> tags.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	w.Close()
	return buf.Bytes()
}

func TestLoadFile_DOCX(t *testing.T) {
	path := writeTemp(t, "memo.docx", minimalDocx("Searchable docx content"))

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindDOCX {
		t.Errorf("kind = %q, want docx", ref.Kind)
	}
	if len(docs) != 1 || docs[0].Text != "Searchable docx content" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestLoadFile_DOCXCustomPart(t *testing.T) {
	// The main body lives at word/document2.xml, declared in [Content_Types].xml.
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	ct.Write([]byte(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/word/document2.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	fw, _ := w.Create("word/document2.xml")
	fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Relocated body</w:t></w:r></w:p></w:body></w:document>`))
	w.Close()
	path := writeTemp(t, "memo.docx", buf.Bytes())

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "Relocated body" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestLoadFile_DOCXTypeBeforePartName(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	ct.Write([]byte(`<Types>
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>
</Types>`))
	fw, _ := w.Create("word/document3.xml")
	fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Reversed attributes</w:t></w:r></w:p></w:body></w:document>`))
	w.Close()
	path := writeTemp(t, "memo.docx", buf.Bytes())

	docs, _, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "Reversed attributes" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestLoadFile_PPTX(t *testing.T) {
	// Slides written out of order; documents must come back in slide order.
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	s10, _ := w.Create("ppt/slides/slide10.xml")
	s10.Write([]byte(`<p:sld><a:p><a:r><a:t>Tenth slide</a:t></a:r></a:p></p:sld>`))
	s2, _ := w.Create("ppt/slides/slide2.xml")
	s2.Write([]byte(`<p:sld><a:p><a:r><a:t>Second slide</a:t></a:r></a:p></p:sld>`))
	w.Close()
	path := writeTemp(t, "deck.pptx", buf.Bytes())

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindPPTX {
		t.Errorf("kind = %q, want pptx", ref.Kind)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Text != "Second slide" || docs[0].Metadata["slide"] != "2" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].Text != "Tenth slide" || docs[1].Metadata["slide"] != "10" {
		t.Errorf("docs[1] = %+v", docs[1])
	}
}

func TestLoadFile_PPTXNotZip(t *testing.T) {
	path := writeTemp(t, "deck.pptx", []byte("not a zip"))

	_, _, err := testLoader().LoadFile(context.Background(), path)
	if err == nil {
		t.Error("expected error for invalid pptx")
	}
}

func TestLoadFile_PDFInvalid(t *testing.T) {
	path := writeTemp(t, "doc.pdf", []byte("not a pdf"))

	_, _, err := testLoader().LoadFile(context.Background(), path)
	if err == nil {
		t.Error("expected error for invalid pdf")
	}
}

func TestLoadFile_HTML(t *testing.T) {
	html := `<html><head><title>Docs</title></head><body><main>` +
		strings.Repeat("Readable sentence here. ", 10) +
		`</main><script>ignore();</script></body></html>`
	path := writeTemp(t, "page.html", []byte(html))

	docs, ref, err := testLoader().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ref.Kind != models.KindWebpage || ref.Type != models.SourceTypeFile {
		t.Errorf("ref = %+v", ref)
	}
	if !strings.HasPrefix(docs[0].Text, "Docs\n\n") {
		t.Errorf("text does not start with the title: %q", docs[0].Text[:40])
	}
	if strings.Contains(docs[0].Text, "ignore()") {
		t.Error("script content leaked into the text")
	}
}

func TestLoadFile_Unsupported(t *testing.T) {
	path := writeTemp(t, "image.png", []byte{0x89, 0x50, 0x4e, 0x47})

	_, _, err := testLoader().LoadFile(context.Background(), path)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedFormatError", err)
	}
	if unsupported.Ext != ".png" {
		t.Errorf("ext = %q, want .png", unsupported.Ext)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, _, err := testLoader().LoadFile(context.Background(), "/nonexistent/file.txt")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFile_MissingRTF(t *testing.T) {
	_, _, err := testLoader().LoadFile(context.Background(), "/nonexistent/file.rtf")
	if err == nil {
		t.Error("expected error for nonexistent rtf")
	}
}
