package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildCorpus_Shape(t *testing.T) {
	corpus := BuildCorpus()
	if got := len(corpus.Documents); got != 100 {
		t.Errorf("document count = %d, want 100", got)
	}
	if got, want := len(corpus.TestCases), len(corpus.Documents); got != want {
		t.Errorf("test case count = %d, want %d (one per document)", got, want)
	}
}

func TestBuildCorpus_DocumentsAreDistinct(t *testing.T) {
	corpus := BuildCorpus()
	names := make(map[string]bool, len(corpus.Documents))
	contents := make(map[string]bool, len(corpus.Documents))
	for _, doc := range corpus.Documents {
		if names[doc.FileName] {
			t.Errorf("duplicate file name %s", doc.FileName)
		}
		names[doc.FileName] = true
		if contents[doc.Content] {
			t.Errorf("duplicate content in %s", doc.FileName)
		}
		contents[doc.Content] = true
	}
}

// Exact-content queries only rank first when the stored chunk text equals the
// query text, so every document must already be in normalized form: the
// chunking pipeline collapses whitespace runs and would otherwise change it.
func TestBuildCorpus_ContentSurvivesNormalization(t *testing.T) {
	corpus := BuildCorpus()
	for _, doc := range corpus.Documents {
		normalized := strings.Join(strings.Fields(doc.Content), " ")
		if doc.Content != normalized {
			t.Errorf("%s content is not whitespace-normalized: %q", doc.FileName, doc.Content)
		}
		ext := filepath.Ext(doc.FileName)
		supported := false
		for _, e := range corpusExtensions {
			if ext == e {
				supported = true
				break
			}
		}
		if !supported {
			t.Errorf("%s uses extension %s, not one of %v", doc.FileName, ext, corpusExtensions)
		}
	}
}

func TestBuildCorpus_QueriesRepeatDocumentContent(t *testing.T) {
	corpus := BuildCorpus()
	byName := make(map[string]CorpusDocument, len(corpus.Documents))
	for _, doc := range corpus.Documents {
		byName[doc.FileName] = doc
	}
	for _, tc := range corpus.TestCases {
		doc, ok := byName[tc.ExpectedSource]
		if !ok {
			t.Errorf("case %q expects unknown source %s", tc.Description, tc.ExpectedSource)
			continue
		}
		if tc.Query != doc.Content {
			t.Errorf("case %q query does not match the content of %s", tc.Description, tc.ExpectedSource)
		}
	}
}

func TestCorpusWriteFiles(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	if err := corpus.WriteFiles(dir); err != nil {
		t.Fatal(err)
	}
	for _, doc := range corpus.Documents {
		data, err := os.ReadFile(filepath.Join(dir, doc.FileName))
		if err != nil {
			t.Fatalf("read %s: %v", doc.FileName, err)
		}
		if string(data) != doc.Content {
			t.Errorf("%s content mismatch on disk", doc.FileName)
		}
	}
}
