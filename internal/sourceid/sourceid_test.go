package sourceid

import (
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	// Deterministic: same path gives same key
	id1 := ForFile("/docs/report.pdf")
	id2 := ForFile("/docs/report.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same key: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, filePrefix) {
		t.Errorf("key should have prefix %q: got %q", filePrefix, id1)
	}

	if ForFile("/docs/report.pdf") == ForFile("/docs/other.pdf") {
		t.Error("different paths should give different keys")
	}
}

func TestForFile_Normalized(t *testing.T) {
	id1 := ForFile("/docs/report")
	id2 := ForFile("/docs/report/")
	id3 := ForFile("/docs/./report")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths diverge: %q %q %q", id1, id2, id3)
	}
}

func TestForURL(t *testing.T) {
	id1 := ForURL("https://example.com/page")
	id2 := ForURL("https://example.com/page")
	if id1 != id2 {
		t.Errorf("same url should give same key: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, urlPrefix) {
		t.Errorf("key should have prefix %q: got %q", urlPrefix, id1)
	}

	if ForURL("https://example.com/a") == ForURL("https://example.com/b") {
		t.Error("different urls should give different keys")
	}

	// File and URL keyspaces never collide.
	if ForFile("https://example.com/page") == ForURL("https://example.com/page") {
		t.Error("file and url keys should differ for identical input")
	}
}
