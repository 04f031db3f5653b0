package markdown

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func extract(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return text
}

func TestExtractStripsHeadings(t *testing.T) {
	text := extract(t, "# Title\n\nSome body text.")
	if strings.Contains(text, "#") {
		t.Errorf("heading marker survived: %q", text)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Some body text.") {
		t.Errorf("content lost: %q", text)
	}
}

func TestExtractConvertsLinks(t *testing.T) {
	text := extract(t, "See [the docs](https://example.com) for details.")
	if text != "See the docs for details." {
		t.Errorf("unexpected output: %q", text)
	}
}

func TestExtractRemovesImages(t *testing.T) {
	text := extract(t, "before ![diagram](img.png) after")
	if strings.Contains(text, "img.png") {
		t.Errorf("image url survived: %q", text)
	}
}

func TestExtractStripsEmphasis(t *testing.T) {
	text := extract(t, "**bold** and __also bold__")
	if strings.Contains(text, "**") || strings.Contains(text, "__") {
		t.Errorf("emphasis markers survived: %q", text)
	}
}

func TestExtractStripsListMarkers(t *testing.T) {
	text := extract(t, "- first\n- second\n1. third\n")
	for _, want := range []string{"first", "second", "third"} {
		if !strings.Contains(text, want) {
			t.Errorf("list item %q lost: %q", want, text)
		}
	}
	if strings.Contains(text, "- ") || strings.Contains(text, "1.") {
		t.Errorf("list markers survived: %q", text)
	}
}
