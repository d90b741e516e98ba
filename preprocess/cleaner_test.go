package preprocess

import (
	"strings"
	"testing"
)

func TestCleanBasicCollapsesWhitespace(t *testing.T) {
	got := CleanBasic("hello   \t world\n\n\n\nnext")
	if got != "hello world\n\nnext" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestHTMLToText(t *testing.T) {
	html := `<html><body><h1>Title</h1><p>First paragraph.</p><ul><li>item one</li></ul></body></html>`
	got, err := HTMLToText(html)
	if err != nil {
		t.Fatalf("HTMLToText error: %v", err)
	}
	if !strings.Contains(got, "# Title") {
		t.Errorf("expected heading, got %q", got)
	}
	if !strings.Contains(got, "First paragraph.") {
		t.Errorf("expected paragraph, got %q", got)
	}
	if !strings.Contains(got, "- item one") {
		t.Errorf("expected list item, got %q", got)
	}
}

func TestPassagePlainTextUnchanged(t *testing.T) {
	if got := Passage("plain passage text"); got != "plain passage text" {
		t.Errorf("plain text altered: %q", got)
	}
}

func TestPassageStripsMarkup(t *testing.T) {
	got := Passage("<p>shipping takes <b>3 days</b></p>")
	if strings.Contains(got, "<") {
		t.Errorf("markup not stripped: %q", got)
	}
	if !strings.Contains(got, "shipping takes") {
		t.Errorf("content lost: %q", got)
	}
}
