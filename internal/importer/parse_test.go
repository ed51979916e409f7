package importer

import (
	"testing"

	"github.com/starford/redline/internal/models"
)

func TestParse_Defaults(t *testing.T) {
	doc, err := Parse("drafts/alpha.html", []byte("<p>Hello</p>\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Session != "alpha" {
		t.Errorf("session = %q, want %q", doc.Session, "alpha")
	}
	if doc.Action != models.ActionImport {
		t.Errorf("action = %q, want %q", doc.Action, models.ActionImport)
	}
	if doc.HTML != "<p>Hello</p>" {
		t.Errorf("html = %q", doc.HTML)
	}
}

func TestParse_Frontmatter(t *testing.T) {
	src := "---\nsession: review-42\naction: SET_CONTENT\n---\n<p>Body</p>"
	doc, err := Parse("x.html", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Session != "review-42" {
		t.Errorf("session = %q", doc.Session)
	}
	if doc.Action != models.ActionSetContent {
		t.Errorf("action = %q", doc.Action)
	}
	if doc.HTML != "<p>Body</p>" {
		t.Errorf("html = %q", doc.HTML)
	}
}

func TestParse_RejectsUnknownAction(t *testing.T) {
	src := "---\naction: UNDO\n---\n<p>Body</p>"
	if _, err := Parse("x.html", []byte(src)); err == nil {
		t.Error("expected error for action UNDO")
	}
}

func TestParse_UnclosedFrontmatterIsBody(t *testing.T) {
	src := "---\nsession: nope\n<p>Body</p>"
	doc, err := Parse("fallback.html", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Session != "fallback" {
		t.Errorf("session = %q", doc.Session)
	}
	if doc.HTML != src {
		t.Errorf("html = %q", doc.HTML)
	}
}

func TestParse_InvalidYAMLIsBody(t *testing.T) {
	src := "---\n: [broken\n---\n<p>x</p>"
	doc, err := Parse("broken.html", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.HTML != src {
		t.Errorf("html = %q", doc.HTML)
	}
}
