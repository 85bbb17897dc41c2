package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - vault\n---\n# Hello\nBody text with [[Other]].\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Heading != "Hello" {
		t.Errorf("heading = %q, want %q", r.Heading, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "vault" {
		t.Errorf("tags = %v, want [go vault]", r.Tags)
	}
	if r.Body != "# Hello\nBody text with [[Other]].\n" {
		t.Errorf("body = %q", r.Body)
	}
	if len(r.Links) != 1 || r.Links[0].Target != "Other" || r.Links[0].Line != 8 {
		t.Errorf("links = %+v", r.Links)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Heading != "Just a heading" {
		t.Errorf("heading = %q, want %q", r.Heading, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want whole input", r.Body)
	}
}

func TestParse_FrontmatterLinksCount(t *testing.T) {
	input := []byte("---\nrelated: \"[[Parent]]\"\n---\nSee [[Child]].\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Links) != 2 || r.Links[0].Target != "Parent" || r.Links[1].Target != "Child" {
		t.Errorf("links = %+v", r.Links)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	body := "Some text #beta and #alpha again, #한글 too."
	tags := extractTags(body, fm)
	if len(tags) != 3 || tags[0] != "alpha" || tags[1] != "beta" || tags[2] != "한글" {
		t.Errorf("tags = %v, want [alpha beta 한글]", tags)
	}
}

func TestExtractTags_StringFrontmatter(t *testing.T) {
	tags := extractTags("", map[string]any{"tags": "one, #two three"})
	if len(tags) != 3 || tags[0] != "one" || tags[1] != "two" || tags[2] != "three" {
		t.Errorf("tags = %v, want [one two three]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	body := "# H1 Title\ntext"
	if title := deriveTitle(fm, body); title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	if title := deriveTitle(nil, "some text\n# My Heading\nmore"); title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
