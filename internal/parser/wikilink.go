package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// wikilinkRe matches [[...]] and ![[...]] with no brackets inside.
var wikilinkRe = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+?)\]\]`)

var markdown = goldmark.New()

// WikiLink is one occurrence of wiki-link markup.
type WikiLink struct {
	Raw     string // full markup, e.g. "[[Note#Intro|see intro]]"
	Target  string // "Note"; the only part used for resolution
	Section string // "Intro", without "#"
	Alias   string // "see intro"
	Embed   bool   // written as ![[...]]
	Line    int    // 1-based line of the opening brackets
}

// WikiLinks returns every wiki-link occurrence in src, in document order.
// Repeated links are all returned. Links inside fenced or indented code blocks
// and inline code spans are skipped, as are links with an empty target such as
// [[#Heading]].
func WikiLinks(src []byte) []WikiLink {
	matches := wikilinkRe.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return nil
	}
	code := codeMask(src)

	var out []WikiLink
	for _, m := range matches {
		start := m[0]
		if code[start] {
			continue
		}
		link := splitLink(string(src[m[4]:m[5]]))
		if link.Target == "" {
			continue
		}
		link.Raw = string(src[m[0]:m[1]])
		link.Embed = m[3] > m[2]
		link.Line = bytes.Count(src[:start], []byte("\n")) + 1
		out = append(out, link)
	}
	return out
}

// splitLink breaks "target#section|alias" into its parts.
func splitLink(inner string) WikiLink {
	var l WikiLink
	if i := strings.Index(inner, "|"); i >= 0 {
		l.Alias = strings.TrimSpace(inner[i+1:])
		inner = inner[:i]
	}
	if i := strings.Index(inner, "#"); i >= 0 {
		l.Section = strings.TrimSpace(inner[i+1:])
		inner = inner[:i]
	}
	l.Target = strings.TrimSpace(inner)
	return l
}

// codeMask marks every byte of src that belongs to a code block or code span.
func codeMask(src []byte) []bool {
	mask := make([]bool, len(src))
	mark := func(seg text.Segment) {
		for i := seg.Start; i < seg.Stop && i < len(mask); i++ {
			mask[i] = true
		}
	}

	doc := markdown.Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if node.Info != nil {
				mark(node.Info.Segment)
			}
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				mark(lines.At(i))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				mark(lines.At(i))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					mark(t.Segment)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return mask
}
