// Package slug turns file names and vault paths into canonical note identifiers.
package slug

import (
	"strings"
	"unicode"
)

// Ext is the markdown extension stripped from the end of an input.
const Ext = ".md"

// Sep separates the segments of a full-path slug.
const Sep = "/"

// Hangul syllables survive normalization so Korean titles keep a readable slug.
const (
	hangulFirst = '가'
	hangulLast  = '힣'
)

// Normalize converts an arbitrary file name or vault-relative path into a slug.
//
// A trailing ".md" is removed, backslashes become "/", and every path segment is
// lowercased with whitespace and underscores folded into single hyphens. Runes other
// than a-z, 0-9, Hangul syllables and "-" are dropped. Segments that end up empty are
// removed, so "a//b" and "a/!!/b" both become "a/b". Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, Ext)
	s = strings.ReplaceAll(s, `\`, Sep)

	parts := strings.Split(s, Sep)
	out := parts[:0]
	for _, p := range parts {
		if seg := normalizeSegment(p); seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, Sep)
}

// Segment normalizes a single path segment. Unlike Normalize it keeps a ".md"
// suffix as text, which is what a directory named "x.md" needs.
func Segment(seg string) string {
	return normalizeSegment(seg)
}

func normalizeSegment(seg string) string {
	seg = strings.ToLower(strings.TrimSpace(seg))

	var b strings.Builder
	b.Grow(len(seg))
	hyphen := false
	for _, r := range seg {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			// Leading separators are dropped; inner runs collapse to one hyphen
			// that is only written once another kept rune follows.
			hyphen = b.Len() > 0
		case keep(r):
			if hyphen {
				b.WriteByte('-')
				hyphen = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keep(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		(r >= hangulFirst && r <= hangulLast)
}

// Segments splits a slug into its path segments. The empty slug has none.
func Segments(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Sep)
}

// Base returns the last segment of a slug.
func Base(s string) string {
	if i := strings.LastIndex(s, Sep); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Depth returns the number of segments in s.
func Depth(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, Sep) + 1
}

// Display turns a single slug segment back into a label by replacing hyphens
// with spaces. It is used when no note title is known for the segment.
func Display(segment string) string {
	return strings.ReplaceAll(segment, "-", " ")
}
