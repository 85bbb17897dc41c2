// Package notes builds the slug index of a vault and derives the link graph and
// the folder tree from it.
//
// An Index is built once from a scan and never mutated afterwards; callers share
// it freely between goroutines and replace it wholesale when the vault changes.
package notes

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/slug"
)

// Reporter receives recoverable problems found while building.
type Reporter func(models.Diagnostic)

func (r Reporter) report(d models.Diagnostic) {
	if r != nil {
		r(d)
	}
}

// Index maps slugs to notes. byFullPath has exactly one entry per note and every
// slug listed in bySimpleName is a key of byFullPath.
type Index struct {
	notes        []models.NoteRecord
	byFullPath   map[string]models.NoteRecord
	bySimpleName map[string][]string // ordered by preference, see preferred
}

// BuildIndex derives note records from scanned paths, in the given order.
//
// When two paths normalize to the same full-path slug the first one wins and the
// other is reported as a slug collision. Paths that normalize to an empty slug
// cannot be addressed and are reported the same way.
func BuildIndex(paths []string, report Reporter) *Index {
	idx := &Index{
		notes:        make([]models.NoteRecord, 0, len(paths)),
		byFullPath:   make(map[string]models.NoteRecord, len(paths)),
		bySimpleName: make(map[string][]string),
	}

	for _, p := range paths {
		rec := newRecord(p)
		if rec.FullPathSlug == "" {
			report.report(models.Diagnostic{
				Kind:    models.DiagSlugCollision,
				Message: fmt.Sprintf("%s normalizes to an empty slug and is skipped", p),
				Path:    p,
			})
			continue
		}
		if prev, ok := idx.byFullPath[rec.FullPathSlug]; ok {
			report.report(models.Diagnostic{
				Kind:       models.DiagSlugCollision,
				Message:    fmt.Sprintf("%s and %s share slug %q; keeping %s", prev.RelativeFilePath, p, rec.FullPathSlug, prev.RelativeFilePath),
				Path:       p,
				Slug:       rec.FullPathSlug,
				Candidates: []string{prev.RelativeFilePath, p},
			})
			continue
		}

		idx.notes = append(idx.notes, rec)
		idx.byFullPath[rec.FullPathSlug] = rec
		if rec.SimpleSlug != "" {
			idx.bySimpleName[rec.SimpleSlug] = append(idx.bySimpleName[rec.SimpleSlug], rec.FullPathSlug)
		}
	}

	for _, slugs := range idx.bySimpleName {
		sort.Slice(slugs, func(i, j int) bool { return preferred(slugs[i], slugs[j]) })
	}
	return idx
}

func newRecord(p string) models.NoteRecord {
	title := strings.TrimSuffix(path.Base(p), slug.Ext)
	return models.NoteRecord{
		FullPathSlug:     PathSlug(p),
		Title:            title,
		RelativeFilePath: p,
		SimpleSlug:       slug.Normalize(title),
	}
}

// preferred orders candidates for an ambiguous simple name: the shallowest slug
// first, then the lexicographically smallest.
func preferred(a, b string) bool {
	if da, db := slug.Depth(a), slug.Depth(b); da != db {
		return da < db
	}
	return a < b
}

// PathSlug returns the full-path slug a vault-relative file path is indexed under.
// The file's extension is removed before normalizing, which itself drops a
// further ".md", so "x.md.md" is indexed as "x".
func PathSlug(p string) string {
	return slug.Normalize(strings.TrimSuffix(p, slug.Ext))
}

// SlugOf returns the slug of the note stored at path. A path that lost a slug
// collision, or is not indexed at all, reports false.
func (idx *Index) SlugOf(path string) (string, bool) {
	rec, ok := idx.byFullPath[PathSlug(path)]
	if !ok || rec.RelativeFilePath != path {
		return "", false
	}
	return rec.FullPathSlug, true
}

// Len returns the number of notes.
func (idx *Index) Len() int { return len(idx.notes) }

// Notes returns all notes in scan order.
func (idx *Index) Notes() []models.NoteRecord {
	out := make([]models.NoteRecord, len(idx.notes))
	copy(out, idx.notes)
	return out
}

// Lookup returns the note with the given full-path slug.
func (idx *Index) Lookup(fullPathSlug string) (models.NoteRecord, bool) {
	rec, ok := idx.byFullPath[fullPathSlug]
	return rec, ok
}

// Candidates returns the full-path slugs of every note whose basename normalizes
// to simpleSlug, most preferred first.
func (idx *Index) Candidates(simpleSlug string) []string {
	slugs := idx.bySimpleName[simpleSlug]
	if len(slugs) == 0 {
		return nil
	}
	out := make([]string, len(slugs))
	copy(out, slugs)
	return out
}

// SharedNames returns every simple slug shared by more than one note, sorted.
func (idx *Index) SharedNames() []string {
	var out []string
	for name, slugs := range idx.bySimpleName {
		if len(slugs) > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
