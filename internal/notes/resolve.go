package notes

import (
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/slug"
)

// Resolution is the outcome of resolving a link target or requested identifier.
type Resolution struct {
	Slug      string `json:"slug,omitempty"`
	Found     bool   `json:"found"`
	Ambiguous bool   `json:"ambiguous"`
	// Candidates lists every match of an ambiguous simple name, preferred first.
	Candidates []string `json:"candidates,omitempty"`
}

// Resolve maps a raw link target to a note slug.
//
// The target is normalized first. An exact full-path match wins; otherwise the
// simple-name index is consulted. When several notes share the simple name the
// shallowest path is chosen, then the lexicographically smallest, and the result
// is marked Ambiguous. A bare name that hits a root-level note is still marked
// Ambiguous when deeper notes share it, since the writer may have meant one of
// them. There is no fuzzy matching.
func (idx *Index) Resolve(raw string) Resolution {
	candidate := slug.Normalize(raw)
	if candidate == "" {
		return Resolution{}
	}
	matches := idx.bySimpleName[candidate]
	if _, ok := idx.byFullPath[candidate]; ok {
		if len(matches) > 1 {
			// candidate is a single segment here, so it sorts first in matches.
			return Resolution{Slug: candidate, Found: true, Ambiguous: true, Candidates: idx.Candidates(candidate)}
		}
		return Resolution{Slug: candidate, Found: true}
	}

	switch len(matches) {
	case 0:
		return Resolution{}
	case 1:
		return Resolution{Slug: matches[0], Found: true}
	default:
		return Resolution{
			Slug:       matches[0],
			Found:      true,
			Ambiguous:  true,
			Candidates: idx.Candidates(candidate),
		}
	}
}

// Find returns the note addressed by a caller-supplied identifier such as a URL
// parameter. The identifier need not be canonical.
func (idx *Index) Find(requested string) (models.NoteRecord, bool) {
	res := idx.Resolve(requested)
	if !res.Found {
		return models.NoteRecord{}, false
	}
	return idx.byFullPath[res.Slug], true
}
