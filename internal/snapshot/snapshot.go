// Package snapshot builds immutable views of the vault and decides when they are
// rebuilt.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/starford/vaultgraph/internal/checksum"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/notes"
)

// Snapshot is one complete build of the vault. It is never modified after it is
// published, so handlers may read it without locking.
type Snapshot struct {
	ID      uuid.UUID
	BuiltAt time.Time
	// Fingerprint changes whenever the graph or the tree changes. It is used as
	// the HTTP entity tag of graph responses.
	Fingerprint string
	Index       *notes.Index
	Graph       *models.Graph
	Tree        []*models.TreeNode
	Diagnostics []models.Diagnostic
}

// Backlinks returns the notes linking to slug.
func (s *Snapshot) Backlinks(slug string) []string { return notes.Backlinks(s.Graph, slug) }

// Outlinks returns the notes slug links to.
func (s *Snapshot) Outlinks(slug string) []string { return notes.Outlinks(s.Graph, slug) }

// DiagnosticsFor returns the diagnostics raised while reading path.
func (s *Snapshot) DiagnosticsFor(path string) []models.Diagnostic {
	out := []models.Diagnostic{}
	for _, d := range s.Diagnostics {
		if d.Path == path {
			out = append(out, d)
		}
	}
	return out
}

func fingerprint(g *models.Graph, tree []*models.TreeNode) string {
	// Both values are plain structs of strings, ints and slices; Marshal cannot fail.
	data, _ := json.Marshal(struct {
		Graph *models.Graph      `json:"graph"`
		Tree  []*models.TreeNode `json:"tree"`
	}{g, tree})
	return checksum.Sum(data)
}
