package models

// Diagnostic kinds.
const (
	DiagSlugCollision = "slug_collision"
	DiagAmbiguousLink = "ambiguous_link"
	DiagDanglingLink  = "dangling_link"
	DiagFileRead      = "file_read_error"
)

// Diagnostic is a recoverable problem found while building the index or graph.
type Diagnostic struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Path       string   `json:"path,omitempty"`
	Link       string   `json:"link,omitempty"`
	Slug       string   `json:"slug,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}
