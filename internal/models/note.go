// Package models defines the domain types shared by the note graph and its consumers.
package models

// NoteRecord describes one markdown file in the vault.
type NoteRecord struct {
	// FullPathSlug is the normalized path without extension; unique per vault.
	FullPathSlug string `json:"slug"`
	// Title is the file basename without extension, as written on disk.
	Title string `json:"title"`
	// RelativeFilePath is the on-disk path relative to the vault root.
	RelativeFilePath string `json:"path"`
	// SimpleSlug is the normalized basename; several notes may share it.
	SimpleSlug string `json:"simple_slug"`
}

// GraphNode is one note in the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphEdge is a directed link between two notes. Every link occurrence yields
// its own edge, so two edges may share an ID.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID formats the identifier of an edge from source to target.
func EdgeID(source, target string) string {
	return source + "->" + target
}

// Graph is the node/edge list consumed by the graph view.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Tree node kinds.
const (
	NodeFolder = "folder"
	NodeFile   = "file"
)

// TreeNode is one entry of the sidebar forest.
type TreeNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Children []*TreeNode `json:"children,omitempty"`
	Depth    int         `json:"depth"`
	// Note is set on a folder whose id is also a note's slug.
	Note bool `json:"note,omitempty"`
}
