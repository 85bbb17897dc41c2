package notes

import (
	"path"
	"sort"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/slug"
)

// BuildTree arranges notes into a forest of folders and files.
//
// A node is a file only when its id is a note slug that no other note extends;
// every other prefix is a folder. A note whose slug is also a folder prefix
// (Arts.md next to Arts/Literature.md) becomes a folder with Note set. Names
// come from the note title when a note has exactly that slug, otherwise from the
// directory name on disk. Folders sort before files, then by case-folded name.
func BuildTree(notes []models.NoteRecord) []*models.TreeNode {
	titles := make(map[string]string, len(notes))
	isNote := make(map[string]bool, len(notes))
	folders := make(map[string]bool)
	for _, n := range notes {
		isNote[n.FullPathSlug] = true
		if _, ok := titles[n.FullPathSlug]; !ok {
			titles[n.FullPathSlug] = n.Title
		}
		segs := slug.Segments(n.FullPathSlug)
		for i := 1; i < len(segs); i++ {
			folders[strings.Join(segs[:i], slug.Sep)] = true
		}
	}
	dirNames(notes, titles)

	var roots []*models.TreeNode
	nodes := make(map[string]*models.TreeNode)
	for _, n := range notes {
		var parent *models.TreeNode
		cum := ""
		for depth, seg := range slug.Segments(n.FullPathSlug) {
			if cum == "" {
				cum = seg
			} else {
				cum += slug.Sep + seg
			}
			node, ok := nodes[cum]
			if !ok {
				node = newTreeNode(cum, seg, depth, titles, isNote, folders)
				nodes[cum] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
	}

	sortTree(roots)
	return roots
}

// dirNames adds the on-disk spelling of every folder that has no note of its
// own. Directory segments that normalize to nothing carry no slug segment and
// are skipped, which keeps the remaining ones aligned with the slug.
func dirNames(notes []models.NoteRecord, names map[string]string) {
	for _, n := range notes {
		dir := path.Dir(strings.ReplaceAll(n.RelativeFilePath, `\`, slug.Sep))
		if dir == "." {
			continue
		}
		cum := ""
		for _, raw := range strings.Split(dir, slug.Sep) {
			seg := slug.Segment(raw)
			if seg == "" {
				continue
			}
			if cum == "" {
				cum = seg
			} else {
				cum += slug.Sep + seg
			}
			if _, ok := names[cum]; !ok {
				names[cum] = raw
			}
		}
	}
}

func newTreeNode(id, seg string, depth int, titles map[string]string, notes, folders map[string]bool) *models.TreeNode {
	node := &models.TreeNode{
		ID:    id,
		Name:  slug.Display(seg),
		Type:  models.NodeFile,
		Depth: depth,
	}
	if name, ok := titles[id]; ok {
		node.Name = name
	}
	isNote := notes[id]
	if folders[id] {
		node.Type = models.NodeFolder
		node.Note = isNote
		node.Children = []*models.TreeNode{}
	}
	return node
}

func sortTree(nodes []*models.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Type != b.Type {
			return a.Type == models.NodeFolder
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		return a.ID < b.ID
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortTree(n.Children)
		}
	}
}

// Walk calls fn for every node of the forest in depth-first order.
func Walk(forest []*models.TreeNode, fn func(*models.TreeNode)) {
	for _, n := range forest {
		fn(n)
		Walk(n.Children, fn)
	}
}
