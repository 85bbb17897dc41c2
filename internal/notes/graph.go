package notes

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
)

// FileReader reads a vault file by its relative path.
type FileReader interface {
	Read(path string) ([]byte, error)
}

type graphConfig struct {
	workers int
}

// GraphOption configures BuildGraph.
type GraphOption func(*graphConfig)

// WithWorkers bounds the number of files read concurrently. Values below one
// mean GOMAXPROCS.
func WithWorkers(n int) GraphOption {
	return func(c *graphConfig) { c.workers = n }
}

// scanned is the link extraction result for one note, written by exactly one worker.
type scanned struct {
	links []parser.WikiLink
	err   error
}

// BuildGraph reads every note, resolves its wiki-links against idx and returns
// one node per note and one edge per resolved link occurrence.
//
// Files are read in parallel; resolution and diagnostics happen afterwards on
// the calling goroutine in index order, so the output is deterministic.
// Unreadable files, dangling links and ambiguous links are reported and never
// abort the build. Self-links produce no edge. The only error returned is the
// context's.
func BuildGraph(ctx context.Context, idx *Index, reader FileReader, report Reporter, opts ...GraphOption) (*models.Graph, error) {
	cfg := graphConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	results := make([]scanned, len(idx.notes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i, rec := range idx.notes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := reader.Read(rec.RelativeFilePath)
			if err != nil {
				results[i] = scanned{err: err}
				return nil
			}
			results[i] = scanned{links: parser.WikiLinks(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := &models.Graph{
		Nodes: make([]models.GraphNode, 0, len(idx.notes)),
		Edges: []models.GraphEdge{},
	}
	for i, rec := range idx.notes {
		graph.Nodes = append(graph.Nodes, models.GraphNode{ID: rec.FullPathSlug, Label: rec.Title})

		res := results[i]
		if res.err != nil {
			report.report(models.Diagnostic{
				Kind:    models.DiagFileRead,
				Message: fmt.Sprintf("cannot read %s: %v", rec.RelativeFilePath, res.err),
				Path:    rec.RelativeFilePath,
				Slug:    rec.FullPathSlug,
			})
			continue
		}
		for _, link := range res.links {
			if edge, ok := resolveEdge(idx, rec, link, report); ok {
				graph.Edges = append(graph.Edges, edge)
			}
		}
	}
	return graph, nil
}

func resolveEdge(idx *Index, src models.NoteRecord, link parser.WikiLink, report Reporter) (models.GraphEdge, bool) {
	res := idx.Resolve(link.Target)
	if !res.Found {
		report.report(models.Diagnostic{
			Kind:    models.DiagDanglingLink,
			Message: fmt.Sprintf("%s line %d: %s matches no note", src.RelativeFilePath, link.Line, link.Raw),
			Path:    src.RelativeFilePath,
			Link:    link.Target,
		})
		return models.GraphEdge{}, false
	}
	if res.Ambiguous {
		report.report(models.Diagnostic{
			Kind: models.DiagAmbiguousLink,
			Message: fmt.Sprintf("%s line %d: %s matches %s; using %s",
				src.RelativeFilePath, link.Line, link.Raw, strings.Join(res.Candidates, ", "), res.Slug),
			Path:       src.RelativeFilePath,
			Link:       link.Target,
			Slug:       res.Slug,
			Candidates: res.Candidates,
		})
	}
	if res.Slug == src.FullPathSlug {
		return models.GraphEdge{}, false
	}
	return models.GraphEdge{
		ID:     models.EdgeID(src.FullPathSlug, res.Slug),
		Source: src.FullPathSlug,
		Target: res.Slug,
	}, true
}

// Backlinks returns the distinct sources of edges pointing at slug, sorted.
func Backlinks(g *models.Graph, slug string) []string {
	return neighbours(g, func(e models.GraphEdge) (string, bool) {
		return e.Source, e.Target == slug
	})
}

// Outlinks returns the distinct targets of edges leaving slug, sorted.
func Outlinks(g *models.Graph, slug string) []string {
	return neighbours(g, func(e models.GraphEdge) (string, bool) {
		return e.Target, e.Source == slug
	})
}

func neighbours(g *models.Graph, pick func(models.GraphEdge) (string, bool)) []string {
	seen := make(map[string]struct{})
	out := []string{}
	if g == nil {
		return out
	}
	for _, e := range g.Edges {
		s, ok := pick(e)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
