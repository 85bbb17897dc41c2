// Package noteservice answers note, graph and search queries against the current
// vault snapshot. The HTTP API and the MCP server both sit on top of it.
package noteservice

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/checksum"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/notes"
	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/snapshot"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Path        string         `json:"path"`
	Heading     string         `json:"heading,omitempty"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	Outlinks    []string       `json:"outlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// Stats summarises the current snapshot.
type Stats struct {
	SnapshotID  string    `json:"snapshot_id"`
	BuiltAt     time.Time `json:"built_at"`
	Fingerprint string    `json:"fingerprint"`
	Notes       int       `json:"notes"`
	Edges       int       `json:"edges"`
	Orphans     int       `json:"orphans"`
	Folders     int       `json:"folders"`
	// SharedNames lists simple names used by more than one note; bare links to
	// them resolve by tie-break.
	SharedNames []string       `json:"shared_names"`
	Diagnostics map[string]int `json:"diagnostics"`
}

// Files reads note contents.
type Files interface {
	Read(path string) ([]byte, error)
	ModTime(path string) (time.Time, error)
}

// Searcher runs full-text queries.
type Searcher interface {
	Search(query string, limit int) ([]search.Result, error)
}

// Snapshots yields the vault snapshot to answer from.
type Snapshots interface {
	Current(ctx context.Context) (*snapshot.Snapshot, error)
}

// Option configures a Service.
type Option func(*Service)

// WithSearch enables Search. Without it Search returns apperr.ErrSearchDisabled.
func WithSearch(s Searcher) Option {
	return func(svc *Service) { svc.search = s }
}

// WithDefaultNote sets the note served when GetNote is called without an
// identifier.
func WithDefaultNote(id string) Option {
	return func(svc *Service) { svc.defaultNote = id }
}

// Service coordinates snapshot, file and search access.
type Service struct {
	snaps       Snapshots
	files       Files
	search      Searcher
	defaultNote string
}

// NewService creates a new note service.
func NewService(snaps Snapshots, files Files, opts ...Option) *Service {
	s := &Service{snaps: snaps, files: files}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.snaps.Current(ctx)
}

// GetNote finds a note by any identifier the resolver accepts (slug, path or
// bare name) and returns its content and links. An empty id means the default
// note.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	if id == "" {
		id = s.defaultNote
	}
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Index.Find(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}

	data, err := s.files.Read(rec.RelativeFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Deleted since the snapshot was built.
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildNoteDetail(snap, rec, data, s.modTime(rec.RelativeFilePath))
}

// ListNotes returns every note in slug order.
func (s *Service) ListNotes(ctx context.Context) ([]NoteListItem, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	recs := snap.Index.Notes()
	items := make([]NoteListItem, len(recs))
	for i, r := range recs {
		items[i] = NoteListItem{Slug: r.FullPathSlug, Title: r.Title, Path: r.RelativeFilePath}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Slug < items[j].Slug })
	return items, nil
}

// Graph returns the link graph and its fingerprint.
func (s *Service) Graph(ctx context.Context) (*models.Graph, string, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	return snap.Graph, snap.Fingerprint, nil
}

// Tree returns the folder forest.
func (s *Service) Tree(ctx context.Context) ([]*models.TreeNode, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(snap.Tree), nil
}

// Resolve resolves a raw link target the way note links are resolved.
func (s *Service) Resolve(ctx context.Context, link string) (notes.Resolution, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return notes.Resolution{}, err
	}
	return snap.Index.Resolve(link), nil
}

// Backlinks returns the slugs of notes linking to the note id resolves to.
func (s *Service) Backlinks(ctx context.Context, id string) ([]string, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Index.Find(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return snap.Backlinks(rec.FullPathSlug), nil
}

// Diagnostics returns the problems found while building the snapshot, optionally
// filtered by kind.
func (s *Service) Diagnostics(ctx context.Context, kind string) ([]models.Diagnostic, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Diagnostic{}
	for _, d := range snap.Diagnostics {
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

// Search delegates full-text search to the search index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	if s.search == nil {
		return nil, apperr.ErrSearchDisabled
	}
	return s.search.Search(query, limit)
}

// Stats summarises the current snapshot.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.snaps.Current(ctx)
	if err != nil {
		return nil, err
	}
	linked := make(map[string]struct{}, len(snap.Graph.Nodes))
	for _, e := range snap.Graph.Edges {
		linked[e.Source] = struct{}{}
		linked[e.Target] = struct{}{}
	}
	st := &Stats{
		SnapshotID:  snap.ID.String(),
		BuiltAt:     snap.BuiltAt,
		Fingerprint: snap.Fingerprint,
		Notes:       len(snap.Graph.Nodes),
		Edges:       len(snap.Graph.Edges),
		Orphans:     len(snap.Graph.Nodes) - len(linked),
		SharedNames: nonNilSlice(snap.Index.SharedNames()),
		Diagnostics: make(map[string]int),
	}
	notes.Walk(snap.Tree, func(n *models.TreeNode) {
		if n.Type == models.NodeFolder {
			st.Folders++
		}
	})
	for _, d := range snap.Diagnostics {
		st.Diagnostics[d.Kind]++
	}
	return st, nil
}

func (s *Service) modTime(path string) time.Time {
	t, err := s.files.ModTime(path)
	if err != nil {
		return time.Time{}
	}
	return t
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func buildNoteDetail(snap *snapshot.Snapshot, rec models.NoteRecord, data []byte, updated time.Time) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Slug:        rec.FullPathSlug,
		Title:       rec.Title,
		Path:        rec.RelativeFilePath,
		Heading:     res.Heading,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   snap.Backlinks(rec.FullPathSlug),
		Outlinks:    snap.Outlinks(rec.FullPathSlug),
		UpdatedAt:   updated,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
