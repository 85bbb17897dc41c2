package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/notes"
	"github.com/starford/vaultgraph/internal/storage"
)

// Cache modes.
const (
	// ModeRequest rebuilds on every Current call.
	ModeRequest = "request"
	// ModeProcess builds once and serves the cached snapshot until Invalidate.
	ModeProcess = "process"
)

// Hook is called with every newly published snapshot.
type Hook func(*Snapshot)

// Option configures a Store.
type Option func(*Store)

// WithMode selects ModeRequest or ModeProcess. Unknown values mean ModeProcess.
func WithMode(mode string) Option {
	return func(s *Store) { s.mode = mode }
}

// WithWorkers bounds how many files a build reads concurrently.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// OnPublish registers a hook run after each publish, on the building goroutine.
func OnPublish(h Hook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// Store owns the current snapshot of a vault.
type Store struct {
	provider storage.Provider
	mode     string
	workers  int
	log      *slog.Logger
	hooks    []Hook
	now      func() time.Time

	group   singleflight.Group
	current atomic.Pointer[Snapshot]
	stale   atomic.Bool
}

// New creates a Store reading from provider. Nothing is built until the first
// Current or Refresh call.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		mode:     ModeProcess,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the cache mode in effect.
func (s *Store) Mode() string {
	if s.mode == ModeRequest {
		return ModeRequest
	}
	return ModeProcess
}

// Current returns a snapshot according to the cache mode, building one when
// needed. Concurrent callers share a single build.
func (s *Store) Current(ctx context.Context) (*Snapshot, error) {
	if s.Mode() == ModeProcess && !s.stale.Load() {
		if snap := s.current.Load(); snap != nil {
			return snap, nil
		}
	}
	return s.Refresh(ctx)
}

// Peek returns the last published snapshot without building. It is nil before
// the first successful build.
func (s *Store) Peek() *Snapshot {
	return s.current.Load()
}

// Invalidate marks the cached snapshot stale; the next Current call rebuilds.
func (s *Store) Invalidate() {
	s.stale.Store(true)
}

// Refresh builds and publishes a new snapshot regardless of mode. A caller whose
// context ends stops waiting, but a build already under way completes and is
// published for the others.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := s.group.DoChan("build", func() (interface{}, error) {
		return s.build(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Store) build(ctx context.Context) (*Snapshot, error) {
	// Cleared before scanning so an Invalidate that races with this build
	// still forces the next one.
	s.stale.Store(false)
	start := s.now()

	paths, err := s.provider.Scan(ctx)
	if err != nil {
		s.stale.Store(true)
		return nil, fmt.Errorf("scan vault: %w", err)
	}

	diags := []models.Diagnostic{}
	report := func(d models.Diagnostic) { diags = append(diags, d) }

	idx := notes.BuildIndex(paths, report)
	graph, err := notes.BuildGraph(ctx, idx, s.provider, report, notes.WithWorkers(s.workers))
	if err != nil {
		s.stale.Store(true)
		return nil, fmt.Errorf("build graph: %w", err)
	}
	tree := notes.BuildTree(idx.Notes())

	snap := &Snapshot{
		ID:          uuid.New(),
		BuiltAt:     start,
		Fingerprint: fingerprint(graph, tree),
		Index:       idx,
		Graph:       graph,
		Tree:        tree,
		Diagnostics: diags,
	}

	for _, d := range diags {
		s.log.Warn("vault diagnostic",
			slog.String("kind", d.Kind),
			slog.String("path", d.Path),
			slog.String("message", d.Message))
	}
	s.log.Debug("snapshot built",
		slog.String("id", snap.ID.String()),
		slog.Int("notes", idx.Len()),
		slog.Int("edges", len(graph.Edges)),
		slog.Int("diagnostics", len(diags)),
		slog.Duration("took", s.now().Sub(start)))

	s.current.Store(snap)

	for _, h := range s.hooks {
		h(snap)
	}
	return snap, nil
}
