// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultgraph/internal/api"
	"github.com/starford/vaultgraph/internal/mcpserver"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/notes"
	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/snapshot"
	"github.com/starford/vaultgraph/internal/sse"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/watch"
)

// vault bundles the components shared by every entry point.
type vault struct {
	logger *slog.Logger
	fs     *storage.FS
	db     *search.DB
	store  *snapshot.Store
	svc    *noteservice.Service
}

func (v *vault) Close() {
	if v.db != nil {
		if err := v.db.Close(); err != nil {
			v.logger.Warn("close search index", slog.String("error", err.Error()))
		}
	}
}

// openVault initializes logging, storage, the optional search index and the
// snapshot store. Extra hooks run after every published snapshot.
func openVault(ctx context.Context, app *application, hooks ...snapshot.Hook) (*vault, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("cache_mode", cfg.Cache.Mode),
		slog.Bool("watch", cfg.Cache.Watch),
		slog.Bool("search", cfg.Search.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	fs, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Ignore...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	v := &vault{logger: logger, fs: fs}

	var svcOpts []noteservice.Option
	if cfg.Vault.DefaultNote != "" {
		svcOpts = append(svcOpts, noteservice.WithDefaultNote(cfg.Vault.DefaultNote))
	}

	storeOpts := []snapshot.Option{
		snapshot.WithMode(cfg.Cache.Mode),
		snapshot.WithWorkers(cfg.Graph.Workers),
		snapshot.WithLogger(logger),
	}

	if cfg.Search.Enabled {
		if dir := filepath.Dir(cfg.Search.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create search dir: %w", err)
			}
		}
		db, err := search.Open(cfg.Search.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init search: %w", err)
		}
		v.db = db
		svcOpts = append(svcOpts, noteservice.WithSearch(db))
		storeOpts = append(storeOpts, snapshot.OnPublish(func(snap *snapshot.Snapshot) {
			// Indexing is slow relative to a graph build; readers never wait on it.
			go v.reindex(context.WithoutCancel(ctx), snap)
		}))
	}
	for _, h := range hooks {
		storeOpts = append(storeOpts, snapshot.OnPublish(h))
	}

	v.store = snapshot.New(fs, storeOpts...)
	v.svc = noteservice.NewService(v.store, fs, svcOpts...)
	return v, nil
}

func (v *vault) reindex(ctx context.Context, snap *snapshot.Snapshot) {
	st, err := v.db.Reindex(ctx, snap, v.fs, v.logger)
	if err != nil {
		v.logger.Warn("search reindex failed", slog.String("error", err.Error()))
		return
	}
	v.logger.Debug("search reindexed",
		slog.String("snapshot", snap.ID.String()),
		slog.Int("indexed", st.Indexed),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("removed", st.Removed),
		slog.Int("failed", st.Failed),
		slog.Bool("skipped", st.Skipped))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// SSE broker.
	broker := sse.NewBroker(cfg.Cache.GraphThrottle)
	defer broker.Close()

	v, err := openVault(ctx, app, func(snap *snapshot.Snapshot) {
		broker.PublishRebuild(sse.Rebuild{
			ID:          snap.ID.String(),
			Fingerprint: snap.Fingerprint,
			Notes:       len(snap.Graph.Nodes),
			Edges:       len(snap.Graph.Edges),
			Diagnostics: len(snap.Diagnostics),
		})
	})
	if err != nil {
		return err
	}
	defer v.Close()
	logger := v.logger

	// Initial build. A missing vault is reported by readiness, not fatal.
	if snap, err := v.store.Refresh(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Vault loaded",
			slog.Int("notes", len(snap.Graph.Nodes)),
			slog.Int("edges", len(snap.Graph.Edges)),
			slog.Int("diagnostics", len(snap.Diagnostics)))
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := v.svc.Snapshot(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(v.svc, broker, v.fs))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Cache.Watch && v.store.Mode() == snapshot.ModeProcess {
		w := watch.New(v.fs, v.store, logger, func(kind, path string) {
			broker.PublishNoteChange(kind, noteChange(v.store.Peek(), kind, path))
		})
		g.Go(func() error {
			if err := w.Run(gCtx); err != nil {
				// The server keeps answering from the last snapshot.
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open event streams would otherwise hold Shutdown until the timeout.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// noteChange describes a watcher event using the snapshot built for it. A path
// that owns no slug in snap, such as a collision loser, is sent without one.
func noteChange(snap *snapshot.Snapshot, kind, path string) sse.NoteChange {
	change := sse.NoteChange{Path: path}
	if snap == nil {
		return change
	}
	if kind == watch.KindDeleted {
		// Still indexed means another file now holds the slug.
		s := notes.PathSlug(path)
		if _, taken := snap.Index.Lookup(s); !taken {
			change.Slug = s
		}
		return change
	}
	if s, ok := snap.Index.SlugOf(path); ok {
		change.Slug = s
	}
	return change
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	v, err := openVault(ctx, app)
	if err != nil {
		return err
	}
	defer v.Close()

	if _, err := v.store.Refresh(ctx); err != nil {
		v.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	if app.config.Cache.Watch && v.store.Mode() == snapshot.ModeProcess {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		w := watch.New(v.fs, v.store, v.logger, nil)
		go func() {
			if err := w.Run(wctx); err != nil {
				v.logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	v.logger.Info("MCP server starting on stdio")
	return mcpserver.New(v.svc, app.version).ServeStdio()
}

// Export is the document written by the export command.
type Export struct {
	SnapshotID  string              `json:"snapshotId"`
	Fingerprint string              `json:"fingerprint"`
	Graph       *models.Graph       `json:"graph"`
	Tree        []*models.TreeNode  `json:"tree"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// RunExport builds the vault once and writes graph, tree and diagnostics as
// JSON to out.
func RunExport(ctx context.Context, out io.Writer, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config != nil {
		// One build; no index is needed for an export.
		cfg := *app.config
		cfg.Search.Enabled = false
		app.config = &cfg
	}
	v, err := openVault(ctx, app)
	if err != nil {
		return err
	}
	defer v.Close()

	snap, err := v.store.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("build vault: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(Export{
		SnapshotID:  snap.ID.String(),
		Fingerprint: snap.Fingerprint,
		Graph:       snap.Graph,
		Tree:        snap.Tree,
		Diagnostics: snap.Diagnostics,
	})
}
