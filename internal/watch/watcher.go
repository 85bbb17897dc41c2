// Package watch turns file system events under a vault into snapshot rebuilds.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultgraph/internal/ignore"
	"github.com/starford/vaultgraph/internal/slug"
	"github.com/starford/vaultgraph/internal/snapshot"
)

// Change kinds passed to a Callback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 200 * time.Millisecond

// Callback is called for each changed note after the rebuild that includes it.
type Callback func(kind, path string)

// Source is the vault being watched.
type Source interface {
	Root() string
	Matcher() (*ignore.Matcher, error)
}

// Rebuilder is the snapshot cache the watcher keeps current.
type Rebuilder interface {
	Invalidate()
	Refresh(ctx context.Context) (*snapshot.Snapshot, error)
	Peek() *snapshot.Snapshot
}

// Watcher follows one vault.
type Watcher struct {
	src      Source
	store    Rebuilder
	log      *slog.Logger
	debounce time.Duration
	cb       Callback
}

// New creates a watcher. cb may be nil.
func New(src Source, store Rebuilder, logger *slog.Logger, cb Callback) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{src: src, store: store, log: logger, debounce: DefaultDebounce, cb: cb}
}

// SetDebounce overrides DefaultDebounce. It must be called before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run watches every non-ignored directory of the vault until ctx is cancelled.
//
// Directories created at runtime are added as they appear. Markdown changes are
// collected until no event arrives for the debounce interval, then the snapshot
// is invalidated and rebuilt once and the callback sees every collected change.
// Editing the vault ignore file reloads the rules and triggers a rebuild.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.src.Root()
	matcher, err := w.src.Matcher()
	if err != nil {
		return err
	}
	if err := addDirsRecursive(fw, root, root, matcher); err != nil {
		return err
	}

	w.log.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]string)
	rules := false
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if rules {
				if m, mErr := w.src.Matcher(); mErr != nil {
					w.log.Warn("watcher: reload ignore rules failed", slog.String("error", mErr.Error()))
				} else {
					matcher = m
				}
				rules = false
			}
			w.flush(ctx, pending)
			pending = make(map[string]string)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if rel == ignore.FileName {
				rules = true
				schedule()
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if matcher.Match(rel, true) {
						continue
					}
					if addErr := addDirsRecursive(fw, root, ev.Name, matcher); addErr != nil {
						w.log.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						w.log.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					// Notes may have landed in the directory before it was watched.
					for _, p := range markdownUnder(root, ev.Name, matcher) {
						pending[p] = KindCreated
					}
					schedule()
					continue
				}
			}

			// A directory moved or removed is reported once, for the directory
			// itself; the notes below it get no events of their own.
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && !strings.HasSuffix(rel, slug.Ext) {
				if matcher.Match(rel, true) {
					continue
				}
				gone := w.notesUnder(rel)
				if len(gone) == 0 && w.store.Peek() != nil {
					continue
				}
				for _, p := range gone {
					pending[p] = KindDeleted
				}
				schedule()
				continue
			}

			if !strings.HasSuffix(rel, slug.Ext) || matcher.Match(rel, false) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				pending[rel] = KindCreated
			case ev.Op&fsnotify.Write != 0:
				if pending[rel] != KindCreated {
					pending[rel] = KindUpdated
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// A rename reports the old path; the new one arrives as a Create.
				pending[rel] = KindDeleted
			default:
				continue
			}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush rebuilds once for a batch of changes and then reports them in path order.
func (w *Watcher) flush(ctx context.Context, pending map[string]string) {
	w.store.Invalidate()
	if _, err := w.store.Refresh(ctx); err != nil {
		w.log.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
		return
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		w.log.Debug("watcher: changed", slog.String("path", p), slog.String("op", pending[p]))
		if w.cb != nil {
			w.cb(pending[p], p)
		}
	}
}

// notesUnder lists the notes of the last snapshot that live below dir.
func (w *Watcher) notesUnder(dir string) []string {
	snap := w.store.Peek()
	if snap == nil {
		return nil
	}
	prefix := dir + "/"
	var out []string
	for _, rec := range snap.Index.Notes() {
		if strings.HasPrefix(rec.RelativeFilePath, prefix) {
			out = append(out, rec.RelativeFilePath)
		}
	}
	return out
}

// markdownUnder lists the notes already present below dir.
func markdownUnder(root, dir string, matcher *ignore.Matcher) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(rel, slug.Ext) {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds dir and all its non-ignored subdirectories to the
// watcher. Ignore rules are matched against paths relative to root.
func addDirsRecursive(fw *fsnotify.Watcher, root, dir string, matcher *ignore.Matcher) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && matcher.Match(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		return fw.Add(path)
	})
}
