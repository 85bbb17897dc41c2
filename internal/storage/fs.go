package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/vaultgraph/internal/ignore"
	"github.com/starford/vaultgraph/internal/slug"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to vault directory
	ignore []string
}

// NewFS creates a new FS provider rooted at the given directory. Extra ignore
// patterns are applied on top of ignore.Defaults and the vault's own ignore file.
// The directory is checked on every Scan, not here, so a vault that appears
// later is picked up without a restart.
func NewFS(root string, ignorePatterns ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if _, err := ignore.New(ignorePatterns...); err != nil {
		return nil, fmt.Errorf("storage: ignore patterns: %w", err)
	}
	return &FS{root: abs, ignore: ignorePatterns}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// matcher compiles the configured patterns plus the vault ignore file.
func (f *FS) matcher() (*ignore.Matcher, error) {
	m, err := ignore.New(f.ignore...)
	if err != nil {
		return nil, err
	}
	if err := m.LoadFile(filepath.Join(f.root, ignore.FileName)); err != nil {
		return nil, err
	}
	return m, nil
}

// Matcher exposes the active ignore rules so the watcher skips the same entries.
func (f *FS) Matcher() (*ignore.Matcher, error) {
	return f.matcher()
}

// Scan walks the vault and returns the relative path of every markdown file.
// Subdirectories that cannot be read are skipped with a warning; a missing or
// unreadable root fails with *FilesystemError.
func (f *FS) Scan(ctx context.Context) ([]string, error) {
	info, err := os.Stat(f.root)
	if err != nil {
		return nil, &FilesystemError{Root: f.root, Err: err}
	}
	if !info.IsDir() {
		return nil, &FilesystemError{Root: f.root, Err: fmt.Errorf("not a directory")}
	}

	m, err := f.matcher()
	if err != nil {
		return nil, fmt.Errorf("storage: load ignore rules: %w", err)
	}

	var out []string
	err = filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == f.root {
				return &FilesystemError{Root: f.root, Err: walkErr}
			}
			slog.Warn("storage: skip unreadable entry", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == f.root {
			return nil
		}

		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if m.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), slug.Ext) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		if IsFilesystemError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("storage: scan: %w", err)
	}

	sort.Strings(out)
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// ModTime returns the modification time of a vault file.
func (f *FS) ModTime(path string) (time.Time, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}

// AssetPath returns the absolute path of a regular vault file so it can be served
// as-is, for example an image embedded in a note. Hidden and ignored files are
// reported as not existing.
func (f *FS) AssetPath(rel string) (string, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return "", err
	}
	m, err := f.matcher()
	if err != nil {
		return "", fmt.Errorf("storage: load ignore rules: %w", err)
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if m.Match(cleaned, false) {
		return "", fmt.Errorf("storage: asset %s: %w", rel, os.ErrNotExist)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("storage: asset %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("storage: asset %s: %w", rel, os.ErrNotExist)
	}
	return abs, nil
}
