package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/testutil"
)

func tempVault(t *testing.T, files map[string]string, patterns ...string) *FS {
	t.Helper()
	dir := testutil.WriteVault(t, files)
	fs, err := NewFS(dir, patterns...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestScan(t *testing.T) {
	s := tempVault(t, map[string]string{
		"a.md":                      "a",
		"Folder Name/Sub Note.md":   "b",
		"deep/er/c.md":              "c",
		"readme.txt":                "not md",
		".hidden.md":                "dot file",
		".obsidian/workspace.md":    "dot dir",
		"node_modules/pkg/x.md":     "deps",
		"sub/node_modules/pkg/y.md": "deps",
	})

	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"Folder Name/Sub Note.md", "a.md", "deep/er/c.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_IgnorePatternsAndFile(t *testing.T) {
	s := tempVault(t, map[string]string{
		"keep.md":             "k",
		"templates/daily.md":  "t",
		"drafts/wip.md":       "d",
		".vaultignore":        "drafts/\n",
		"archive/old.tmp.md":  "o",
		"archive/still-in.md": "i",
	}, "templates/", "*.tmp.md")

	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"archive/still-in.md", "keep.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	s, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_, err = s.Scan(context.Background())
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if !IsFilesystemError(err) {
		t.Errorf("expected FilesystemError, got %T", err)
	}
	if !errors.Is(err, apperr.ErrVaultUnavailable) {
		t.Error("FilesystemError should match ErrVaultUnavailable")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("FilesystemError should unwrap to the os error")
	}
}

func TestScan_RootIsFile(t *testing.T) {
	f, _ := os.CreateTemp("", "vaultgraph-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())

	s, err := NewFS(f.Name())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := s.Scan(context.Background()); !IsFilesystemError(err) {
		t.Errorf("expected FilesystemError when root is a file, got %v", err)
	}
}

func TestScan_Cancelled(t *testing.T) {
	s := tempVault(t, map[string]string{"a.md": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRead(t *testing.T) {
	s := tempVault(t, map[string]string{"sub/note.md": "# Hello\nWorld\n"})
	got, err := s.Read("sub/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\nWorld\n" {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := s.Read("missing.md"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestModTime(t *testing.T) {
	s := tempVault(t, map[string]string{"a.md": "a"})
	mt, err := s.ModTime("a.md")
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	if mt.IsZero() {
		t.Error("expected non-zero mod time")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestNewFS_BadPattern(t *testing.T) {
	if _, err := NewFS(t.TempDir(), "[broken"); err == nil {
		t.Error("expected error for invalid ignore pattern")
	}
}

func TestAssetPath(t *testing.T) {
	s := tempVault(t, map[string]string{
		"img/cat.png":           "png",
		".obsidian/theme.css":   "css",
		"private/secret.png":    "png",
		"node_modules/pkg/a.js": "js",
	}, "private/")

	abs, err := s.AssetPath("img/cat.png")
	if err != nil {
		t.Fatalf("AssetPath: %v", err)
	}
	if filepath.Base(abs) != "cat.png" {
		t.Errorf("abs = %q", abs)
	}

	for _, rel := range []string{".obsidian/theme.css", "private/secret.png", "node_modules/pkg/a.js", "img", "img/dog.png"} {
		if _, err := s.AssetPath(rel); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("AssetPath(%q) err = %v, want ErrNotExist", rel, err)
		}
	}
	if _, err := s.AssetPath("../outside.png"); err == nil {
		t.Error("traversal should be rejected")
	}
}
