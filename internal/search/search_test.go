package search

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/vaultgraph/internal/snapshot"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func vaultSnapshot(t *testing.T, dir string) (*snapshot.Snapshot, *storage.FS) {
	t.Helper()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := snapshot.New(fs, snapshot.WithLogger(quiet)).Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return snap, fs
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	n, err := db.Count()
	if err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh db has %d rows", n)
	}
}

func TestUpsertAndChecksum(t *testing.T) {
	db := testDB(t)
	row := Row{Slug: "hello", Title: "Hello", Path: "Hello.md", Checksum: "abc", Tags: []string{"go"}, UpdatedAt: time.Now()}
	if err := db.Upsert(row, "This is a hello world note."); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cs, _ := db.Checksum("hello")
	if cs != "abc" {
		t.Errorf("checksum = %q", cs)
	}
	tags, err := db.Tags("hello")
	if err != nil || len(tags) != 1 || tags[0] != "go" {
		t.Errorf("tags = %v, %v", tags, err)
	}

	row.Checksum = "def"
	if err := db.Upsert(row, "changed"); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if cs, _ := db.Checksum("hello"); cs != "def" {
		t.Errorf("checksum after update = %q", cs)
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if err := db.Delete("hello"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cs, _ := db.Checksum("hello"); cs != "" {
		t.Error("deleted note still has a checksum")
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(Row{Slug: "go", Title: "Go Notes", Path: "Go Notes.md", UpdatedAt: now}, "Channels and goroutines.")
	_ = db.Upsert(Row{Slug: "rust", Title: "Rust", Path: "Rust.md", UpdatedAt: now}, "Ownership and borrowing.")

	results, err := db.Search("goroutines", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "go" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Path != "Go Notes.md" || results[0].Snippet == "" {
		t.Errorf("result = %+v", results[0])
	}

	results, err = db.Search("   ", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("blank query: %v, %v", results, err)
	}
}

func TestSearch_SpecialCharacters(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Row{Slug: "pct", Title: "Percent", Path: "Percent.md"}, "plain text")

	for _, q := range []string{`%`, `"`, `a_b`, `(`, `NOT`} {
		if _, err := db.Search(q, 5); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}
	results, _ := db.Search("%", 5)
	if len(results) != 0 {
		t.Errorf("wildcard leaked into query: %+v", results)
	}
}

func TestReindex(t *testing.T) {
	dir := testutil.WriteVault(t, map[string]string{
		"Alpha.md":     "---\ntags: [intro]\n---\n# Alpha heading\nunique-alpha-body",
		"Sub/Beta.md":  "beta body mentioning [[Alpha]]",
		"Sub/Gamma.md": "gamma",
	})
	db := testDB(t)
	ctx := context.Background()

	snap, fs := vaultSnapshot(t, dir)
	st, err := db.Reindex(ctx, snap, fs, quiet)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if st.Indexed != 3 || st.Removed != 0 {
		t.Errorf("first pass stats = %+v", st)
	}
	tags, _ := db.Tags("alpha")
	if len(tags) != 1 || tags[0] != "intro" {
		t.Errorf("alpha tags = %v", tags)
	}

	st, _ = db.Reindex(ctx, snap, fs, quiet)
	if st.Indexed != 0 || st.Unchanged != 3 {
		t.Errorf("unchanged pass stats = %+v", st)
	}

	testutil.WriteFile(t, dir, "Sub/Beta.md", "rewritten")
	if err := os.Remove(filepath.Join(dir, "Sub", "Gamma.md")); err != nil {
		t.Fatal(err)
	}
	snap, fs = vaultSnapshot(t, dir)
	st, _ = db.Reindex(ctx, snap, fs, quiet)
	if st.Indexed != 1 || st.Removed != 1 || st.Unchanged != 1 {
		t.Errorf("incremental pass stats = %+v", st)
	}

	results, _ := db.Search("rewritten", 10)
	if len(results) != 1 || results[0].Slug != "sub/beta" {
		t.Errorf("search after reindex = %+v", results)
	}
	if n, _ := db.Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestReindex_OlderSnapshotSkipped(t *testing.T) {
	dir := testutil.WriteVault(t, map[string]string{"a.md": "first"})
	db := testDB(t)
	ctx := context.Background()

	older, fs := vaultSnapshot(t, dir)
	time.Sleep(10 * time.Millisecond)
	testutil.WriteFile(t, dir, "b.md", "second")
	newer, _ := vaultSnapshot(t, dir)

	if _, err := db.Reindex(ctx, newer, fs, quiet); err != nil {
		t.Fatalf("Reindex newer: %v", err)
	}
	st, err := db.Reindex(ctx, older, fs, quiet)
	if err != nil {
		t.Fatalf("Reindex older: %v", err)
	}
	if !st.Skipped || st.Removed != 0 {
		t.Errorf("older pass stats = %+v, want skipped", st)
	}
	if cs, _ := db.Checksum("b"); cs == "" {
		t.Error("note from the newer snapshot was removed")
	}
}

func TestReindex_Cancelled(t *testing.T) {
	dir := testutil.WriteVault(t, map[string]string{"a.md": "a"})
	snap, fs := vaultSnapshot(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testDB(t).Reindex(ctx, snap, fs, quiet); err == nil {
		t.Error("expected context error")
	}
}
