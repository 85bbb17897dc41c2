package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultgraph/internal/models"
)

// collect returns a Reporter that appends into the given slice.
func collect(diags *[]models.Diagnostic) Reporter {
	return func(d models.Diagnostic) { *diags = append(*diags, d) }
}

func kinds(diags []models.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestBuildIndex_Records(t *testing.T) {
	idx := BuildIndex([]string{"Folder Name/Sub Note.md", "A.md"}, nil)
	require.Equal(t, 2, idx.Len())

	rec, ok := idx.Lookup("folder-name/sub-note")
	require.True(t, ok)
	assert.Equal(t, models.NoteRecord{
		FullPathSlug:     "folder-name/sub-note",
		Title:            "Sub Note",
		RelativeFilePath: "Folder Name/Sub Note.md",
		SimpleSlug:       "sub-note",
	}, rec)

	notes := idx.Notes()
	assert.Equal(t, "folder-name/sub-note", notes[0].FullPathSlug, "scan order kept")
	assert.Equal(t, "a", notes[1].FullPathSlug)
}

func TestBuildIndex_SharedBasename(t *testing.T) {
	idx := BuildIndex([]string{"A.md", "Folder/A.md"}, nil)

	_, ok := idx.Lookup("a")
	assert.True(t, ok)
	_, ok = idx.Lookup("folder/a")
	assert.True(t, ok)
	assert.Len(t, idx.Candidates("a"), 2)
	assert.Equal(t, []string{"a"}, idx.SharedNames())
}

func TestBuildIndex_SimpleNameEntriesExistByFullPath(t *testing.T) {
	idx := BuildIndex([]string{"x/One.md", "y/one.md", "Two.md", "z/!!!.md"}, nil)
	for name, slugs := range idx.bySimpleName {
		for _, s := range slugs {
			_, ok := idx.byFullPath[s]
			assert.True(t, ok, "simple name %q lists unknown slug %q", name, s)
		}
	}
}

func TestBuildIndex_CollisionFirstSeenWins(t *testing.T) {
	var diags []models.Diagnostic
	idx := BuildIndex([]string{"My Note.md", "my_note.md", "MY-NOTE.md"}, collect(&diags))

	require.Equal(t, 1, idx.Len())
	rec, _ := idx.Lookup("my-note")
	assert.Equal(t, "My Note.md", rec.RelativeFilePath)
	assert.Equal(t, []string{"my-note"}, idx.Candidates("my-note"), "losers are not indexed by simple name")

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, models.DiagSlugCollision, d.Kind)
		assert.Equal(t, "my-note", d.Slug)
		assert.Equal(t, "My Note.md", d.Candidates[0])
	}
	assert.Equal(t, "my_note.md", diags[0].Path)
}

func TestBuildIndex_EmptySlugSkipped(t *testing.T) {
	var diags []models.Diagnostic
	idx := BuildIndex([]string{"!!!.md", "ok.md"}, collect(&diags))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []string{models.DiagSlugCollision}, kinds(diags))
}

func TestCandidates_PreferenceOrderAndCopy(t *testing.T) {
	idx := BuildIndex([]string{"z/deep/Note.md", "b/Note.md", "a/Note.md", "Note.md"}, nil)
	got := idx.Candidates("note")
	assert.Equal(t, []string{"note", "a/note", "b/note", "z/deep/note"}, got)

	got[0] = "mutated"
	assert.Equal(t, "note", idx.Candidates("note")[0])
	assert.Nil(t, idx.Candidates("missing"))
}

func TestSlugOf_MatchesIndexedSlug(t *testing.T) {
	idx := BuildIndex([]string{"x.md.md", "My Note.md", "my_note.md"}, nil)

	s, ok := idx.SlugOf("x.md.md")
	require.True(t, ok)
	assert.Equal(t, "x", s)
	assert.Equal(t, PathSlug("x.md.md"), s)

	s, ok = idx.SlugOf("My Note.md")
	require.True(t, ok)
	assert.Equal(t, "my-note", s)

	_, ok = idx.SlugOf("my_note.md")
	assert.False(t, ok, "collision loser owns no slug")
	_, ok = idx.SlugOf("absent.md")
	assert.False(t, ok)
}
