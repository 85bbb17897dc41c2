package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"My Note.md", "my-note"},
		{"my-note", "my-note"},
		{"Folder Name/Sub Note", "folder-name/sub-note"},
		{`Folder Name\Sub Note.md`, "folder-name/sub-note"},
		{"a//b", "a/b"},
		{"a/!!!/b", "a/b"},
		{"  Spaced   Out  ", "spaced-out"},
		{"snake_case_name", "snake-case-name"},
		{"--dashes--everywhere--", "dashes-everywhere"},
		{"a - b", "a-b"},
		{"What? Why!", "what-why"},
		{"C++ & Go", "c-go"},
		{"Café", "caf"},
		{"컴퓨터과학/CS", "컴퓨터과학/cs"},
		{"한글 노트.md", "한글-노트"},
		{"notes.md.md", "notesmd"},
		{"README.MD", "readmemd"},
		{"/leading/slash/", "leading/slash"},
		{"2024-01-02 Daily", "2024-01-02-daily"},
		{"tab\there", "tab-here"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", "My Note.md", "Folder Name/Sub Note", "a//b", "x.md.md", "-_- _-_",
		"컴퓨터 과학/운영 체제.md", "Ünïcödé/Ωmega", `mixed\sep/path.md`, "...", "a-.md",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_CaseSpaceExtensionCollapse(t *testing.T) {
	assert.Equal(t, Normalize("my-note"), Normalize("My Note.md"))
	assert.Equal(t, Normalize("my_note"), Normalize("MY   NOTE"))
}

func TestSegmentsBaseDepth(t *testing.T) {
	assert.Nil(t, Segments(""))
	assert.Equal(t, []string{"a", "b", "c"}, Segments("a/b/c"))
	assert.Equal(t, "c", Base("a/b/c"))
	assert.Equal(t, "a", Base("a"))
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("a"))
	assert.Equal(t, 3, Depth("a/b/c"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "sub folder", Display("sub-folder"))
	assert.Equal(t, "x", Display("x"))
}

func TestSegment(t *testing.T) {
	assert.Equal(t, "xmd", Segment("x.md"))
	assert.Equal(t, "q1-plan", Segment(" Q1  Plan "))
	assert.Equal(t, "", Segment("!!"))
}
