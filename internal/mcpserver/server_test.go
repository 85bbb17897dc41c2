package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/snapshot"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/testutil"
)

type stubSearch struct{}

func (stubSearch) Search(q string, limit int) ([]search.Result, error) {
	return []search.Result{{Slug: "arts", Title: "Arts", Snippet: q}}, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	fs, err := storage.NewFS(testutil.WriteVault(t, map[string]string{
		"Arts.md":            "# Arts\nSee [[Literature]].",
		"Arts/Literature.md": "Back to [[Arts]] and [[Ghost]].",
		"Note.md":            "",
		"Sub/Note.md":        "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	store := snapshot.New(fs, snapshot.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	svc := noteservice.NewService(store, fs, noteservice.WithSearch(stubSearch{}))
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "resolve_link":
		result, err = srv.resolveLink(ctx, req)
	case "get_graph_stats":
		result, err = srv.getGraphStats(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "Literature"})
	if text := resultText(r); text != "Back to [[Arts]] and [[Ghost]]." {
		t.Errorf("read result = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	if r = callTool(t, srv, "read_note", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestListNotes(t *testing.T) {
	srv := testServer(t)

	text := resultText(callTool(t, srv, "list_notes", map[string]interface{}{}))
	if lines := strings.Split(text, "\n"); len(lines) != 4 || lines[0] != "arts\tArts" {
		t.Errorf("list = %q", text)
	}

	text = resultText(callTool(t, srv, "list_notes", map[string]interface{}{"folder": "arts/"}))
	if text != "arts/literature\tLiterature" {
		t.Errorf("folder list = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "Arts"})
	if text := resultText(r); text != "arts/literature" {
		t.Errorf("backlinks = %q, want arts/literature", text)
	}
	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "note"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestResolveLink(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "resolve_link", map[string]interface{}{"link": "Note|alias"})

	var res struct {
		Slug       string   `json:"slug"`
		Ambiguous  bool     `json:"ambiguous"`
		Candidates []string `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The resolver takes raw targets; alias splitting happens when links are parsed.
	if res.Slug != "" {
		t.Errorf("raw alias text should not resolve: %+v", res)
	}

	r = callTool(t, srv, "resolve_link", map[string]interface{}{"link": "Note"})
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Slug != "note" || !res.Ambiguous || len(res.Candidates) != 2 {
		t.Errorf("resolution = %+v", res)
	}
}

func TestGraphStats(t *testing.T) {
	srv := testServer(t)
	var st noteservice.Stats
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "get_graph_stats", nil))), &st); err != nil {
		t.Fatal(err)
	}
	if st.Notes != 4 || st.Edges != 2 || st.Diagnostics["dangling_link"] != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "arts", "limit": 5})
	if r.IsError || !strings.Contains(resultText(r), `"slug": "arts"`) {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestDiagnosticsResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readDiagnosticsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "dangling_link") || !strings.Contains(text, "Ghost") {
		t.Errorf("diagnostics = %s", text)
	}
}
