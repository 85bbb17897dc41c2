// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault graph to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/search"
)

// Resource URIs.
const (
	diagnosticsURI = "vaultgraph://diagnostics"
	linkRulesURI   = "vaultgraph://link-rules"
)

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all vault tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vaultgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note. Accepts a slug, a vault path, or a bare note name "+
			"exactly as it would appear inside [[ ]]."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier (e.g. arts/literature, Arts/Literature.md, Literature)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note as slug and title, optionally limited to a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder slug prefix (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a wiki-link target to the note it points at. Reports ambiguity and "+
			"lists every candidate. Read "+linkRulesURI+" for the rules."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Link target as written inside [[ ]]")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("get_graph_stats",
		mcp.WithDescription("Summarise the link graph: note, edge and orphan counts plus diagnostics by kind."),
	), s.getGraphStats)

	s.mcp.AddResource(
		mcp.NewResource(diagnosticsURI, "Vault diagnostics",
			mcp.WithResourceDescription("Slug collisions, ambiguous and dangling links, and unreadable files found in the last build."),
			mcp.WithMIMEType("application/json"),
		),
		s.readDiagnosticsResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(linkRulesURI, "Link resolution rules",
			mcp.WithResourceDescription("How note files become slugs and how [[links]] are resolved."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool result the client can read.
func toolError(err error, subject string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", subject))
	case errors.Is(err, apperr.ErrVaultUnavailable):
		return mcp.NewToolResultError("vault unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", search.DefaultLimit))
	if err != nil {
		return toolError(err, query), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return toolError(err, id), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")

	items, err := s.svc.ListNotes(ctx)
	if err != nil {
		return toolError(err, folder), nil
	}

	var lines []string
	for _, it := range items {
		if folder != "" && !strings.HasPrefix(it.Slug, folder+"/") {
			continue
		}
		lines = append(lines, it.Slug+"\t"+it.Title)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return toolError(err, id), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, link)
	if err != nil {
		return toolError(err, link), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getGraphStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError(err, ""), nil
	}
	return jsonResult(st), nil
}

func (s *Server) readDiagnosticsResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	diags, err := s.svc.Diagnostics(ctx, "")
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(diags, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      diagnosticsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readLinkRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      linkRulesURI,
			MIMEType: "text/markdown",
			Text:     LinkRules,
		},
	}, nil
}
