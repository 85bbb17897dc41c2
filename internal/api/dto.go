package api

import (
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/search"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps the note listing.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results" validate:"required"`
}

// GraphResponse is the node/edge list consumed by the graph view.
type GraphResponse = models.Graph

// BacklinksResponse lists the notes linking to a note.
type BacklinksResponse struct {
	Slug      string   `json:"slug" example:"arts" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// DiagnosticsResponse wraps the diagnostics of the current snapshot.
type DiagnosticsResponse struct {
	Diagnostics []models.Diagnostic `json:"diagnostics" validate:"required"`
}
