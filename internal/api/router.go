package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultgraph/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
// assets, if non-nil, serves vault files such as embedded images at GET /assets/*.
func NewRouter(svc *noteservice.Service, sseHandler http.Handler, assets AssetResolver) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)
	r.Get("/backlinks/*", h.Backlinks)

	// Graph and sidebar.
	r.Get("/graph", h.Graph)
	r.Get("/tree", h.Tree)
	r.Get("/resolve", h.Resolve)
	r.Get("/diagnostics", h.Diagnostics)
	r.Get("/stats", h.Stats)

	// Search.
	r.Get("/search", h.Search)

	if assets != nil {
		r.Get("/assets/*", NewAssetHandler(assets).ServeFile)
	}

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
