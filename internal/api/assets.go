package api

import (
	"errors"
	"net/http"
	"os"
)

// AssetResolver maps a vault-relative path to a file that may be served.
type AssetResolver interface {
	AssetPath(rel string) (string, error)
}

// AssetHandler serves vault files, such as images embedded with ![[...]].
type AssetHandler struct {
	assets AssetResolver
}

// NewAssetHandler creates a handler backed by the vault.
func NewAssetHandler(assets AssetResolver) *AssetHandler {
	return &AssetHandler{assets: assets}
}

// ServeFile handles GET /api/assets/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := noteID(r)
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	abs, err := h.assets.AssetPath(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, abs)
}
