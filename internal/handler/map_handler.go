package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evyataryagoni/geoflipper/internal/tiles"
)

// MapHandler exposes the map tile layer to the UI
type MapHandler struct {
	provider tiles.TileMapProvider
}

// NewMapHandler creates a new map handler
func NewMapHandler(provider tiles.TileMapProvider) *MapHandler {
	return &MapHandler{provider: provider}
}

// Config handles GET /v1/map/config
func (h *MapHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.provider.Config())
}

// Tile handles GET /v1/map/tiles/{z}/{x}/{y} by redirecting to the imagery server
func (h *MapHandler) Tile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "Tile coordinates must be integers")
		return
	}

	url, ok := h.provider.TileURL(z, x, y)
	if !ok {
		respondError(w, http.StatusNotFound, "Tile not found")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
