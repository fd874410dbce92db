package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/geocode"
)

// LocationHandler proxies place autocomplete so the upstream key stays on
// the server.
type LocationHandler struct {
	lookup geocode.Lookup
	log    *logrus.Logger
}

// NewLocationHandler creates a handler. lookup may be nil when no upstream
// is configured, in which case every request fails.
func NewLocationHandler(lookup geocode.Lookup, log *logrus.Logger) *LocationHandler {
	return &LocationHandler{lookup: lookup, log: log}
}

// Autocomplete returns location suggestions for the q parameter.
func (h *LocationHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		h.log.Error("Autocomplete requested but no location API key is configured")
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}

	locations, err := h.lookup.Autocomplete(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.log.WithError(err).Error("Autocomplete lookup failed")
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}
