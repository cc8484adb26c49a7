package api

import (
	"encoding/json"
	"net/http"

	"github.com/rental-insight/listings-backend/internal/services"
)

func (s *Server) handleBulkAddListings(w http.ResponseWriter, r *http.Request) {

	var body struct {
		Listings []services.ListingInput `json:"listings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}
	if len(body.Listings) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "listings are required"})
		return
	}

	created, err := s.ingest.BulkAdd(r.Context(), body.Listings)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"listings": created})
}
