package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type filterResponse struct {
	MinPrice         *int       `json:"min_price"`
	MaxPrice         *int       `json:"max_price"`
	MoveInDate       *time.Time `json:"move_in_date"`
	NumBeds          []int      `json:"num_beds"`
	NumBaths         []int      `json:"num_baths"`
	NumParking       []int      `json:"num_parking"`
	Furnished        *bool      `json:"furnished"`
	Pets             *bool      `json:"pets"`
	GenderPreference string     `json:"gender_preference,omitempty"`
	LengthOfStay     string     `json:"length_of_stay,omitempty"`
}

func newFilterResponse(filter *entities.UserFilter) filterResponse {
	return filterResponse{
		MinPrice:         filter.MinPrice,
		MaxPrice:         filter.MaxPrice,
		MoveInDate:       filter.MoveInDate,
		NumBeds:          filter.NumBedsAsArray(),
		NumBaths:         filter.NumBathsAsArray(),
		NumParking:       filter.NumParkingAsArray(),
		Furnished:        filter.Furnished,
		Pets:             filter.Pets,
		GenderPreference: string(filter.GenderPreference),
		LengthOfStay:     string(filter.LengthOfStay),
	}
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {

	user := userFrom(r.Context())
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not synced"})
		return
	}
	if user.Filter == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no filter configured"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"filter": newFilterResponse(user.Filter)})
}

func (s *Server) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {

	user := userFrom(r.Context())
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not synced"})
		return
	}

	var body struct {
		Filter entities.FilterUpdate `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if err := body.Filter.Validate(); err != nil {
		writeError(w, err)
		return
	}

	filter, err := s.userStore.UpsertFilter(r.Context(), user.ID, body.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	s.users.Invalidate(user.ExternalID)

	writeJSON(w, http.StatusOK, map[string]any{"filter": newFilterResponse(filter)})
}
