package api

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rental-insight/listings-backend/internal/apperrors"
	"github.com/rental-insight/listings-backend/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttp).
			Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}

	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": authErr.Reason})
		return
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}

	log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttp).
		Errorf("request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}
