package api

import (
	"net/http"
)

// handleSendNewsletter runs a dispatch cycle synchronously. Partial delivery
// failures are reported in the result body, not as an error status.
func (s *Server) handleSendNewsletter(w http.ResponseWriter, r *http.Request) {

	result, err := s.dispatcher.Dispatch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
