package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/rental-insight/listings-backend/internal/clients/ses"
	"github.com/rental-insight/listings-backend/internal/entities"
	"github.com/rental-insight/listings-backend/internal/logger"
)

type userResponse struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Subscribed bool   `json:"subscribed"`
	Verified   bool   `json:"verified"`
}

func newUserResponse(user *entities.User) userResponse {
	return userResponse{
		Email:      user.Email,
		Role:       string(user.Role),
		Subscribed: user.Subscribed,
		Verified:   user.Verified,
	}
}

type verificationEmailData struct {
	VerificationLink string `json:"verificationLink"`
}

// handleSyncUser creates or refreshes the local record for the authenticated
// identity. New users get a verification email; a failed send does not fail
// the sync, verification can be re-requested later.
func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request) {

	id := identityFrom(r.Context())

	email := id.Email
	if email == "" {
		// some identity providers omit the email claim; accept it in the body
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		email = body.Email
	}
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "email is required"})
		return
	}

	user, created, err := s.userStore.UpsertByExternalID(r.Context(), id.Subject, email)
	if err != nil {
		writeError(w, err)
		return
	}
	s.users.Invalidate(id.Subject)

	if created {
		s.sendVerificationEmail(r, user)
		writeJSON(w, http.StatusCreated, newUserResponse(user))
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) sendVerificationEmail(r *http.Request, user *entities.User) {

	token, err := s.userStore.CreateVerificationToken(r.Context(), user.ID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to create verification token for %s: %v", user.Email, err)
		return
	}

	data := verificationEmailData{
		VerificationLink: fmt.Sprintf("%s/verify-email?token=%s", s.appURL, token),
	}
	if err = s.email.SendTemplated(r.Context(), user.Email, ses.TemplateEmailVerification, data); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmailApi).
			Errorf("failed to send verification email to %s: %v", user.Email, err)
	}
}

func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {

	user := userFrom(r.Context())
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not synced"})
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {

	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "token is required"})
		return
	}

	user, err := s.userStore.GetByUnsubscribeToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown token"})
		return
	}

	if err = s.userStore.SetSubscribed(r.Context(), user.ID, false); err != nil {
		writeError(w, err)
		return
	}
	s.users.Invalidate(user.ExternalID)

	writeJSON(w, http.StatusOK, map[string]any{"message": "unsubscribed"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {

	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "token is required"})
		return
	}

	user, err := s.userStore.GetByVerificationToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown or expired token"})
		return
	}

	if err = s.userStore.MarkVerified(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}
	s.users.Invalidate(user.ExternalID)

	writeJSON(w, http.StatusOK, map[string]any{"message": "email verified"})
}
