// Package api exposes the HTTP surface: user sync and filter management for
// authenticated clients plus admin endpoints for ingesting listings and
// triggering newsletter dispatch.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rental-insight/listings-backend/internal/clients/identity"
	"github.com/rental-insight/listings-backend/internal/entities"
	"github.com/rental-insight/listings-backend/internal/services"
)

type identityVerifier interface {
	Verify(ctx context.Context, rawToken string) (identity.Identity, error)
}

type userReader interface {
	GetByExternalID(ctx context.Context, externalID string) (*entities.User, error)
	Invalidate(externalID string)
}

type userStore interface {
	UpsertByExternalID(ctx context.Context, externalID, email string) (*entities.User, bool, error)
	UpsertFilter(ctx context.Context, userID uint, update entities.FilterUpdate) (*entities.UserFilter, error)
	GetByUnsubscribeToken(ctx context.Context, token string) (*entities.User, error)
	SetSubscribed(ctx context.Context, userID uint, subscribed bool) error
	CreateVerificationToken(ctx context.Context, userID uint) (string, error)
	GetByVerificationToken(ctx context.Context, token string) (*entities.User, error)
	MarkVerified(ctx context.Context, userID uint) error
}

type listingIngester interface {
	BulkAdd(ctx context.Context, inputs []services.ListingInput) ([]uint, error)
}

type newsletterDispatcher interface {
	Dispatch(ctx context.Context) (*services.DispatchResult, error)
}

type emailSender interface {
	SendTemplated(ctx context.Context, to string, template string, data any) error
}

type Server struct {
	httpServer *http.Server
	verifier   identityVerifier
	users      userReader
	userStore  userStore
	ingest     listingIngester
	dispatcher newsletterDispatcher
	email      emailSender
	appURL     string
}

func NewServer(address, appURL string, verifier identityVerifier, users userReader,
	userStore userStore, ingest listingIngester, dispatcher newsletterDispatcher,
	email emailSender) *Server {

	s := &Server{
		verifier:   verifier,
		users:      users,
		userStore:  userStore,
		ingest:     ingest,
		dispatcher: dispatcher,
		email:      email,
		appURL:     appURL,
	}

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/unsubscribe", s.handleUnsubscribe)
	r.Post("/auth/verify-email", s.handleVerifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/users/sync", s.handleSyncUser)
		r.Get("/users/me", s.handleGetCurrentUser)
		r.Get("/users/me/filter", s.handleGetFilter)
		r.Put("/users/me/filter", s.handleUpdateFilter)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Post("/listings/bulk", s.handleBulkAddListings)
			r.Post("/admin/newsletter", s.handleSendNewsletter)
		})
	})

	return r
}

func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
