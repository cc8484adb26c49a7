package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/rental-insight/listings-backend/internal/api"
	"github.com/rental-insight/listings-backend/internal/clients/identity"
	"github.com/rental-insight/listings-backend/internal/clients/ses"
	"github.com/rental-insight/listings-backend/internal/config"
	"github.com/rental-insight/listings-backend/internal/events"
	"github.com/rental-insight/listings-backend/internal/logger"
	"github.com/rental-insight/listings-backend/internal/metrics"
	"github.com/rental-insight/listings-backend/internal/repositories"
	"github.com/rental-insight/listings-backend/internal/services"
)

func runDispatcher(ctx context.Context, cfg *config.Config, bus EventBus.Bus,
	listings *repositories.Listings, users *repositories.Users, email *ses.Client) *services.NewsletterDispatcher {

	matcher := services.NewMatcher()

	dispatcher, err := services.NewNewsletterDispatcher(bus, listings, users, email, matcher,
		cfg.Server.AppURL, cfg.Newsletter.BatchSize, cfg.Newsletter.DispatchInterval)
	if err != nil {
		log.Fatalf("can't create newsletter dispatcher: %v", err)
	}
	go dispatcher.Run(ctx)

	return dispatcher
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Server.MetricsAddress)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	listings := repositories.NewListingsRepository(dbContext.DB)
	users := repositories.NewUsersRepository(dbContext.DB)
	cachedUsers := repositories.NewCachedUsers(users)

	email, err := ses.NewClient(cfg.Email.Region, cfg.Email.Sender)
	if err != nil {
		log.Fatalf("can't create email client: %v", err)
	}
	email.SetRateLimit(cfg.Email.MaxSendsPerSecond)

	if err = email.EnsureTemplates(ctx); err != nil {
		log.Fatalf("can't ensure email templates: %v", err)
	}

	verifier, err := identity.NewVerifier(ctx, cfg.Auth.JwksURL, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		log.Fatalf("can't create identity verifier: %v", err)
	}

	bus := EventBus.New()

	err = bus.Subscribe(events.NewsletterSentTopic, func(event events.NewsletterSent) {
		log.Infof("newsletter sent: %d listings, %d users, %d failed sends",
			event.SentCount, event.UsersProcessed, event.FailedSends)
	})
	if err != nil {
		log.Fatalf("can't subscribe to newsletter events: %v", err)
	}

	cleaner, err := services.NewListingsCleaner(listings, cfg.Newsletter.ListingExpirationDays)
	if err != nil {
		log.Fatalf("can't create listings cleaner: %v", err)
	}
	defer cleaner.Stop()

	ingest := services.NewIngestService(bus, listings)
	dispatcher := runDispatcher(ctx, cfg, bus, listings, users, email)

	server := api.NewServer(cfg.Server.Address, cfg.Server.AppURL, verifier, cachedUsers,
		users, ingest, dispatcher, email)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server failed: %v", err)
		}
	}()
	log.Infof("http server listening on %s", cfg.Server.Address)

	<-ctx.Done()

	log.Info("Shutting down services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}

	log.Info("Services stopped.")
}
