package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/rental-insight/listings-backend/internal/clients/ses"
	"github.com/rental-insight/listings-backend/internal/entities"
	"github.com/rental-insight/listings-backend/internal/events"
	"github.com/rental-insight/listings-backend/internal/logger"
	"github.com/rental-insight/listings-backend/internal/metrics"
)

type listingRepository interface {
	FindUnsent(ctx context.Context) ([]entities.Listing, error)
	MarkSent(ctx context.Context, ids []uint) error
}

type userRepository interface {
	FindSubscribedWithFilter(ctx context.Context) ([]entities.User, error)
}

type emailGateway interface {
	SendTemplated(ctx context.Context, to string, template string, data any) error
}

// SendError records one recipient whose email could not be delivered during
// a dispatch run.
type SendError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type DispatchResult struct {
	TotalListings  int         `json:"total_listings"`
	SentCount      int         `json:"sent_count"`
	UsersProcessed int         `json:"users_processed"`
	Errors         []SendError `json:"errors"`
}

// NewsletterDispatcher matches unsent listings against every subscriber's
// filter and emails the matches. Users are processed in fixed-size batches
// with one goroutine per user inside a batch, which bounds the concurrent
// outbound email calls.
type NewsletterDispatcher struct {
	bus              EventBus.Bus
	listings         listingRepository
	users            userRepository
	email            emailGateway
	matcher          *Matcher
	appURL           string
	batchSize        int
	dispatchInterval time.Duration
	wake             chan struct{}
	dispatchMu       sync.Mutex
}

func NewNewsletterDispatcher(bus EventBus.Bus, listingRepo listingRepository, userRepo userRepository,
	email emailGateway, matcher *Matcher, appURL string, batchSize int,
	dispatchInterval time.Duration) (*NewsletterDispatcher, error) {

	if batchSize <= 0 {
		return nil, errors.New("batch size must be greater than zero")
	}

	d := &NewsletterDispatcher{
		bus:              bus,
		listings:         listingRepo,
		users:            userRepo,
		email:            email,
		matcher:          matcher,
		appURL:           appURL,
		batchSize:        batchSize,
		dispatchInterval: dispatchInterval,
		wake:             make(chan struct{}, 1),
	}

	err := bus.Subscribe(events.ListingsIngestedTopic, d.onListingsIngestedEvent)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Run dispatches on the configured interval. A ListingsIngested event wakes
// the loop early so fresh listings don't wait out a full interval.
func (d *NewsletterDispatcher) Run(ctx context.Context) {
	for {
		startTime := time.Now()
		log.Infof("running newsletter dispatch at %v", startTime)

		result, err := d.Dispatch(ctx)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("newsletter dispatch failed: %v", err)
		} else {
			log.Infof("dispatch handled %v listings for %v users, %v failed sends",
				result.TotalListings, result.UsersProcessed, len(result.Errors))
		}

		executionTime := time.Since(startTime)
		metrics.DispatchDuration.Observe(executionTime.Seconds())

		sleepTime := d.dispatchInterval - executionTime
		if sleepTime < 0 {
			sleepTime = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			log.Info("new listings ingested, dispatching early")
		case <-time.After(sleepTime):
		}
	}
}

// Dispatch performs one full matching-and-notification pass. Store read
// failures abort the run; individual email failures are collected in the
// result and never do.
func (d *NewsletterDispatcher) Dispatch(ctx context.Context) (*DispatchResult, error) {

	// the interval loop and the admin endpoint share this dispatcher;
	// overlapping runs would both read the same unsent set before either
	// marks it and broadcast every listing twice
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	candidates, err := d.listings.FindUnsent(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch unsent listings")
	}

	result := &DispatchResult{TotalListings: len(candidates), Errors: []SendError{}}
	if len(candidates) == 0 {
		log.Info("no unsent listings, nothing to dispatch")
		return result, nil
	}

	users, err := d.users.FindSubscribedWithFilter(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch users with filters")
	}
	if len(users) == 0 {
		log.Info("no subscribed users with filters, nothing to dispatch")
		return result, nil
	}

	// a listing can match many users; sentIDs deduplicates across the whole
	// run and is the only state shared between the send goroutines
	sentIDs := make(map[uint]struct{})
	var mu sync.Mutex

	for start := 0; start < len(users); start += d.batchSize {
		end := start + d.batchSize
		if end > len(users) {
			end = len(users)
		}

		var wg sync.WaitGroup
		for _, user := range users[start:end] {
			wg.Add(1)
			go func(user entities.User) {
				defer wg.Done()
				d.dispatchToUser(ctx, user, candidates, sentIDs, &mu, result)
			}(user)
		}
		wg.Wait()
	}

	result.UsersProcessed = len(users)
	result.SentCount = len(sentIDs)

	if err = d.listings.MarkSent(ctx, lo.Keys(sentIDs)); err != nil {
		return result, errors.Wrap(err, "failed to mark listings as sent")
	}

	d.bus.Publish(events.NewsletterSentTopic, events.NewsletterSent{
		TotalListings:  result.TotalListings,
		SentCount:      result.SentCount,
		UsersProcessed: result.UsersProcessed,
		FailedSends:    len(result.Errors),
	})

	return result, nil
}

func (d *NewsletterDispatcher) dispatchToUser(ctx context.Context, user entities.User,
	candidates []entities.Listing, sentIDs map[uint]struct{}, mu *sync.Mutex, result *DispatchResult) {

	if user.Filter == nil {
		return
	}

	start := time.Now()
	matched := d.matcher.SelectMatches(candidates, *user.Filter)
	metrics.DispatchStepDuration.WithLabelValues("matching").Observe(time.Since(start).Seconds())

	if len(matched) == 0 {
		return
	}
	metrics.MatchedListingsCounter.Add(float64(len(matched)))

	start = time.Now()
	err := d.email.SendTemplated(ctx, user.Email, ses.TemplateRentalListings,
		newListingsEmailData(matched, d.appURL, user.UnsubscribeToken))
	metrics.DispatchStepDuration.WithLabelValues("email_send").Observe(time.Since(start).Seconds())

	mu.Lock()
	defer mu.Unlock()

	// a listing counts as sent once it was part of an attempted dispatch,
	// even when this recipient's delivery failed: a later run must not
	// broadcast it again
	for _, listing := range matched {
		sentIDs[listing.ID] = struct{}{}
	}

	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmailApi).
			Errorf("failed to send newsletter to %v: %v", user.Email, err)
		metrics.EmailSendFailuresCounter.Inc()
		result.Errors = append(result.Errors, SendError{Email: user.Email, Error: err.Error()})
		return
	}
	metrics.EmailsSentCounter.Inc()
}

func (d *NewsletterDispatcher) onListingsIngestedEvent(event events.ListingsIngested) {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

type listingEmailItem struct {
	Title string `json:"title"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

type listingsEmailData struct {
	Listings       []listingEmailItem `json:"listings"`
	UnsubscribeURL string             `json:"unsubscribeUrl"`
}

func newListingsEmailData(listings []entities.Listing, appURL, unsubscribeToken string) listingsEmailData {

	items := lo.Map(listings, func(listing entities.Listing, _ int) listingEmailItem {
		item := listingEmailItem{Title: listing.Title, URL: listing.Link}
		if listing.Parameters != nil {
			item.Price = fmt.Sprintf("$%d/month", listing.Parameters.Price)
		}
		return item
	})

	return listingsEmailData{
		Listings:       items,
		UnsubscribeURL: fmt.Sprintf("%s/unsubscribe?token=%s", appURL, unsubscribeToken),
	}
}
