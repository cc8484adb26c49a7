package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rental-insight/listings-backend/internal/entities"
	"github.com/rental-insight/listings-backend/internal/events"
	"github.com/rental-insight/listings-backend/internal/repositories"
)

type mockListings struct {
	mock.Mock
}

func (m *mockListings) FindUnsent(ctx context.Context) ([]entities.Listing, error) {
	args := m.Called(ctx)
	listings, _ := args.Get(0).([]entities.Listing)
	return listings, args.Error(1)
}

func (m *mockListings) MarkSent(ctx context.Context, ids []uint) error {
	return m.Called(ctx, ids).Error(0)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindSubscribedWithFilter(ctx context.Context) ([]entities.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]entities.User)
	return users, args.Error(1)
}

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) SendTemplated(ctx context.Context, to string, template string, data any) error {
	return m.Called(ctx, to, template, data).Error(0)
}

func newTestDispatcher(t *testing.T, listings *mockListings, users *mockUsers,
	email *mockEmail) *NewsletterDispatcher {

	dispatcher, err := NewNewsletterDispatcher(EventBus.New(), listings, users, email,
		NewMatcher(), "https://app.test", 2, time.Hour)
	assert.NoError(t, err)
	return dispatcher
}

func testListings() []entities.Listing {
	return []entities.Listing{
		{ID: 1, Title: "Downtown studio", Link: "https://listings.test/1",
			Parameters: &entities.ListingParameters{Price: 1500}},
		{ID: 2, Title: "Penthouse", Link: "https://listings.test/2",
			Parameters: &entities.ListingParameters{Price: 4000}},
		{ID: 3, Title: "Shared room", Link: "https://listings.test/3",
			Parameters: &entities.ListingParameters{Price: 800}},
	}
}

func userWithMaxPrice(id uint, email string, maxPrice int) entities.User {
	return entities.User{
		ID:               id,
		Email:            email,
		UnsubscribeToken: "token",
		Filter:           &entities.UserFilter{MaxPrice: lo.ToPtr(maxPrice)},
	}
}

func Test_NewNewsletterDispatcher_WhenBatchSizeIsZero_ShouldFail(t *testing.T) {
	_, err := NewNewsletterDispatcher(EventBus.New(), &mockListings{}, &mockUsers{},
		&mockEmail{}, NewMatcher(), "https://app.test", 0, time.Hour)
	assert.Error(t, err)
}

func Test_Dispatch_WhenNoUnsentListings_ShouldDoNothing(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return([]entities.Listing{}, nil)
	users := &mockUsers{}
	email := &mockEmail{}

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.TotalListings)
	assert.Equal(t, 0, result.SentCount)
	users.AssertNotCalled(t, "FindSubscribedWithFilter", mock.Anything)
	email.AssertNotCalled(t, "SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_Dispatch_ShouldEmailMatchesAndMarkThemSent(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings(), nil)
	listings.On("MarkSent", mock.Anything, mock.MatchedBy(func(ids []uint) bool {
		return len(ids) == 3
	})).Return(nil)

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "cheap@test.com", 1000),
		userWithMaxPrice(2, "any@test.com", 5000),
	}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, result.TotalListings)
	assert.Equal(t, 3, result.SentCount)
	assert.Equal(t, 2, result.UsersProcessed)
	assert.Empty(t, result.Errors)
	email.AssertNumberOfCalls(t, "SendTemplated", 2)
	listings.AssertCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func Test_Dispatch_WhenListingMatchesManyUsers_ShouldCountItOnce(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings()[:1], nil)
	listings.On("MarkSent", mock.Anything, []uint{1}).Return(nil)

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "a@test.com", 2000),
		userWithMaxPrice(2, "b@test.com", 2000),
		userWithMaxPrice(3, "c@test.com", 2000),
	}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 3, result.UsersProcessed)
	email.AssertNumberOfCalls(t, "SendTemplated", 3)
}

func Test_Dispatch_WhenSomeSendsFail_ShouldStillMarkListingsSent(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings(), nil)
	listings.On("MarkSent", mock.Anything, mock.MatchedBy(func(ids []uint) bool {
		return len(ids) == 3
	})).Return(nil)

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "ok@test.com", 5000),
		userWithMaxPrice(2, "bounce@test.com", 5000),
		userWithMaxPrice(3, "bounce2@test.com", 5000),
	}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, "ok@test.com", mock.Anything, mock.Anything).Return(nil)
	email.On("SendTemplated", mock.Anything, "bounce@test.com", mock.Anything, mock.Anything).
		Return(errors.New("mailbox full"))
	email.On("SendTemplated", mock.Anything, "bounce2@test.com", mock.Anything, mock.Anything).
		Return(errors.New("mailbox full"))

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, result.SentCount)
	assert.Len(t, result.Errors, 2)
	listings.AssertCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func Test_Dispatch_WhenNoFiltersMatch_ShouldNotEmailAnyone(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings(), nil)
	listings.On("MarkSent", mock.Anything, mock.Anything).Return(nil)

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "picky@test.com", 100),
	}, nil)

	email := &mockEmail{}

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.SentCount)
	email.AssertNotCalled(t, "SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_Dispatch_WhenListingStoreFails_ShouldReturnError(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(nil, errors.New("db is down"))

	dispatcher := newTestDispatcher(t, listings, &mockUsers{}, &mockEmail{})
	_, err := dispatcher.Dispatch(context.Background())

	assert.Error(t, err)
}

func Test_Dispatch_WhenMarkSentFails_ShouldReturnResultAndError(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings()[:1], nil)
	listings.On("MarkSent", mock.Anything, mock.Anything).Return(errors.New("db is down"))

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "a@test.com", 2000),
	}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := newTestDispatcher(t, listings, users, email)
	result, err := dispatcher.Dispatch(context.Background())

	assert.Error(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, result.SentCount)
}

func Test_Dispatch_ShouldPublishNewsletterSentEvent(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings()[:1], nil)
	listings.On("MarkSent", mock.Anything, mock.Anything).Return(nil)

	users := &mockUsers{}
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{
		userWithMaxPrice(1, "a@test.com", 2000),
	}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	bus := EventBus.New()
	var published *events.NewsletterSent
	err := bus.Subscribe(events.NewsletterSentTopic, func(event events.NewsletterSent) {
		published = &event
	})
	assert.NoError(t, err)

	dispatcher, err := NewNewsletterDispatcher(bus, listings, users, email,
		NewMatcher(), "https://app.test", 2, time.Hour)
	assert.NoError(t, err)

	_, err = dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	assert.NotNil(t, published)
	assert.Equal(t, 1, published.SentCount)
	assert.Equal(t, 1, published.UsersProcessed)
}

// newStoreBackedDispatcher seeds a real sqlite store with one listing and
// one verified user whose filter matches it.
func newStoreBackedDispatcher(t *testing.T, email *mockEmail) *NewsletterDispatcher {

	dbContext, err := repositories.NewDbContext(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	assert.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })

	listingRepo := repositories.NewListingsRepository(dbContext.DB)
	userRepo := repositories.NewUsersRepository(dbContext.DB)
	ctx := context.Background()

	_, _, err = listingRepo.UpsertByHash(ctx, entities.Listing{
		Hash:       entities.ListingHash("https://listings.test/1"),
		Title:      "Downtown studio",
		Link:       "https://listings.test/1",
		PubDate:    time.Now().UTC(),
		Parameters: &entities.ListingParameters{Price: 1500},
	})
	assert.NoError(t, err)

	user, _, err := userRepo.UpsertByExternalID(ctx, "ext-1", "user@test.com")
	assert.NoError(t, err)
	_, err = userRepo.UpsertFilter(ctx, user.ID, entities.FilterUpdate{MaxPrice: lo.ToPtr(2000)})
	assert.NoError(t, err)
	assert.NoError(t, userRepo.MarkVerified(ctx, user.ID))

	dispatcher, err := NewNewsletterDispatcher(EventBus.New(), listingRepo, userRepo, email,
		NewMatcher(), "https://app.test", 2, time.Hour)
	assert.NoError(t, err)
	return dispatcher
}

func Test_Dispatch_WhenRunTwiceWithoutNewListings_ShouldNotResend(t *testing.T) {

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := newStoreBackedDispatcher(t, email)
	ctx := context.Background()

	first, err := dispatcher.Dispatch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.SentCount)

	second, err := dispatcher.Dispatch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.TotalListings)
	email.AssertNumberOfCalls(t, "SendTemplated", 1)
}

func Test_Dispatch_WhenEnteredConcurrently_ShouldNotSendTwice(t *testing.T) {

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(200 * time.Millisecond) }).
		Return(nil)

	dispatcher := newStoreBackedDispatcher(t, email)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dispatcher.Dispatch(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	email.AssertNumberOfCalls(t, "SendTemplated", 1)
}

func Test_Dispatch_ShouldIncludeUnsubscribeLinkInEmailData(t *testing.T) {

	listings := &mockListings{}
	listings.On("FindUnsent", mock.Anything).Return(testListings()[:1], nil)
	listings.On("MarkSent", mock.Anything, mock.Anything).Return(nil)

	users := &mockUsers{}
	user := userWithMaxPrice(1, "a@test.com", 2000)
	user.UnsubscribeToken = "secret-token"
	users.On("FindSubscribedWithFilter", mock.Anything).Return([]entities.User{user}, nil)

	email := &mockEmail{}
	email.On("SendTemplated", mock.Anything, "a@test.com", mock.Anything,
		mock.MatchedBy(func(data listingsEmailData) bool {
			return data.UnsubscribeURL == "https://app.test/unsubscribe?token=secret-token" &&
				len(data.Listings) == 1 && data.Listings[0].Price == "$1500/month"
		})).Return(nil)

	dispatcher := newTestDispatcher(t, listings, users, email)
	_, err := dispatcher.Dispatch(context.Background())

	assert.NoError(t, err)
	email.AssertExpectations(t)
}
