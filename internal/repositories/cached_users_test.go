package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type countingUserGetter struct {
	user  *entities.User
	calls int
}

func (g *countingUserGetter) GetByExternalID(_ context.Context, _ string) (*entities.User, error) {
	g.calls++
	return g.user, nil
}

func Test_CachedGetByExternalID_ShouldOnlyHitRepoOnce(t *testing.T) {

	getter := &countingUserGetter{user: &entities.User{ID: 1, ExternalID: "ext-1"}}
	cached := NewCachedUsers(getter)

	for i := 0; i < 3; i++ {
		user, err := cached.GetByExternalID(context.Background(), "ext-1")
		assert.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
	}

	assert.Equal(t, 1, getter.calls)
}

func Test_CachedGetByExternalID_WhenUserIsMissing_ShouldNotCacheMiss(t *testing.T) {

	getter := &countingUserGetter{}
	cached := NewCachedUsers(getter)

	user, err := cached.GetByExternalID(context.Background(), "ext-1")
	assert.NoError(t, err)
	assert.Nil(t, user)

	getter.user = &entities.User{ID: 1, ExternalID: "ext-1"}

	user, err = cached.GetByExternalID(context.Background(), "ext-1")
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, 2, getter.calls)
}

type blockingUserGetter struct {
	user    *entities.User
	entered chan struct{}
	release chan struct{}
}

func (g *blockingUserGetter) GetByExternalID(_ context.Context, _ string) (*entities.User, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.user, nil
}

func Test_CachedGetByExternalID_WhenLookupsRace_ShouldNotFail(t *testing.T) {

	getter := &blockingUserGetter{
		user:    &entities.User{ID: 1, ExternalID: "ext-1"},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	cached := NewCachedUsers(getter)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := cached.GetByExternalID(context.Background(), "ext-1")
			results <- err
		}()
	}

	// both lookups miss the cache before either can fill it
	<-getter.entered
	<-getter.entered
	close(getter.release)

	assert.NoError(t, <-results)
	assert.NoError(t, <-results)
}

func Test_Invalidate_ShouldForceRepoLookup(t *testing.T) {

	getter := &countingUserGetter{user: &entities.User{ID: 1, ExternalID: "ext-1"}}
	cached := NewCachedUsers(getter)

	_, err := cached.GetByExternalID(context.Background(), "ext-1")
	assert.NoError(t, err)

	cached.Invalidate("ext-1")

	_, err = cached.GetByExternalID(context.Background(), "ext-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, getter.calls)
}
