package repositories

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type userByExternalIDGetter interface {
	GetByExternalID(ctx context.Context, externalID string) (*entities.User, error)
}

// CachedUsers caches user lookups by external identity. It sits on the
// authentication hot path, where every request resolves a token subject to a
// user row.
type CachedUsers struct {
	repo  userByExternalIDGetter
	cache *gocache.Cache
}

func NewCachedUsers(repo userByExternalIDGetter) *CachedUsers {
	return &CachedUsers{repo: repo, cache: gocache.New(time.Minute, 5*time.Minute)}
}

func (c *CachedUsers) GetByExternalID(ctx context.Context, externalID string) (*entities.User, error) {
	if value, found := c.cache.Get(externalID); found {
		return value.(*entities.User), nil
	}

	// Set, not Add: two requests can miss the cache at the same time and
	// the second fill must not turn into an error
	user, err := c.repo.GetByExternalID(ctx, externalID)
	if user != nil {
		c.cache.Set(externalID, user, gocache.DefaultExpiration)
	}

	return user, err
}

// Invalidate drops a cached entry after the user record changes.
func (c *CachedUsers) Invalidate(externalID string) {
	c.cache.Delete(externalID)
}
