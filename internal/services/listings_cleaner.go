package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type ListingCleanupRepository interface {
	RemoveOldSent(ctx context.Context, before time.Time) (int64, error)
}

// ListingsCleaner removes already-dispatched listings once they are old
// enough that no newsletter will reference them again.
type ListingsCleaner struct {
	listings         ListingCleanupRepository
	cron             *cron.Cron
	expirationInDays int
}

func NewListingsCleaner(listings ListingCleanupRepository, expirationInDays int) (*ListingsCleaner, error) {

	if expirationInDays <= 0 {
		return nil, errors.New("expiration in days must be greater than zero")
	}

	lc := &ListingsCleaner{
		listings:         listings,
		cron:             cron.New(),
		expirationInDays: expirationInDays,
	}

	_, err := lc.cron.AddFunc("0 0 * * *", lc.cleanOldListings)
	if err != nil {
		return nil, err
	}

	lc.cron.Start()
	log.Infof("listings cleaner started, expiration in days: %d", lc.expirationInDays)
	return lc, nil
}

func (lc *ListingsCleaner) Stop() {
	lc.cron.Stop()
}

func (lc *ListingsCleaner) cleanOldListings() {
	before := time.Now().Add(-time.Duration(lc.expirationInDays) * 24 * time.Hour)
	rowsAffected, err := lc.listings.RemoveOldSent(context.Background(), before)
	if err != nil {
		log.Errorf("Failed to clean old listings: %v", err)
	} else {
		log.Infof("Old sent listings were cleaned at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
