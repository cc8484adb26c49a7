package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type Listings struct {
	db *gorm.DB
}

func NewListingsRepository(db *gorm.DB) *Listings {
	return &Listings{db: db}
}

// FindUnsent returns every listing that has not yet been included in a
// newsletter dispatch, oldest publication first.
func (repo *Listings) FindUnsent(ctx context.Context) ([]entities.Listing, error) {

	var listings []entities.Listing
	err := repo.db.WithContext(ctx).
		Preload("Parameters").
		Where("sent = ?", false).
		Order("pub_date").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (repo *Listings) MarkSent(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	return repo.db.WithContext(ctx).
		Model(&entities.Listing{}).
		Where("id IN ?", ids).
		Update("sent", true).Error
}

// UpsertByHash creates the listing when its hash is unseen, otherwise
// refreshes the stored fields. The second return value reports whether a new
// row was created.
func (repo *Listings) UpsertByHash(ctx context.Context, listing entities.Listing) (*entities.Listing, bool, error) {

	var existing entities.Listing
	err := repo.db.WithContext(ctx).
		Preload("Parameters").
		First(&existing, "hash = ?", listing.Hash).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err = repo.db.WithContext(ctx).Create(&listing).Error; err != nil {
			return nil, false, err
		}
		return &listing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	updates := map[string]any{
		"title":    listing.Title,
		"link":     listing.Link,
		"pub_date": listing.PubDate,
	}
	if err = repo.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return nil, false, err
	}

	if listing.Parameters != nil {
		params := *listing.Parameters
		params.ListingID = existing.ID
		if existing.Parameters != nil {
			params.ID = existing.Parameters.ID
		}
		if err = repo.db.WithContext(ctx).Save(&params).Error; err != nil {
			return nil, false, err
		}
		existing.Parameters = &params
	}

	return &existing, false, nil
}

func (repo *Listings) RemoveOldSent(ctx context.Context, before time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).
		Where("sent = ? AND updated_at < ?", true, before).
		Delete(&entities.Listing{})
	return res.RowsAffected, res.Error
}
