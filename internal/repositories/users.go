package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type Users struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) *Users {
	return &Users{db: db}
}

// UpsertByExternalID syncs a user from the identity provider. A new user gets
// an unsubscribe token minted; an existing one only has its email refreshed.
// The second return value reports whether the user was created.
func (repo *Users) UpsertByExternalID(ctx context.Context, externalID, email string) (*entities.User, bool, error) {

	var user entities.User
	err := repo.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		token, err := newToken()
		if err != nil {
			return nil, false, err
		}
		user = entities.User{
			ExternalID:       externalID,
			Email:            email,
			Role:             entities.RoleUser,
			Subscribed:       true,
			UnsubscribeToken: token,
		}
		if err = repo.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if email != "" && email != user.Email {
		if err = repo.db.WithContext(ctx).Model(&user).Update("email", email).Error; err != nil {
			return nil, false, err
		}
	}

	return &user, false, nil
}

func (repo *Users) GetByExternalID(ctx context.Context, externalID string) (*entities.User, error) {

	var user entities.User
	err := repo.db.WithContext(ctx).Preload("Filter").First(&user, "external_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindSubscribedWithFilter returns every verified, subscribed user that has a
// filter set up. These are the newsletter recipients.
func (repo *Users) FindSubscribedWithFilter(ctx context.Context) ([]entities.User, error) {

	var users []entities.User
	err := repo.db.WithContext(ctx).
		Preload("Filter").
		Joins("JOIN user_filters ON user_filters.user_id = users.id").
		Where("users.subscribed = ? AND users.verified = ?", true, true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpsertFilter applies a filter update, creating the user's filter record on
// first write. A user has at most one filter.
func (repo *Users) UpsertFilter(ctx context.Context, userID uint, update entities.FilterUpdate) (*entities.UserFilter, error) {

	var filter entities.UserFilter
	err := repo.db.WithContext(ctx).First(&filter, "user_id = ?", userID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		filter = entities.UserFilter{UserID: userID}
		update.ApplyTo(&filter)
		if err = repo.db.WithContext(ctx).Create(&filter).Error; err != nil {
			return nil, err
		}
		return &filter, nil
	}
	if err != nil {
		return nil, err
	}

	update.ApplyTo(&filter)
	if err = repo.db.WithContext(ctx).Save(&filter).Error; err != nil {
		return nil, err
	}
	return &filter, nil
}

func (repo *Users) GetByUnsubscribeToken(ctx context.Context, token string) (*entities.User, error) {

	var user entities.User
	err := repo.db.WithContext(ctx).First(&user, "unsubscribe_token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (repo *Users) SetSubscribed(ctx context.Context, userID uint, subscribed bool) error {
	return repo.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Update("subscribed", subscribed).Error
}

// CreateVerificationToken mints and stores a fresh email-verification token
// valid for 24 hours.
func (repo *Users) CreateVerificationToken(ctx context.Context, userID uint) (string, error) {

	token, err := newToken()
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(24 * time.Hour)
	err = repo.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"verification_token":         token,
			"verification_token_expires": expires,
		}).Error
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetByVerificationToken only matches tokens that have not expired yet.
func (repo *Users) GetByVerificationToken(ctx context.Context, token string) (*entities.User, error) {

	var user entities.User
	err := repo.db.WithContext(ctx).
		Where("verification_token = ? AND verification_token_expires > ?", token, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (repo *Users) MarkVerified(ctx context.Context, userID uint) error {
	return repo.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"verified":                   true,
			"verification_token":         nil,
			"verification_token_expires": nil,
		}).Error
}

func newToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "failed to generate token")
	}
	return hex.EncodeToString(raw), nil
}
