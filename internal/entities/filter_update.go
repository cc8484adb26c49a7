package entities

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rental-insight/listings-backend/internal/apperrors"
)

var filterValidator = validator.New()

// FilterUpdate is the client payload for creating or changing a user's
// filter. Nil fields are left untouched; an empty slice clears a numeric-set
// constraint. Bed/bath/parking counts outside 0..4 are rejected here, before
// anything is written.
type FilterUpdate struct {
	MinPrice         *int              `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice         *int              `json:"max_price" validate:"omitempty,gte=0,lte=5000"`
	MoveInDate       *time.Time        `json:"move_in_date"`
	NumBeds          []int             `json:"num_beds" validate:"omitempty,dive,gte=0,lte=4"`
	NumBaths         []int             `json:"num_baths" validate:"omitempty,dive,gte=0,lte=4"`
	NumParking       []int             `json:"num_parking" validate:"omitempty,dive,gte=0,lte=4"`
	Furnished        *bool             `json:"furnished"`
	Pets             *bool             `json:"pets"`
	GenderPreference *GenderPreference `json:"gender_preference" validate:"omitempty,oneof=male female any"`
	LengthOfStay     *LengthOfStay     `json:"length_of_stay" validate:"omitempty,oneof=4 8 12 any"`
}

func (u FilterUpdate) Validate() error {
	err := filterValidator.Struct(u)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := map[string]string{}
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on '" + fieldErr.Tag() + "' constraint"
	}
	return &apperrors.ValidationError{Fields: fields}
}

// ApplyTo copies the set fields of the update onto a filter record.
func (u FilterUpdate) ApplyTo(filter *UserFilter) {
	if u.MinPrice != nil {
		filter.MinPrice = u.MinPrice
	}
	if u.MaxPrice != nil {
		filter.MaxPrice = u.MaxPrice
	}
	if u.MoveInDate != nil {
		filter.MoveInDate = u.MoveInDate
	}
	if u.NumBeds != nil {
		filter.NumBeds = JoinCounts(u.NumBeds)
	}
	if u.NumBaths != nil {
		filter.NumBaths = JoinCounts(u.NumBaths)
	}
	if u.NumParking != nil {
		filter.NumParking = JoinCounts(u.NumParking)
	}
	if u.Furnished != nil {
		filter.Furnished = u.Furnished
	}
	if u.Pets != nil {
		filter.Pets = u.Pets
	}
	if u.GenderPreference != nil {
		filter.GenderPreference = *u.GenderPreference
	}
	if u.LengthOfStay != nil {
		filter.LengthOfStay = *u.LengthOfStay
	}
}
