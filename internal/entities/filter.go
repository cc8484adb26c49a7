package entities

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type GenderPreference string

const (
	GenderMale   GenderPreference = "male"
	GenderFemale GenderPreference = "female"
	GenderAny    GenderPreference = "any"
)

type LengthOfStay string

const (
	StayFourMonths   LengthOfStay = "4"
	StayEightMonths  LengthOfStay = "8"
	StayTwelveMonths LengthOfStay = "12"
	StayAny          LengthOfStay = "any"
)

// UserFilter is a user's saved search. Every constraint is optional: an
// unset field means "no requirement on this dimension". The numeric-set
// fields are stored comma-joined; use the accessors to read them.
type UserFilter struct {
	ID               uint `gorm:"primaryKey"`
	UserID           uint `gorm:"uniqueIndex"`
	MinPrice         *int
	MaxPrice         *int
	MoveInDate       *time.Time
	NumBeds          string
	NumBaths         string
	NumParking       string
	Furnished        *bool
	Pets             *bool
	GenderPreference GenderPreference
	LengthOfStay     LengthOfStay
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (f UserFilter) NumBedsAsArray() []int {
	return countsAsArray(f.NumBeds)
}

func (f UserFilter) NumBathsAsArray() []int {
	return countsAsArray(f.NumBaths)
}

func (f UserFilter) NumParkingAsArray() []int {
	return countsAsArray(f.NumParking)
}

func JoinCounts(counts []int) string {
	asStr := lo.Map(counts, func(item int, _ int) string {
		return strconv.Itoa(item)
	})
	return strings.Join(asStr, ",")
}

func countsAsArray(joined string) []int {
	if joined == "" {
		return nil
	}

	return lo.FilterMap(strings.Split(joined, ","), func(item string, _ int) (int, bool) {
		count, err := strconv.Atoi(item)
		return count, err == nil
	})
}
