package services

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/rental-insight/listings-backend/internal/entities"
)

func listingWithParams(params *entities.ListingParameters) entities.Listing {
	return entities.Listing{
		ID:         1,
		Title:      "Cozy 2BR near campus",
		Link:       "https://listings.test/1",
		Parameters: params,
	}
}

func Test_Matches_WhenFilterIsEmpty_ShouldMatchAnyListing(t *testing.T) {
	matcher := NewMatcher()

	assert.True(t, matcher.Matches(listingWithParams(nil), entities.UserFilter{}))
	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Price: 1800}), entities.UserFilter{}))
}

func Test_Matches_WhenPriceIsAboveMax_ShouldReject(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{MaxPrice: lo.ToPtr(2000)}

	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Price: 2000}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Price: 2001}), filter))
}

func Test_Matches_WhenPriceIsBelowMin_ShouldReject(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{MinPrice: lo.ToPtr(1000)}

	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Price: 1000}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Price: 999}), filter))
}

func Test_Matches_WhenPriceBoundSetAndListingHasNoParameters_ShouldReject(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{MaxPrice: lo.ToPtr(2000)}

	assert.False(t, matcher.Matches(listingWithParams(nil), filter))
}

func Test_Matches_WhenAvailabilityIsBeforeMoveInDate_ShouldReject(t *testing.T) {
	matcher := NewMatcher()
	moveIn := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	filter := entities.UserFilter{MoveInDate: &moveIn}

	early := listingWithParams(&entities.ListingParameters{
		Availability: lo.ToPtr(moveIn.AddDate(0, -1, 0)),
	})
	onTime := listingWithParams(&entities.ListingParameters{
		Availability: lo.ToPtr(moveIn),
	})
	unknown := listingWithParams(&entities.ListingParameters{})

	assert.False(t, matcher.Matches(early, filter))
	assert.True(t, matcher.Matches(onTime, filter))
	assert.True(t, matcher.Matches(unknown, filter))
}

func Test_Matches_WhenBedCountIsOutsideAcceptedSet_ShouldReject(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{NumBeds: entities.JoinCounts([]int{2, 3})}

	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{NumBeds: lo.ToPtr(2)}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{NumBeds: lo.ToPtr(1)}), filter))
}

func Test_Matches_WhenBedCountIsUnknown_ShouldFollowPolicy(t *testing.T) {
	filter := entities.UserFilter{NumBeds: entities.JoinCounts([]int{2, 3})}
	listing := listingWithParams(&entities.ListingParameters{})

	assert.True(t, NewMatcher().Matches(listing, filter))
	assert.True(t, NewMatcher(WithUnknownCounts(UnknownPasses)).Matches(listing, filter))
	assert.False(t, NewMatcher(WithUnknownCounts(UnknownRejects)).Matches(listing, filter))
}

func Test_Matches_WhenFurnishedIsRequired_ShouldRequireExactValue(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{Furnished: lo.ToPtr(true)}

	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Furnished: lo.ToPtr(true)}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Furnished: lo.ToPtr(false)}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{}), filter))
}

func Test_Matches_WhenPetsNotAllowed_ShouldRequireExactValue(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{Pets: lo.ToPtr(false)}

	assert.True(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Pets: lo.ToPtr(false)}), filter))
	assert.False(t, matcher.Matches(listingWithParams(&entities.ListingParameters{Pets: lo.ToPtr(true)}), filter))
}

func Test_Matches_WithCombinedConstraints(t *testing.T) {
	matcher := NewMatcher()

	listing := listingWithParams(&entities.ListingParameters{
		Price:        1500,
		NumBeds:      lo.ToPtr(2),
		NumBaths:     lo.ToPtr(1),
		Furnished:    lo.ToPtr(true),
		Pets:         lo.ToPtr(false),
		Availability: lo.ToPtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})

	matching := entities.UserFilter{
		MaxPrice:  lo.ToPtr(2000),
		NumBeds:   entities.JoinCounts([]int{2}),
		Furnished: lo.ToPtr(true),
	}
	tooCheap := entities.UserFilter{MaxPrice: lo.ToPtr(1000)}

	assert.True(t, matcher.Matches(listing, matching))
	assert.False(t, matcher.Matches(listing, tooCheap))
}

func Test_SelectMatches_ShouldPreserveInputOrder(t *testing.T) {
	matcher := NewMatcher()
	filter := entities.UserFilter{MaxPrice: lo.ToPtr(2000)}

	listings := []entities.Listing{
		{ID: 1, Parameters: &entities.ListingParameters{Price: 1500}},
		{ID: 2, Parameters: &entities.ListingParameters{Price: 2500}},
		{ID: 3, Parameters: &entities.ListingParameters{Price: 1000}},
		{ID: 4, Parameters: &entities.ListingParameters{Price: 1900}},
	}

	matched := matcher.SelectMatches(listings, filter)

	ids := lo.Map(matched, func(l entities.Listing, _ int) uint { return l.ID })
	assert.Equal(t, []uint{1, 3, 4}, ids)
}
