package services

import (
	"github.com/samber/lo"

	"github.com/rental-insight/listings-backend/internal/entities"
)

// UnknownCountPolicy controls what happens when a filter constrains a
// bed/bath/parking count the listing does not report. Scraped sources drop
// these fields often enough that rejecting on absence would starve most
// filters, so the default lets unknown values through.
type UnknownCountPolicy int

const (
	UnknownPasses UnknownCountPolicy = iota
	UnknownRejects
)

type Matcher struct {
	unknownCounts UnknownCountPolicy
}

type MatcherOption func(*Matcher)

func WithUnknownCounts(policy UnknownCountPolicy) MatcherOption {
	return func(m *Matcher) {
		m.unknownCounts = policy
	}
}

func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{unknownCounts: UnknownPasses}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Matches reports whether a listing satisfies every constrained dimension of
// a filter. Unset filter dimensions impose no requirement, so an empty
// filter matches everything. Furnished and pets are hard requirements: when
// the filter sets one, the listing has to report the exact same value.
func (m *Matcher) Matches(listing entities.Listing, filter entities.UserFilter) bool {

	params := listing.Parameters

	// price is mandatory on the listing side: no parameters record means no
	// price, which fails any price bound
	if filter.MinPrice != nil && (params == nil || params.Price < *filter.MinPrice) {
		return false
	}
	if filter.MaxPrice != nil && (params == nil || params.Price > *filter.MaxPrice) {
		return false
	}

	if filter.MoveInDate != nil && params != nil && params.Availability != nil &&
		params.Availability.Before(*filter.MoveInDate) {
		return false
	}

	var numBeds, numBaths, parking *int
	var furnished, pets *bool
	if params != nil {
		numBeds, numBaths, parking = params.NumBeds, params.NumBaths, params.Parking
		furnished, pets = params.Furnished, params.Pets
	}

	if !m.countMatches(filter.NumBedsAsArray(), numBeds) {
		return false
	}
	if !m.countMatches(filter.NumBathsAsArray(), numBaths) {
		return false
	}
	if !m.countMatches(filter.NumParkingAsArray(), parking) {
		return false
	}

	if !amenityMatches(filter.Furnished, furnished) {
		return false
	}
	if !amenityMatches(filter.Pets, pets) {
		return false
	}

	return true
}

// SelectMatches returns the listings satisfying the filter, preserving input
// order.
func (m *Matcher) SelectMatches(listings []entities.Listing, filter entities.UserFilter) []entities.Listing {

	var matched []entities.Listing
	for _, listing := range listings {
		if m.Matches(listing, filter) {
			matched = append(matched, listing)
		}
	}
	return matched
}

func (m *Matcher) countMatches(accepted []int, value *int) bool {
	if len(accepted) == 0 {
		return true
	}
	if value == nil {
		return m.unknownCounts == UnknownPasses
	}
	return lo.Contains(accepted, *value)
}

func amenityMatches(required *bool, value *bool) bool {
	if required == nil {
		return true
	}
	return value != nil && *value == *required
}
