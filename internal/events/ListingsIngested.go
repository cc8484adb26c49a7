package events

var ListingsIngestedTopic = "ListingsIngestedEvent"

type ListingsIngested struct {
	ListingIDs []uint
}
