package services

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rental-insight/listings-backend/internal/entities"
	"github.com/rental-insight/listings-backend/internal/events"
)

type listingUpserter interface {
	UpsertByHash(ctx context.Context, listing entities.Listing) (*entities.Listing, bool, error)
}

type ListingInput struct {
	Title      string          `json:"title"`
	Link       string          `json:"link"`
	PubDate    time.Time       `json:"pub_date"`
	Parameters ParametersInput `json:"parameters"`
}

type ParametersInput struct {
	Price        int        `json:"price"`
	Availability *time.Time `json:"availability"`
	NumBeds      *int       `json:"num_beds"`
	NumBaths     *int       `json:"num_baths"`
	Parking      *int       `json:"parking"`
	Furnished    *bool      `json:"furnished"`
	Pets         *bool      `json:"pets"`
}

// IngestService accepts listing uploads from the scraper. Listings are
// deduplicated by the hash of their source link, so a feed can be replayed
// safely.
type IngestService struct {
	bus      EventBus.Bus
	listings listingUpserter
}

func NewIngestService(bus EventBus.Bus, listings listingUpserter) *IngestService {
	return &IngestService{bus: bus, listings: listings}
}

// BulkAdd upserts every input listing and returns the IDs of the ones that
// were newly created. A ListingsIngested event is published when at least
// one listing is new.
func (s *IngestService) BulkAdd(ctx context.Context, inputs []ListingInput) ([]uint, error) {

	createdIDs := []uint{}

	for _, input := range inputs {
		if input.Link == "" || input.Title == "" {
			return nil, errors.New("listing title and link are required")
		}

		listing := entities.Listing{
			Hash:    entities.ListingHash(input.Link),
			Title:   input.Title,
			Link:    input.Link,
			PubDate: input.PubDate,
			Parameters: &entities.ListingParameters{
				Price:        input.Parameters.Price,
				Availability: input.Parameters.Availability,
				NumBeds:      input.Parameters.NumBeds,
				NumBaths:     input.Parameters.NumBaths,
				Parking:      input.Parameters.Parking,
				Furnished:    input.Parameters.Furnished,
				Pets:         input.Parameters.Pets,
			},
		}

		stored, created, err := s.listings.UpsertByHash(ctx, listing)
		if err != nil {
			return nil, errors.Wrap(err, "failed to upsert listing")
		}
		if created {
			createdIDs = append(createdIDs, stored.ID)
		}
	}

	log.Infof("ingested %v listings, %v new", len(inputs), len(createdIDs))

	if len(createdIDs) > 0 {
		s.bus.Publish(events.ListingsIngestedTopic, events.ListingsIngested{ListingIDs: createdIDs})
	}

	return createdIDs, nil
}
