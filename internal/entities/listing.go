package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Listing is a rental advertisement pulled in by an external ingestion job.
// Identity is the sha256 of the source link, so re-ingesting the same
// advertisement never creates a duplicate row.
type Listing struct {
	ID         uint   `gorm:"primaryKey"`
	Hash       string `gorm:"uniqueIndex"`
	Title      string
	Link       string
	PubDate    time.Time
	Sent       bool `gorm:"default:false;index"`
	Parameters *ListingParameters
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListingParameters holds the searchable attributes of a listing. Price is
// always present; everything else depends on what the source exposed.
type ListingParameters struct {
	ID           uint `gorm:"primaryKey"`
	ListingID    uint `gorm:"uniqueIndex"`
	Price        int
	Availability *time.Time
	NumBeds      *int
	NumBaths     *int
	Parking      *int
	Furnished    *bool
	Pets         *bool
}

func ListingHash(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])
}
