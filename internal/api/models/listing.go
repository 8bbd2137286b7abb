// internal/api/models/listing.go
package models

import (
	"time"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

// Listing is the JSON view of a known listing, with the parsed city added.
type Listing struct {
	domain.Listing
	City string `json:"city,omitempty"`
}

func NewListings(in []domain.Listing) []Listing {
	out := make([]Listing, 0, len(in))
	for _, l := range in {
		city, _ := l.City()
		out = append(out, Listing{Listing: l, City: city})
	}
	return out
}

type ListingsResponse struct {
	Listings []Listing `json:"listings"`
}

type Status struct {
	Running         bool       `json:"running"`
	CycleInFlight   bool       `json:"cycle_in_flight"`
	LastCheck       *time.Time `json:"last_check"`
	ListingCount    int        `json:"listing_count"`
	NewSinceStart   int        `json:"new_since_start"`
	KnownCount      int        `json:"known_count"`
	IntervalMinutes int        `json:"interval_minutes"`
}

type LogsResponse struct {
	Logs []string `json:"logs"`
}

type CitiesResponse struct {
	Cities []string `json:"cities"`
}

type Message struct {
	Message string `json:"message"`
}

type Error struct {
	Error string `json:"error"`
}
