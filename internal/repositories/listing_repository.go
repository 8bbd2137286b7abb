// internal/repositories/listing_repository.go
package repositories

import (
	"context"
	"errors"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

// ErrListingNotFound is returned by Delete for an unknown ID.
var ErrListingNotFound = errors.New("listing not found")

// ListingRepository persists the Known-Set. Entries are only added by Save and
// only removed through Delete.
type ListingRepository interface {
	LoadKnownIDs(ctx context.Context) (map[string]struct{}, error)
	LoadListings(ctx context.Context) ([]domain.Listing, error)
	Save(ctx context.Context, knownIDs []string, current []domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// Mirror keeps a remote copy of the state document. Both calls are best-effort.
type Mirror interface {
	Pull(ctx context.Context) ([]byte, error)
	Push(ctx context.Context, payload []byte) error
}
