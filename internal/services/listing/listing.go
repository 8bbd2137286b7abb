package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/internal/repositories"
)

// ErrCitiesUnavailable is returned when no city source is configured.
var ErrCitiesUnavailable = errors.New("city listing unavailable")

// CityLister crawls the site for the cities currently offered.
type CityLister interface {
	Cities(ctx context.Context) ([]string, error)
}

// Service is the read and admin side of the Known-Set.
type Service struct {
	repo   repositories.ListingRepository
	cities CityLister
}

func NewService(repo repositories.ListingRepository, cities CityLister) *Service {
	return &Service{repo: repo, cities: cities}
}

// FindAll returns every known listing, most recently seen first.
func (s *Service) FindAll(ctx context.Context) ([]domain.Listing, error) {
	return s.repo.LoadListings(ctx)
}

func (s *Service) KnownCount(ctx context.Context) (int, error) {
	ids, err := s.repo.LoadKnownIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Forget removes a listing so it is reported again the next time it shows up.
func (s *Service) Forget(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("forget: %w", repositories.ErrListingNotFound)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Cities(ctx context.Context) ([]string, error) {
	if s.cities == nil {
		return nil, ErrCitiesUnavailable
	}
	return s.cities.Cities(ctx)
}
