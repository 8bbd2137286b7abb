// internal/services/scraping/scraper_service.go
package scraping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/internal/notifier"
	"github.com/ps-vitor/crous-notifier/internal/platform/metrics"
	"github.com/ps-vitor/crous-notifier/internal/repositories"
	"github.com/ps-vitor/crous-notifier/internal/services/runstate"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// Phase is a step of the check cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseSeed       Phase = "seed"
	PhaseDiffing    Phase = "diffing"
	PhaseNotifying  Phase = "notifying"
	PhasePersisting Phase = "persisting"
	PhaseFailed     Phase = "failed"
)

// Fetcher returns the full filtered result set of one crawl.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]domain.Listing, error)
}

// Notifier delivers one listing to the user.
type Notifier interface {
	Send(ctx context.Context, listing domain.Listing) (notifier.Delivery, error)
}

// CycleReport summarises one CheckAndNotify call. Phase is the last phase
// the cycle reached.
type CycleReport struct {
	ID             string
	Phase          Phase
	Fetched        int
	Known          int
	New            []string
	Notified       int
	NotifyFailures int
	Duration       time.Duration
}

type ScraperService struct {
	fetcher  Fetcher
	repo     repositories.ListingRepository
	notifier Notifier
	state    *runstate.RunState
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewScraperService(
	fetcher Fetcher,
	repo repositories.ListingRepository,
	n Notifier,
	state *runstate.RunState,
	m *metrics.Metrics,
	log *logger.Logger,
) *ScraperService {
	return &ScraperService{
		fetcher:  fetcher,
		repo:     repo,
		notifier: n,
		state:    state,
		metrics:  m,
		log:      log.Named("pipeline"),
		now:      time.Now,
	}
}

// CheckAndNotify runs one full cycle. The caller's cancellation is ignored
// so that a stop request never cuts a cycle in half.
func (s *ScraperService) CheckAndNotify(ctx context.Context) (report CycleReport, err error) {
	ctx = context.WithoutCancel(ctx)
	started := s.now()
	report = CycleReport{ID: uuid.NewString(), Phase: PhaseFetching}
	log := s.log.With(zap.String("cycle_id", report.ID))

	defer func() {
		report.Duration = s.now().Sub(started)
		s.metrics.CyclesTotal.WithLabelValues(string(report.Phase)).Inc()
		s.metrics.CycleDuration.Observe(report.Duration.Seconds())
	}()

	log.Info("Checking for new accommodations")
	current, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		report.Phase = PhaseFailed
		log.Error("Scrape failed", zap.Error(err))
		return report, err
	}
	known, err := s.repo.LoadKnownIDs(ctx)
	if err != nil {
		report.Phase = PhaseFailed
		log.Error("Could not load known listings", zap.Error(err))
		return report, fmt.Errorf("load known listings: %w", err)
	}

	currentIDs := domain.IDs(current)
	report.Fetched = len(currentIDs)
	report.Known = len(known)
	s.state.RecordCheck(started, len(currentIDs))
	s.metrics.ListingsFetched.Set(float64(len(currentIDs)))
	s.metrics.KnownListings.Set(float64(len(known)))
	log.Info("Listings found", zap.Int("count", len(currentIDs)), zap.Int("known", len(known)))

	if len(known) == 0 {
		report.Phase = PhaseSeed
		log.Info("First run, recording current listings without notifying", zap.Int("count", len(currentIDs)))
		return report, s.persist(ctx, log, currentIDs, current)
	}

	report.Phase = PhaseDiffing
	fresh := newListings(current, known)
	if len(fresh) == 0 {
		log.Info("No new accommodations")
		return report, nil
	}

	report.Phase = PhaseNotifying
	log.Info("New accommodations detected", zap.Int("count", len(fresh)))
	s.metrics.NewListingsTotal.Add(float64(len(fresh)))
	s.state.AddNew(len(fresh))
	for _, l := range fresh {
		report.New = append(report.New, l.ID)
		delivery, err := s.notifyOne(ctx, l)
		s.metrics.NotificationsTotal.WithLabelValues(string(delivery.Mode)).Inc()
		if err != nil {
			report.NotifyFailures++
			log.Error("Notification failed", zap.String("listing_id", l.ID), zap.Error(err))
			continue
		}
		report.Notified++
		if delivery.Fallback() {
			log.Warn("Photo delivery failed, sent as text",
				zap.String("listing_id", l.ID), zap.NamedError("rich_error", delivery.RichErr))
		}
		log.Info("Notified", zap.String("listing_id", l.ID), zap.String("name", l.Name), zap.String("mode", string(delivery.Mode)))
	}

	report.Phase = PhasePersisting
	return report, s.persist(ctx, log, union(known, currentIDs), current)
}

// notifyOne isolates a single delivery: a panic in a channel becomes an error
// for that listing only.
func (s *ScraperService) notifyOne(ctx context.Context, l domain.Listing) (delivery notifier.Delivery, err error) {
	defer func() {
		if r := recover(); r != nil {
			delivery = notifier.Delivery{Mode: notifier.DeliveryNone}
			err = fmt.Errorf("panic while notifying %s: %v", l.ID, r)
		}
	}()
	return s.notifier.Send(ctx, l)
}

func (s *ScraperService) persist(ctx context.Context, log *logger.Logger, knownIDs []string, current []domain.Listing) error {
	if err := s.repo.Save(ctx, knownIDs, current); err != nil {
		s.metrics.PersistFailuresTotal.Inc()
		var perr *domain.PersistError
		if errors.As(err, &perr) {
			log.Error("Could not write state", zap.String("path", perr.Path), zap.String("op", perr.Op), zap.Error(perr.Err))
		} else {
			log.Error("Could not write state", zap.Error(err))
		}
		return err
	}
	return nil
}

// newListings keeps the order of appearance and drops repeated IDs.
func newListings(current []domain.Listing, known map[string]struct{}) []domain.Listing {
	seen := make(map[string]struct{}, len(current))
	var out []domain.Listing
	for _, l := range current {
		if _, ok := known[l.ID]; ok {
			continue
		}
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

func union(known map[string]struct{}, current []string) []string {
	out := make([]string, 0, len(known)+len(current))
	for id := range known {
		out = append(out, id)
	}
	for _, id := range current {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
