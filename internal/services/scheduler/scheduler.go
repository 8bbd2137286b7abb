// internal/services/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/services/runstate"
	"github.com/ps-vitor/crous-notifier/internal/services/scraping"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
)

// Checker runs one check cycle.
type Checker interface {
	CheckAndNotify(ctx context.Context) (scraping.CycleReport, error)
}

// Scheduler runs the checker periodically. At most one cycle is in flight at
// any time, whether it was started by the ticker or by CheckNow.
type Scheduler struct {
	checker Checker
	state   *runstate.RunState
	log     *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(checker Checker, state *runstate.RunState, log *logger.Logger) *Scheduler {
	return &Scheduler{checker: checker, state: state, log: log.Named("scheduler")}
}

// Run blocks: one cycle immediately, then one per interval until ctx is done.
// A cycle that has started always runs to completion.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	s.log.Info("Scheduler started", zap.Duration("interval", interval))
	defer s.log.Info("Scheduler stopped")

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.runOnce(ctx)
		}
	}
}

// Start launches Run in the background.
func (s *Scheduler) Start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.state.SetRunning(true)

	go func() {
		defer close(done)
		s.Run(ctx, interval)
	}()
	return nil
}

// Stop prevents any further scheduled cycle. A cycle already in flight finishes.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return ErrNotRunning
	}
	s.cancel()
	s.cancel = nil
	s.state.SetRunning(false)
	return nil
}

// CheckNow starts an out-of-band cycle on its own goroutine. It returns false
// when a cycle is already in flight.
func (s *Scheduler) CheckNow() bool {
	if !s.state.TryBeginCycle() {
		s.log.Info("Check already in progress, skipping")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.EndCycle()
		s.check(context.Background())
	}()
	return true
}

// Wait blocks until the background loop and any out-of-band cycle have returned.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.state.TryBeginCycle() {
		s.log.Info("Check already in progress, skipping")
		return
	}
	defer s.state.EndCycle()
	s.check(ctx)
}

func (s *Scheduler) check(ctx context.Context) {
	report, err := s.checker.CheckAndNotify(ctx)
	if err != nil {
		s.log.Warn("Cycle ended with error",
			zap.String("cycle_id", report.ID), zap.String("phase", string(report.Phase)), zap.Error(err))
		return
	}
	s.log.Debug("Cycle done",
		zap.String("cycle_id", report.ID),
		zap.String("phase", string(report.Phase)),
		zap.Int("new", len(report.New)),
		zap.Duration("took", report.Duration),
	)
}
