package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/crous-notifier/internal/services/runstate"
	"github.com/ps-vitor/crous-notifier/internal/services/scraping"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

type countingChecker struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func newCountingChecker(blocking bool) *countingChecker {
	c := &countingChecker{started: make(chan struct{}, 16)}
	if blocking {
		c.release = make(chan struct{})
	}
	return c
}

func (c *countingChecker) CheckAndNotify(context.Context) (scraping.CycleReport, error) {
	c.calls.Add(1)
	select {
	case c.started <- struct{}{}:
	default:
	}
	if c.release != nil {
		<-c.release
	}
	return scraping.CycleReport{Phase: scraping.PhaseDiffing}, nil
}

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	checker := newCountingChecker(false)
	state := runstate.New(0)
	s := New(checker, state, logger.Nop())

	require.NoError(t, s.Start(10*time.Millisecond))
	assert.True(t, state.Snapshot().Running)
	assert.ErrorIs(t, s.Start(time.Second), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	s.Wait()
	assert.False(t, state.Snapshot().Running)

	calls := checker.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, checker.calls.Load(), "no cycle after stop")
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

func TestScheduler_StopLetsInFlightCycleFinish(t *testing.T) {
	checker := newCountingChecker(true)
	state := runstate.New(0)
	s := New(checker, state, logger.Nop())

	require.NoError(t, s.Start(time.Hour))
	<-checker.started
	assert.True(t, state.Snapshot().CycleInFlight)

	require.NoError(t, s.Stop())
	assert.True(t, state.Snapshot().CycleInFlight)

	close(checker.release)
	s.Wait()
	assert.False(t, state.Snapshot().CycleInFlight)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestScheduler_CheckNowSkipsWhenInFlight(t *testing.T) {
	checker := newCountingChecker(true)
	state := runstate.New(0)
	s := New(checker, state, logger.Nop())

	require.True(t, s.CheckNow())
	<-checker.started
	assert.False(t, s.CheckNow())

	close(checker.release)
	s.Wait()
	assert.Equal(t, int32(1), checker.calls.Load())
	assert.True(t, s.CheckNow())
	<-checker.started
	s.Wait()
	assert.Equal(t, int32(2), checker.calls.Load())
}

func TestScheduler_RunReturnsWhenContextDone(t *testing.T) {
	checker := newCountingChecker(false)
	s := New(checker, runstate.New(0), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()
	<-checker.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
