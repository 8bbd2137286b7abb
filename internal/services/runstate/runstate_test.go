package runstate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func fixedNow() time.Time { return time.Date(2024, 9, 1, 14, 3, 9, 0, time.UTC) }

func TestRunState_LogRingNewestFirst(t *testing.T) {
	s := New(3)
	s.now = fixedNow

	for i := 1; i <= 5; i++ {
		s.Log(fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, []string{"[14:03:09] line 5", "[14:03:09] line 4", "[14:03:09] line 3"}, s.Logs())
}

func TestRunState_Hook(t *testing.T) {
	s := New(10)

	require.NoError(t, s.Hook(zapcore.Entry{Level: zapcore.DebugLevel, Time: fixedNow(), Message: "noise"}))
	require.NoError(t, s.Hook(zapcore.Entry{Level: zapcore.InfoLevel, Time: fixedNow(), Message: "checking"}))
	require.NoError(t, s.Hook(zapcore.Entry{Level: zapcore.ErrorLevel, Time: fixedNow(), Message: "scrape failed"}))

	assert.Equal(t, []string{"[14:03:09] ERROR: scrape failed", "[14:03:09] checking"}, s.Logs())
}

func TestRunState_Counters(t *testing.T) {
	s := New(0)

	assert.Nil(t, s.Snapshot().LastCheck)

	s.SetRunning(true)
	s.AddNew(2)
	s.RecordCheck(fixedNow(), 40)
	snap := s.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, 2, snap.NewSinceStart)
	assert.Equal(t, 40, snap.ListingCount)
	require.NotNil(t, snap.LastCheck)
	assert.Equal(t, fixedNow(), *snap.LastCheck)

	s.SetRunning(false)
	s.SetRunning(true)
	assert.Zero(t, s.Snapshot().NewSinceStart, "restarting resets the counter")
}

func TestRunState_SingleCycleInFlight(t *testing.T) {
	s := New(0)
	require.True(t, s.TryBeginCycle())
	assert.False(t, s.TryBeginCycle())
	assert.True(t, s.Snapshot().CycleInFlight)
	s.EndCycle()
	assert.True(t, s.TryBeginCycle())
}

func TestRunState_ConcurrentAccess(t *testing.T) {
	s := New(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Log("x")
				s.AddNew(1)
				_ = s.Logs()
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Logs(), 50)
	assert.Equal(t, 800, s.Snapshot().NewSinceStart)
}
