// internal/services/runstate/runstate.go
package runstate

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultLogCapacity bounds the in-memory log ring.
const DefaultLogCapacity = 100

// Snapshot is a consistent copy of the run state.
type Snapshot struct {
	Running       bool       `json:"running"`
	CycleInFlight bool       `json:"cycle_in_flight"`
	LastCheck     *time.Time `json:"last_check"`
	ListingCount  int        `json:"listing_count"`
	NewSinceStart int        `json:"new_since_start"`
}

// RunState is shared between the pipeline and the control surface.
// Every field, the log ring included, is guarded by mu.
type RunState struct {
	mu sync.Mutex

	running       bool
	inFlight      bool
	lastCheck     time.Time
	listingCount  int
	newSinceStart int

	logs  []string
	next  int
	count int
	now   func() time.Time
}

func New(logCapacity int) *RunState {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	return &RunState{logs: make([]string, logCapacity), now: time.Now}
}

// SetRunning flips the scheduler flag. Starting resets the new-listing counter.
func (s *RunState) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if running && !s.running {
		s.newSinceStart = 0
	}
	s.running = running
}

// TryBeginCycle marks a cycle in flight. It returns false if one already is.
func (s *RunState) TryBeginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *RunState) EndCycle() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// RecordCheck stores the time and size of the last successful fetch.
func (s *RunState) RecordCheck(at time.Time, listingCount int) {
	s.mu.Lock()
	s.lastCheck = at
	s.listingCount = listingCount
	s.mu.Unlock()
}

func (s *RunState) AddNew(n int) {
	s.mu.Lock()
	s.newSinceStart += n
	s.mu.Unlock()
}

func (s *RunState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Running:       s.running,
		CycleInFlight: s.inFlight,
		ListingCount:  s.listingCount,
		NewSinceStart: s.newSinceStart,
	}
	if !s.lastCheck.IsZero() {
		t := s.lastCheck
		snap.LastCheck = &t
	}
	return snap
}

// Log appends a timestamped line to the ring, evicting the oldest when full.
func (s *RunState) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), msg))
}

// Logs returns the buffered lines, newest first.
func (s *RunState) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.count)
	for i := 1; i <= s.count; i++ {
		out = append(out, s.logs[(s.next-i+len(s.logs))%len(s.logs)])
	}
	return out
}

// Hook feeds zap entries at info level and above into the ring.
func (s *RunState) Hook(e zapcore.Entry) error {
	if e.Level < zapcore.InfoLevel {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
	if e.Level >= zapcore.WarnLevel {
		line = fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Level.CapitalString(), e.Message)
	}
	s.append(line)
	return nil
}

func (s *RunState) append(line string) {
	s.logs[s.next] = line
	s.next = (s.next + 1) % len(s.logs)
	if s.count < len(s.logs) {
		s.count++
	}
}
