// Package throttle decides, per message type, whether a decoded record is
// published now or dropped as redundant.
//
// Throttling is time-based, not count-based: each type is admitted at most
// once per publish interval, independently of every other type. Skipped
// samples are discarded, never queued, so the admitted value is always the
// most recently decoded one.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Scheduler gates decoded records by message type.
type Scheduler interface {
	// Admit returns true iff a record of typeTag may be published at now.
	// Admission atomically records now as the new last-accepted time.
	// force bypasses the interval check unconditionally and still updates
	// the timestamp.
	Admit(ctx context.Context, typeTag string, now time.Time, force bool) (bool, error)

	Close() error
}

// MemoryScheduler keeps last-accepted times in process memory.
// It is the default backend; the map lives for the process lifetime and
// admit-and-record is atomic under the mutex.
type MemoryScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

// NewMemoryScheduler creates an in-memory scheduler with the given
// publish interval.
func NewMemoryScheduler(interval time.Duration) *MemoryScheduler {
	return &MemoryScheduler{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Admit implements Scheduler.
func (s *MemoryScheduler) Admit(_ context.Context, typeTag string, now time.Time, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force {
		if last, ok := s.last[typeTag]; ok && now.Sub(last) < s.interval {
			return false, nil
		}
	}

	s.last[typeTag] = now
	return true, nil
}

// Close implements Scheduler.
func (s *MemoryScheduler) Close() error {
	return nil
}
