package viewport

import (
	"sync"
	"time"
)

// TimerScheduler runs callbacks on time.AfterFunc timers while holding
// Locker, so they never run concurrently with the input events guarded by
// the same lock.
type TimerScheduler struct {
	Locker sync.Locker

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.timer = time.AfterFunc(delay, func() {
		if s.Locker != nil {
			s.Locker.Lock()
			defer s.Locker.Unlock()
		}
		fn()
	})
}

// Stop cancels the scheduled callback and drops later ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
