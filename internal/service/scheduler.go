package service

import (
	"log"
	"sync"
	"time"
)

// Scheduler is the engine's only dependency on time-based triggering:
// "run this every N" and "run this once, no earlier than now+delay".
type Scheduler interface {
	// ScheduleRecurring runs job every interval until the scheduler stops.
	ScheduleRecurring(name string, interval time.Duration, job func())

	// ScheduleOnce runs job once after delay.
	ScheduleOnce(name string, delay time.Duration, job func())

	// Stop cancels recurring jobs and any one-shot jobs not yet fired.
	Stop()
}

// TickerScheduler implements Scheduler with time.Ticker loops.
type TickerScheduler struct {
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopped  bool
}

// NewTickerScheduler creates a new ticker-based scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{
		stopCh: make(chan struct{}),
	}
}

// ScheduleRecurring runs job every interval until Stop is called.
// Each run completes before the next tick is considered; a slow sweep
// skips ticks rather than stacking up.
func (s *TickerScheduler) ScheduleRecurring(name string, interval time.Duration, job func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("[Scheduler] Recurring job %q every %v", name, interval)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runJob(name, job)
			case <-s.stopCh:
				log.Printf("[Scheduler] Recurring job %q stopped", name)
				return
			}
		}
	}()
}

// ScheduleOnce runs job once after delay. The job is tracked by the
// scheduler's wait group, so Stop blocks until a one-shot already
// executing has finished.
func (s *TickerScheduler) ScheduleOnce(name string, delay time.Duration, job func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("[Scheduler] One-shot job %q in %v", name, delay)

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.runJob(name, job)
		case <-s.stopCh:
			log.Printf("[Scheduler] One-shot job %q cancelled", name)
		}
	}()
}

// runJob isolates panics so one bad sweep cannot take the process down.
func (s *TickerScheduler) runJob(name string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] Job %q panicked: %v", name, r)
		}
	}()
	job()
}

// Stop cancels all jobs and waits for loops and in-flight jobs to exit.
func (s *TickerScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		close(s.stopCh)
		s.wg.Wait()
		log.Printf("[Scheduler] Stopped")
	})
}

// Ensure TickerScheduler implements Scheduler
var _ Scheduler = (*TickerScheduler)(nil)
