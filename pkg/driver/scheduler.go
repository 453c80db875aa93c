package driver

import (
	"context"
	"sync"
	"time"
)

// Handle controls a scheduled recurring task.
type Handle interface {
	// Stop cancels future runs. It does not interrupt a run already in
	// progress.
	Stop()
}

// Scheduler executes background tasks for one or more servers. Tasks never
// run on a caller's goroutine.
type Scheduler interface {
	// ScheduleAtFixedRate runs task after initialDelay and then once per
	// period until the returned handle is stopped.
	ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) Handle

	// Submit runs task once, as soon as possible.
	Submit(task func())
}

// TickerScheduler is the default Scheduler, backed by one goroutine per
// recurring task. A single instance is intended to be shared by every
// server a client owns.
type TickerScheduler struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewTickerScheduler creates a scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// ScheduleAtFixedRate implements Scheduler.
func (s *TickerScheduler) ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) Handle {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return cancelHandle(cancel)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		if initialDelay > 0 {
			timer := time.NewTimer(initialDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		task()

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()

	return cancelHandle(cancel)
}

// Submit implements Scheduler.
func (s *TickerScheduler) Submit(task func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		task()
	}()
}

// Close stops accepting work and waits for in-flight tasks to finish.
// Recurring tasks must be stopped through their handles before Close is
// called, or Close blocks until they are.
func (s *TickerScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
}

// cancelHandle adapts a cancel function to the Handle interface.
type cancelHandle context.CancelFunc

func (h cancelHandle) Stop() {
	context.CancelFunc(h)()
}
