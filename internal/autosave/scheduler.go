// Package autosave debounces draft saves: a burst of edits produces a single
// write once the editor has been idle for the configured interval.
package autosave

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithAfterFunc replaces the timer source, e.g. with a manual clock in tests.
func WithAfterFunc(af AfterFunc) Option {
	return func(s *Scheduler) { s.afterFunc = af }
}

// Scheduler holds at most one pending action. Scheduling again replaces it,
// and the interval restarts.
type Scheduler struct {
	interval  time.Duration
	afterFunc AfterFunc

	mu     sync.Mutex
	timer  Timer
	action func()
	gen    uint64
}

func NewScheduler(interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{interval: interval, afterFunc: realAfterFunc}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule arms the timer for action, cancelling whatever was pending.
func (s *Scheduler) Schedule(action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.gen++
	gen := s.gen
	s.action = action
	s.timer = s.afterFunc(s.interval, func() { s.fire(gen) })
}

// fire runs the action armed under gen. A timer that was superseded after it
// had already started firing finds a newer generation and does nothing.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.action == nil {
		s.mu.Unlock()
		return
	}
	action := s.action
	s.action, s.timer = nil, nil
	s.mu.Unlock()

	action()
}

// Stop cancels the pending action, if any. It never runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.gen++
}

// Flush runs the pending action now and reports whether there was one.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	action := s.action
	s.cancelLocked()
	s.gen++
	s.mu.Unlock()

	if action == nil {
		return false
	}
	action()
	return true
}

// Pending reports whether an action is waiting to run.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action != nil
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer, s.action = nil, nil
}
