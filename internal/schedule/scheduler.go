// Package schedule turns daily timer entries into recurring wall-clock
// alarms.
//
// Entries arrive over the channel returned by Registrations. Each one is
// armed on its own goroutine, which sleeps until the next occurrence, calls
// the FireFunc and waits for it to return before re-arming exactly one
// Period after the instant it was due. Alarms live until the context passed
// to Run is cancelled; there is no per-entry cancel.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock abstracts wall time so tests can drive alarms deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// FireFunc is called once per occurrence. It should block until the
// occurrence has been fully handled; the alarm does not re-arm before it
// returns.
type FireFunc func(ctx context.Context, e Entry) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the scheduler logger.
func WithLogger(l Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithBuffer sets the capacity of the registration channel.
func WithBuffer(n int) Option {
	return func(s *Scheduler) { s.bufferSize = n }
}

// Scheduler owns every armed alarm.
type Scheduler struct {
	fire       FireFunc
	clock      Clock
	logger     Logger
	bufferSize int

	registrations chan Entry

	mu      sync.Mutex
	entries []Entry

	wg sync.WaitGroup
}

// New creates a Scheduler that calls fire for every occurrence.
func New(fire FireFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fire:       fire,
		clock:      systemClock{},
		logger:     noopLogger{},
		bufferSize: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registrations = make(chan Entry, s.bufferSize)
	return s
}

// Registrations returns the channel new entries are submitted on.
func (s *Scheduler) Registrations() chan<- Entry {
	return s.registrations
}

// Entries returns a snapshot of every entry armed so far.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Run arms entries as they arrive until ctx is cancelled, then waits for
// every alarm goroutine to exit.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.registrations:
			s.arm(ctx, e)
		}
	}
}

func (s *Scheduler) arm(ctx context.Context, e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	next := e.NextFire(s.clock.Now())
	s.logger.Info("timer armed", "timer_id", e.ID, "at", e.String(), "next_fire", next)

	s.wg.Add(1)
	go s.alarm(ctx, e, next)
}

func (s *Scheduler) alarm(ctx context.Context, e Entry, next time.Time) {
	defer s.wg.Done()
	for {
		if !s.sleepUntil(ctx, next) {
			return
		}

		s.logger.Debug("timer firing", "timer_id", e.ID, "due", next)
		if err := s.fire(ctx, e); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("timer firing failed", "timer_id", e.ID, "error", err)
		}
		next = next.Add(Period)
	}
}

// sleepUntil blocks until the clock reads at least t. A timer may wake
// before the wall clock gets there (suspend, clock steps), so the deadline
// is re-checked on every wake-up. It reports false when ctx ends first.
func (s *Scheduler) sleepUntil(ctx context.Context, t time.Time) bool {
	for {
		d := t.Sub(s.clock.Now())
		if d <= 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.clock.After(d):
		}
	}
}
