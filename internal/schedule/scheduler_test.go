package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when Advance is called.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
	armed   chan time.Time
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, armed: make(chan time.Time, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	deadline := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
	} else {
		c.waiters = append(c.waiters, waiter{deadline: deadline, ch: ch})
	}
	c.armed <- deadline
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}

// WakeEarly fires every pending timer without moving the wall clock.
func (c *fakeClock) WakeEarly() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.waiters {
		w.ch <- c.now
	}
	c.waiters = nil
}

func (c *fakeClock) waitArmed(t *testing.T) time.Time {
	t.Helper()
	select {
	case d := <-c.armed:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("alarm was not armed")
		return time.Time{}
	}
}

func TestScheduler_FiresAndRearms(t *testing.T) {
	clock := newFakeClock(at(10, 6, 0))
	fired := make(chan Entry)
	release := make(chan struct{})

	s := New(func(ctx context.Context, e Entry) error {
		fired <- e
		<-release
		return nil
	}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	entry := Entry{Hour: 7, Minute: 30, ID: "morning"}
	s.Registrations() <- entry

	assert.Equal(t, at(10, 7, 30), clock.waitArmed(t))

	clock.Advance(90 * time.Minute)
	select {
	case got := <-fired:
		assert.Equal(t, entry, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	// The alarm must not re-arm while the firing is still being handled.
	select {
	case d := <-clock.armed:
		t.Fatalf("re-armed for %v before fire returned", d)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, at(11, 7, 30), clock.waitArmed(t), "re-armed one day after the due instant")
	assert.Equal(t, []Entry{entry}, s.Entries())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RearmIgnoresHandlingTime(t *testing.T) {
	clock := newFakeClock(at(10, 8, 0))
	fired := make(chan struct{}, 4)

	s := New(func(ctx context.Context, e Entry) error {
		// A slow handler: the clock moves on while we are firing.
		clock.mu.Lock()
		clock.now = clock.now.Add(10 * time.Minute)
		clock.mu.Unlock()
		fired <- struct{}{}
		return nil
	}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Registrations() <- Entry{Hour: 7, Minute: 30, ID: "morning"}
	assert.Equal(t, at(11, 7, 30), clock.waitArmed(t))

	clock.Advance(at(11, 7, 30).Sub(at(10, 8, 0)))
	<-fired

	// Next occurrence is computed from the due instant, not from "now".
	assert.Equal(t, at(12, 7, 30), clock.waitArmed(t))
}

func TestScheduler_IndependentAlarms(t *testing.T) {
	clock := newFakeClock(at(10, 6, 0))
	fired := make(chan string, 4)

	s := New(func(ctx context.Context, e Entry) error {
		fired <- e.ID
		return nil
	}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Registrations() <- Entry{Hour: 6, Minute: 30, ID: "early"}
	clock.waitArmed(t)
	s.Registrations() <- Entry{Hour: 9, Minute: 0, ID: "late"}
	clock.waitArmed(t)

	clock.Advance(time.Hour)
	assert.Equal(t, "early", <-fired)
	clock.waitArmed(t)

	select {
	case id := <-fired:
		t.Fatalf("unexpected firing of %s", id)
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(2 * time.Hour)
	assert.Equal(t, "late", <-fired)
}

func TestScheduler_FireErrorKeepsAlarm(t *testing.T) {
	clock := newFakeClock(at(10, 6, 0))
	calls := make(chan struct{}, 4)

	s := New(func(ctx context.Context, e Entry) error {
		calls <- struct{}{}
		return assert.AnError
	}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Registrations() <- Entry{Hour: 7, Minute: 0, ID: "x"}
	clock.waitArmed(t)

	clock.Advance(time.Hour)
	<-calls
	assert.Equal(t, at(11, 7, 0), clock.waitArmed(t))
}

func TestScheduler_EarlyWakeupWaitsForWallClock(t *testing.T) {
	clock := newFakeClock(at(10, 6, 0))
	fired := make(chan Entry, 1)

	s := New(func(ctx context.Context, e Entry) error {
		fired <- e
		return nil
	}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.Registrations() <- Entry{Hour: 7, Minute: 30, ID: "morning"}
	assert.Equal(t, at(10, 7, 30), clock.waitArmed(t))

	clock.Advance(30 * time.Minute)
	clock.WakeEarly()

	// Re-armed for the remaining hour instead of firing at 06:30.
	assert.Equal(t, at(10, 7, 30), clock.waitArmed(t))
	select {
	case e := <-fired:
		t.Fatalf("fired %s before its due time", e.ID)
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Hour)
	select {
	case e := <-fired:
		assert.Equal(t, "morning", e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire at its due time")
	}
}
