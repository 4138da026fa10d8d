// Package clock runs the control thread of the engine: an event loop on which
// every callback executes, timers in real or virtual time, and the beat
// scheduler that drives the sequencer.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type (
	// Timers schedules callbacks on the control thread. Implementations run
	// every callback on one goroutine, so callbacks never run concurrently
	// with each other.
	Timers interface {
		// AfterFunc calls f once, after d.
		AfterFunc(d time.Duration, f func()) Timer
		// Every calls f every d until the returned Timer is stopped. d must
		// be positive.
		Every(d time.Duration, f func()) Timer
	}

	// Timer is a pending callback.
	Timer interface {
		// Stop cancels the callback. It returns false if the timer had
		// already fired (one-shot) or had already been stopped. Stop may be
		// called from within the callback itself.
		Stop() bool
	}

	// Loop is a real-time event loop. Callbacks posted with Post or
	// scheduled with AfterFunc and Every run on the goroutine calling Run.
	// A Loop runs once.
	Loop struct {
		posts chan func()
		done  chan struct{}
		once  sync.Once
	}

	loopTimer struct {
		mu      sync.Mutex
		timer   *time.Timer
		stopped atomic.Bool
		fired   atomic.Bool
	}
)

const loopQueueSize = 1024

func NewLoop() *Loop {
	return &Loop{posts: make(chan func(), loopQueueSize), done: make(chan struct{})}
}

// Post queues f to be run on the loop. It is safe to call from any goroutine.
// Once Run has returned, f is dropped and Post never blocks.
func (l *Loop) Post(f func()) {
	select {
	case <-l.done:
	case l.posts <- f:
	}
}

// Run executes posted callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case f := <-l.posts:
			f()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.fired.Store(true)
			f()
		})
	})
	return t
}

func (l *Loop) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	t := &loopTimer{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			f()
			if t.stopped.Load() {
				return
			}
			t.mu.Lock()
			t.timer.Reset(d)
			t.mu.Unlock()
		})
	})
	return t
}

func (t *loopTimer) Stop() bool {
	if t.fired.Load() || t.stopped.Swap(true) {
		return false
	}
	t.mu.Lock()
	t.timer.Stop()
	t.mu.Unlock()
	return true
}
