package clock

import (
	"container/heap"
	"time"
)

type (
	// Manual is a Timers implementation in virtual time. Nothing happens
	// until Advance is called; Advance then runs the due callbacks in time
	// order on the calling goroutine. Manual is used for deterministic tests
	// and for offline rendering. It is not safe for concurrent use.
	Manual struct {
		now   time.Duration
		seq   int
		queue timerQueue
	}

	manualTimer struct {
		m       *Manual
		when    time.Duration
		period  time.Duration
		seq     int
		f       func()
		index   int
		stopped bool
		fired   bool
	}

	timerQueue []*manualTimer
)

func NewManual() *Manual {
	return &Manual{}
}

// Now returns the virtual time elapsed since the Manual was created.
func (m *Manual) Now() time.Duration { return m.now }

// Pending returns the number of timers waiting to fire.
func (m *Manual) Pending() int { return len(m.queue) }

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	return m.push(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return m.push(d, d, f)
}

func (m *Manual) push(d, period time.Duration, f func()) *manualTimer {
	m.seq++
	t := &manualTimer{m: m, when: m.now + max(d, 0), period: period, seq: m.seq, f: f}
	heap.Push(&m.queue, t)
	return t
}

// Advance moves virtual time forward by d, firing every timer that becomes
// due, including timers scheduled by the callbacks themselves. While a
// callback runs, Now returns the time it was due.
func (m *Manual) Advance(d time.Duration) {
	end := m.now + d
	for len(m.queue) > 0 && m.queue[0].when <= end {
		t := heap.Pop(&m.queue).(*manualTimer)
		m.now = t.when
		if t.period > 0 {
			m.seq++
			t.seq = m.seq
			t.when += t.period
			heap.Push(&m.queue, t)
		} else {
			t.fired = true
		}
		t.f()
	}
	m.now = end
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&t.m.queue, t.index)
	}
	return true
}

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when != q[j].when {
		return q[i].when < q[j].when
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
