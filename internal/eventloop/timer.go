package eventloop

import (
	"container/heap"
	"time"
)

// Timer is a one-shot deferred callback registration.
//
// A Timer belongs to the loop that created it and is only touched on the loop
// goroutine. After it fires or is canceled the handle is dead; rescheduling
// is cancel-then-create.
type Timer struct {
	deadline time.Time
	seq      uint64
	cb       func()

	// index is the heap position, or -1 once fired/canceled.
	index int
}

func (t *Timer) fire() {
	cb := t.cb
	t.cb = nil
	cb()
}

// CreateTimer registers cb to run after delay. A non-positive delay fires on
// the next Tick.
//
// Loop goroutine only.
func (l *Loop) CreateTimer(delay time.Duration, cb func()) *Timer {
	l.seq++
	t := &Timer{
		deadline: l.clock.Now().Add(delay),
		seq:      l.seq,
		cb:       cb,
	}
	heap.Push(&l.timers, t)
	return t
}

// CancelTimer removes a pending timer. Canceling a fired, canceled or nil
// timer is a no-op. A timer canceled before its deadline never fires.
//
// Loop goroutine only.
func (l *Loop) CancelTimer(t *Timer) {
	if t == nil || t.index < 0 {
		return
	}
	heap.Remove(&l.timers, t.index)
	t.cb = nil
}

// popDue removes and returns the earliest timer with deadline <= now,
// or nil if none is due.
func (l *Loop) popDue(now time.Time) *Timer {
	if len(l.timers) == 0 || l.timers[0].deadline.After(now) {
		return nil
	}
	t, ok := heap.Pop(&l.timers).(*Timer)
	if !ok {
		return nil
	}
	return t
}

// nextDeadline reports the earliest pending timer deadline.
func (l *Loop) nextDeadline() (time.Time, bool) {
	if len(l.timers) == 0 {
		return time.Time{}, false
	}
	return l.timers[0].deadline, true
}

// timerHeap orders timers by deadline, breaking ties by creation order so
// same-deadline timers fire FIFO.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t, ok := x.(*Timer)
	if !ok {
		return
	}
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
