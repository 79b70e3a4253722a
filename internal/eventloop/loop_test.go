package eventloop

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// manualClock is a test clock advanced explicitly.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testMsg is a minimal message carrying an ordering token.
type testMsg struct {
	kind Kind
	n    int
}

func (m testMsg) Kind() Kind { return m.kind }

func TestSendDeliversInOrder(t *testing.T) {
	loop := New(Config{Clock: newManualClock()})

	var got []int
	if err := loop.Register("test", func(m Message) {
		tm, ok := m.(testMsg)
		if !ok {
			t.Fatalf("unexpected message type %T", m)
		}
		got = append(got, tm.n)
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := loop.Send(testMsg{kind: "test", n: i}); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	loop.Tick()

	want := []int{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("delivered %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery order %v, want %v", got, want)
			break
		}
	}
}

func TestSendQueueFull(t *testing.T) {
	loop := New(Config{QueueSize: 1, Clock: newManualClock()})

	if err := loop.Send(testMsg{kind: "test"}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := loop.Send(testMsg{kind: "test"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Send = %v, want ErrQueueFull", err)
	}
}

func TestSendAfterClose(t *testing.T) {
	loop := New(Config{Clock: newManualClock()})
	loop.Close()

	if err := loop.Send(testMsg{kind: "test"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestRegisterDuplicateKind(t *testing.T) {
	loop := New(Config{Clock: newManualClock()})

	if err := loop.Register("test", func(Message) {}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := loop.Register("test", func(Message) {}); !errors.Is(err, ErrHandlerExists) {
		t.Fatalf("duplicate Register = %v, want ErrHandlerExists", err)
	}
}

func TestUnhandledMessageDropped(t *testing.T) {
	loop := New(Config{Clock: newManualClock()})

	if err := loop.Send(testMsg{kind: "nobody"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Must not panic; the message is discarded.
	loop.Tick()
}

func TestUnregisterStopsDelivery(t *testing.T) {
	loop := New(Config{Clock: newManualClock()})

	delivered := 0
	if err := loop.Register("test", func(Message) { delivered++ }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	loop.Unregister("test")

	if err := loop.Send(testMsg{kind: "test"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	loop.Tick()

	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
}
