package eventloop

import (
	"context"
	"sync"
	"time"
)

// Kind identifies a message class. Each subsystem that posts work onto the
// loop registers exactly one handler under its own kind.
type Kind string

// Message is a typed command delivered to the loop goroutine.
type Message interface {
	Kind() Kind
}

// Handler processes a single message on the loop goroutine.
type Handler func(Message)

// Clock abstracts time for the loop so tests can drive timers deterministically.
type Clock interface {
	Now() time.Time
}

// systemClock is the production clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Logger defines the logging interface used by the loop.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// defaultQueueSize bounds the command queue when Config.QueueSize is zero.
const defaultQueueSize = 64

// Config contains event loop construction options.
type Config struct {
	// QueueSize is the command queue capacity. Defaults to 64.
	QueueSize int

	// Clock overrides the time source. Defaults to the system clock.
	// Tests supply a manual clock and drive the loop with Tick.
	Clock Clock
}

// Loop is the single-consumer control loop.
//
// One goroutine (the one calling Run, or the test calling Tick) executes
// every handler and every timer callback. State owned by handlers therefore
// needs no locking.
type Loop struct {
	clock Clock
	queue chan Message

	handlers map[Kind]Handler
	timers   timerHeap
	seq      uint64

	logger Logger

	closeOnce sync.Once
	done      chan struct{}
}

// New creates an event loop. It does not start any goroutine; call Run to
// drive it, or Tick from a test.
func New(cfg Config) *Loop {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Loop{
		clock:    clock,
		queue:    make(chan Message, size),
		handlers: make(map[Kind]Handler),
		logger:   noopLogger{},
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// Register installs the handler for a message kind.
// Returns ErrHandlerExists if the kind already has a handler.
func (l *Loop) Register(k Kind, h Handler) error {
	if _, ok := l.handlers[k]; ok {
		return ErrHandlerExists
	}
	l.handlers[k] = h
	return nil
}

// Unregister removes the handler for a message kind. Unknown kinds are a no-op.
func (l *Loop) Unregister(k Kind) {
	delete(l.handlers, k)
}

// Send enqueues a message for delivery on the loop goroutine.
//
// It never blocks: the message is either enqueued (nil), rejected because the
// queue is full (ErrQueueFull), or rejected because the loop is closed
// (ErrClosed). The result reports enqueueing only, never execution.
func (l *Loop) Send(m Message) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}

	select {
	case l.queue <- m:
		return nil
	case <-l.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Close marks the loop closed. Subsequent Send calls fail with ErrClosed.
// Already-queued messages are still delivered by Run or Tick.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Tick drains the command queue and fires every timer due at the current
// clock reading, interleaving until no ready work remains. Timer callbacks
// may create further timers; a zero-delay timer created during a Tick fires
// within the same Tick.
//
// Loop goroutine only.
func (l *Loop) Tick() {
	for {
		select {
		case m := <-l.queue:
			l.dispatch(m)
			continue
		default:
		}
		if t := l.popDue(l.clock.Now()); t != nil {
			t.fire()
			continue
		}
		return
	}
}

// Run drives the loop until ctx is canceled. It blocks between ticks on the
// earlier of the next timer deadline and message arrival.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Tick()

		var deadlineC <-chan time.Time
		var wake *time.Timer
		if next, ok := l.nextDeadline(); ok {
			d := next.Sub(l.clock.Now())
			if d < 0 {
				d = 0
			}
			wake = time.NewTimer(d)
			deadlineC = wake.C
		}

		select {
		case <-ctx.Done():
			if wake != nil {
				wake.Stop()
			}
			return ctx.Err()
		case m := <-l.queue:
			if wake != nil {
				wake.Stop()
			}
			l.dispatch(m)
		case <-deadlineC:
		}
	}
}

// dispatch routes one message to its registered handler.
func (l *Loop) dispatch(m Message) {
	h, ok := l.handlers[m.Kind()]
	if !ok {
		l.logger.Warn("message dropped, no handler", "kind", string(m.Kind()))
		return
	}
	h(m)
}
