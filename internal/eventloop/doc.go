// Package eventloop provides the single-threaded control loop that executes
// all audio policy decisions.
//
// The loop combines two facilities the policy engine depends on:
//
//   - A cross-goroutine command bus: any goroutine may Send a typed Message,
//     and the registered handler for its Kind runs on the loop goroutine.
//     Delivery preserves per-sender enqueue order through a single FIFO queue.
//   - A one-shot timer facility: deferred callbacks keyed by delay, created
//     and canceled on the loop goroutine only. Because firing and cancellation
//     are serialized on one goroutine, a cancel issued before a fire is
//     guaranteed to prevent that fire.
//
// # Usage
//
//	loop := eventloop.New(eventloop.Config{})
//	loop.Register("bt_policy", handler)
//
//	// From any goroutine:
//	if err := loop.Send(msg); err != nil {
//	    // queue full or loop closed; the command was not delivered
//	}
//
//	// On the loop goroutine (inside a handler or timer callback):
//	t := loop.CreateTimer(500*time.Millisecond, cb)
//	loop.CancelTimer(t)
//
//	// Drive the loop until shutdown:
//	loop.Run(ctx)
//
// # Thread Safety
//
// Send is safe for concurrent use. Register, Unregister, CreateTimer,
// CancelTimer and Tick must only be called on the loop goroutine (or before
// Run is started).
package eventloop
