package eventloop

import "errors"

// Domain errors for the eventloop package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, eventloop.ErrQueueFull) {
//	    // the command was dropped; report failure to the caller
//	}
var (
	// ErrQueueFull is returned by Send when the command queue is at capacity.
	// The message was not enqueued; the loop never retries on behalf of the caller.
	ErrQueueFull = errors.New("eventloop: queue full")

	// ErrClosed is returned by Send after Close has been called.
	ErrClosed = errors.New("eventloop: closed")

	// ErrHandlerExists is returned by Register when a handler is already
	// registered for the given kind.
	ErrHandlerExists = errors.New("eventloop: handler already registered")
)
