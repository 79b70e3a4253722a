package bluez

import "errors"

// Domain errors for the bluez package.
var (
	// ErrBusUnavailable is returned when the system D-Bus connection
	// cannot be established.
	ErrBusUnavailable = errors.New("bluez: system bus unavailable")

	// ErrClosed is returned by transport calls after Close.
	ErrClosed = errors.New("bluez: monitor closed")
)
