package telemetry

import "errors"

// Domain errors for the telemetry package.
var (
	// ErrConnectionFailed is returned when the initial broker connection
	// cannot be established.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrNotConnected is returned when an operation requires a live
	// broker connection.
	ErrNotConnected = errors.New("telemetry: not connected")
)
