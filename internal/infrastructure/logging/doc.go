// Package logging provides structured logging for btaudiod.
//
// It wraps log/slog with the daemon's default fields (service, version)
// and the component convention: each subsystem takes a child logger via
// With("component", ...) so its records are filterable downstream.
package logging
