package telemetry

import "errors"

// Sentinel errors reported through Link.Err.
var (
	ErrNotConnected = errors.New("telemetry link not connected")
	ErrClosed       = errors.New("telemetry link closed")
)
