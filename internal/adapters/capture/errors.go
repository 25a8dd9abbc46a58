package capture

import "errors"

// Sentinel errors for device acquisition and reads.
var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrNoFrames          = errors.New("no frames available")
	ErrClosed            = errors.New("capture device closed")
)
