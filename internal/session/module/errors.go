package module

import "errors"

// Sentinel errors surfaced when a module cannot start or be controlled.
var (
	ErrDeviceAcquire     = errors.New("capture device could not be acquired")
	ErrLinkConnect       = errors.New("analysis link could not connect")
	ErrNotArmed          = errors.New("module is not armed")
	ErrNotRecording      = errors.New("module is not recording")
	ErrChildNameRequired = errors.New("child name is required for the name response exercise")
)
