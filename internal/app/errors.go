package service

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or discarded session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBackpressure is returned when the session queue is full.
	ErrBackpressure = errors.New("too many pending sessions")
	// ErrNotStarted is returned when the service has not been started.
	ErrNotStarted = errors.New("service not started")
	// ErrNotFinished is returned when a result is requested before the
	// session completed.
	ErrNotFinished = errors.New("session has not finished")
)
