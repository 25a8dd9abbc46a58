package model

import "errors"

// Sentinel errors for domain model validation.
var (
	ErrDuplicateModule = errors.New("module result already merged")
	ErrUnknownTask     = errors.New("unknown task")
	ErrInvalidScore    = errors.New("score must be 0, 1 or 2")
)
