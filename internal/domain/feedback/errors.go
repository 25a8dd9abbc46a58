package feedback

import "errors"

// Sentinel errors returned by Decode.
var (
	ErrMalformed   = errors.New("malformed feedback")
	ErrUnknownTask = errors.New("feedback for unknown task")
)
