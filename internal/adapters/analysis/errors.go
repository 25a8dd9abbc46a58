package analysis

import "errors"

// Sentinel errors for the batch analysis call.
var (
	ErrStatus = errors.New("analysis service returned an error status")
	ErrDecode = errors.New("analysis response could not be decoded")
)
