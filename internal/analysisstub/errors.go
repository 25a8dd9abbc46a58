package analysisstub

import "errors"

var (
	// ErrBadFrame is returned when an image payload cannot be decoded.
	ErrBadFrame = errors.New("undecodable frame")
	// ErrBadAudio is returned when an audio payload cannot be decoded.
	ErrBadAudio = errors.New("undecodable audio block")
)
