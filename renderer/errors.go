package renderer

import "errors"

var (
	ErrNoEngine       = errors.New("renderer: no engine attached")
	ErrInvalidFrame   = errors.New("renderer: frame dimensions must be positive")
	ErrInvalidCamera  = errors.New("renderer: camera eye and look positions must differ")
	ErrInterrupted    = errors.New("renderer: interrupted while rendering")
	ErrNothingToWrite = errors.New("renderer: no frame has been rendered")
)
