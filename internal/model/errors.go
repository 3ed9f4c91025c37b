package model

import "errors"

var (
	ErrUnknownModel = errors.New("model: unknown model")
	ErrMetadata     = errors.New("model: invalid metadata")
	ErrShape        = errors.New("model: unexpected tensor shape")
	ErrClosed       = errors.New("model: already closed")
)
