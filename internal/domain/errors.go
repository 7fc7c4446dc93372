package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrDeserialization        = errors.New("deserialization failed")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrClosed                 = errors.New("database closed")
)
