package model

import "errors"

// Errors returned by the inventory core. Callers match them with errors.Is;
// the wrapped message carries the details.
var (
	ErrValidation = errors.New("validation failed")
	ErrState      = errors.New("illegal state transition")
	ErrNotFound   = errors.New("not found")
)
