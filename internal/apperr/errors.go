package apperr

import "errors"

var (
	// ErrNotFound means a fragment could not be matched to a file on disk,
	// or a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse means a load descriptor is unreadable or malformed.
	ErrParse = errors.New("parse error")
	// ErrMissingIndicator means a host indicator file does not exist.
	ErrMissingIndicator = errors.New("missing indicator")
	// ErrInvalidInput means a caller-supplied value was rejected.
	ErrInvalidInput = errors.New("invalid input")
)
