package internaltypes

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrUnavailable marks a calendar resource that could not be read.
	ErrUnavailable = errors.New("resource unavailable")
)
