package biz

import (
	"errors"
)

var (
	// ErrInvalidRequest rejects malformed administrative arguments before
	// any state is touched.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConfigWrite means the mutation was rolled back because the
	// snapshot could not be persisted.
	ErrConfigWrite = errors.New("configuration change could not be persisted")

	// ErrInternal is the generic failure surfaced to callers.
	ErrInternal = errors.New("server internal error, please try again later")
)
