package meme

import "errors"

var (
	// ErrUnsupportedSource: camera requested on a host without one.
	ErrUnsupportedSource = errors.New("unsupported image source")
	// ErrPrecondition: share or render attempted with no background image.
	ErrPrecondition = errors.New("precondition violated")
	// ErrCancelled is the normal negative result of a pick or share.
	// Callers treat it as "nothing happened", not as a failure.
	ErrCancelled = errors.New("cancelled by user")
	// ErrBusy rejects a second pick/share while one is outstanding.
	ErrBusy = errors.New("another operation is in progress")
)
