package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrEmptyUsername = errors.New("empty username")
)
