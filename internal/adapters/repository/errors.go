package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrQueueEmpty   = errors.New("queue is empty")
)
