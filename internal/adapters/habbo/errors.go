package habbo

import "errors"

// Sentinel kinds for client errors. Each marks a retry budget exhausted
// for one logical operation; the wrapped cause is the last attempt's error.
var (
	ErrResolutionFailed = errors.New("user resolution failed")
	ErrMatchUnavailable = errors.New("match detail unavailable")
	ErrPageFetchFailed  = errors.New("match id page fetch failed")
)
