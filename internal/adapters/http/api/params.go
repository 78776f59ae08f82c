package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// pagination reads limit/offset query parameters with defaults.
func pagination(q url.Values, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("%w: limit", ErrBadRequest)
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, maxLimit)
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset", ErrBadRequest)
		}
	}
	return limit, offset, nil
}
