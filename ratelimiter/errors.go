package ratelimiter

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded is a sentinel error matched by errors.Is against any
// *LimitError. It lets boundary code detect the rate-limit condition without
// caring about the offending client or route.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// LimitError is returned when a request is denied. It identifies the client
// and the operation so the HTTP layer can produce a useful rejection message.
type LimitError struct {
	Operation string
	Client    string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for client %s on %s", e.Client, e.Operation)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// ConfigError reports an invalid rate-limit configuration: an unrecognized
// time unit, or an enabled policy resolving to a non-positive capacity or
// window. It is fatal: the affected policy must not be used.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid rate limit configuration: " + e.Reason
}
