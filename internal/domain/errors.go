package domain

import (
	"errors"
	"fmt"
)

// TimeoutError marks a request that exceeded its deadline. The client
// retries these once before surfacing them.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ServerError is a non-2xx provider response. Never retried.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// DecodeError is a malformed response body or an unreadable cache
// file. For cache loads the caller treats it as "no cache".
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
