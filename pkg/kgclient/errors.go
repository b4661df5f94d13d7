package kgclient

import (
	"errors"
	"fmt"
)

// NetworkError reports a failed backend call: the transport failed, the
// server answered with a non-2xx status, or the body could not be decoded.
type NetworkError struct {
	Method string
	URL    string
	Status int    // 0 when no response was received
	Body   string // truncated response body for non-2xx answers
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0 && e.Err == nil:
		if e.Body != "" {
			return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
		}
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: request failed", e.Method, e.URL)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
