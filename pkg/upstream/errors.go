package upstream

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure
type Kind int

const (
	// KindUnavailable covers connection failures and timeouts
	KindUnavailable Kind = iota + 1
	// KindBadStatus is a non-2xx response
	KindBadStatus
	// KindInvalidResponse is a 2xx response whose body could not be decoded
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindBadStatus:
		return "bad_status"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call that fails
type Error struct {
	Kind       Kind
	StatusCode int
	Endpoint   string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBadStatus:
		return fmt.Sprintf("upstream %s returned status %d", e.Endpoint, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("upstream %s %s: %v", e.Endpoint, e.Kind, e.Err)
		}
		return fmt.Sprintf("upstream %s %s", e.Endpoint, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is an upstream connectivity failure
func IsUnavailable(err error) bool {
	var upErr *Error
	return errors.As(err, &upErr) && upErr.Kind == KindUnavailable
}

// StatusCode returns the upstream status carried by err, if any
func StatusCode(err error) (int, bool) {
	var upErr *Error
	if errors.As(err, &upErr) && upErr.Kind == KindBadStatus {
		return upErr.StatusCode, true
	}
	return 0, false
}
