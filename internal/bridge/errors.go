package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUpstreamUnavailable = errors.New("persistence service unavailable")
	ErrForbidden           = errors.New("not allowed")
	ErrNotFound            = errors.New("not found")
	ErrInvalid             = errors.New("invalid request")
)

// Error is a failed persistence call. Kind is one of the sentinel errors above.
type Error struct {
	Op      string
	Status  int // 0 when no response was received
	Message string
	Kind    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrUpstreamUnavailable
	default:
		return ErrInvalid
	}
}

func transportError(op string, err error) *Error {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timed out"
	}
	return &Error{Op: op, Message: msg, Kind: ErrUpstreamUnavailable}
}
