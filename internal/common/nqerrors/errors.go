// Package nqerrors contains the error types returned by nquery's Nomad client and query pipeline.
// Match on them with errors.As; most are wrapped with github.com/pkg/errors on their way up.
//
// Where several independent errors occur in one operation (e.g., several malformed field paths),
// the function returns a *multierror.Error from github.com/hashicorp/go-multierror wrapping them.
package nqerrors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned whenever some resource isn't found, e.g. a job that was listed but
// deleted before its full definition could be fetched.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "job"
	Value   string // Resource name, e.g., "redis-cache"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is returned on invalid user input.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "field"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrUnauthorized is returned when the server rejects the request's credentials.
type ErrUnauthorized struct {
	Url        string
	StatusCode int
	Message    string
}

func (err *ErrUnauthorized) Error() string {
	s := fmt.Sprintf("request to %s was rejected with status %d", err.Url, err.StatusCode)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrTransport is returned when a request fails for any reason other than the ones above,
// e.g. the server is unreachable, returns a 5xx, or returns a body that can't be decoded.
// Temporary indicates whether repeating the request may succeed.
type ErrTransport struct {
	Url        string
	StatusCode int // Zero if no response was received
	Temporary  bool
	Message    string
}

func (err *ErrTransport) Error() string {
	var s string
	if err.StatusCode != 0 {
		s = fmt.Sprintf("request to %s failed with status %d", err.Url, err.StatusCode)
	} else {
		s = fmt.Sprintf("request to %s failed", err.Url)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// IsNotFound returns true if err, or any error in its chain, is an *ErrNotFound.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsInvalidArgument returns true if err, or any error in its chain, is an *ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}

// IsRetryable reports whether repeating the operation that returned err may succeed.
// Only temporary transport errors are retryable; context cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *ErrTransport
	if errors.As(err, &e) {
		return e.Temporary
	}
	return false
}
