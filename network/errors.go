package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// TransientError marks a failure worth retrying: timeouts, dropped connections,
// 5xx responses and rate limiting. Client only returns one after every attempt failed.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient network error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err, or anything it wraps, is a TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// classify wraps err in a TransientError when the failure is worth retrying.
// Context errors are never transient.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}

	switch {
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return &TransientError{Err: err}
	}

	return err
}

// statusErr converts a non-2xx status code into an error, transient for 5xx and 429.
func statusErr(url string, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}

	err := &StatusError{URL: url, Code: code}
	if code == http.StatusTooManyRequests || code >= 500 {
		return &TransientError{Err: err}
	}
	return err
}
