package catalog

import (
	"errors"
	"fmt"
	"net"
)

// ErrUnreachable marks a fetch that got no response at all: refused
// connections, DNS and TLS failures and timeouts. Such failures are retried
// once.
var ErrUnreachable = errors.New("catalog api unreachable")

// StatusError is returned when the API answered with a non-success status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog api returned status %d", e.Code)
}

// IsTransient reports whether err is worth one more attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsTimeout reports whether err was caused by the request timing out.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ItemError describes a catalog item that could not be decoded and was
// left out of the product list.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("catalog item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// LoadError is the terminal failure shown to the visitor. It keeps the
// endpoint so the page can tell where the backend was expected to run.
type LoadError struct {
	StatusCode int
	Endpoint   string
	Err        error
}

func newLoadError(err error, endpoint string) *LoadError {
	le := &LoadError{Endpoint: endpoint, Err: err}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		le.StatusCode = statusErr.Code
	}
	return le
}

// Message is the visitor-facing text. It only distinguishes an error status
// from an unreachable API.
func (e *LoadError) Message() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Lỗi API %d", e.StatusCode)
	}
	return "Không kết nối được API"
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Message(), e.Endpoint, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
