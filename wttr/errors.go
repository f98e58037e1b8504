package wttr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidFormat is returned for a format outside Formats
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidUnits is returned for an unknown unit system
	ErrInvalidUnits = errors.New("invalid units")
	// ErrInvalidMoonDate is returned when the moon date is not YYYY-MM-DD
	ErrInvalidMoonDate = errors.New("invalid moon date")
	// ErrInvalidViewOptions is returned for view flags that are not letters or digits
	ErrInvalidViewOptions = errors.New("invalid view options")
)

// Values of ResponseMetadata.ErrorType
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeHTTPStatus = "http_status"
	ErrorTypeDecode     = "decode"
)

// NetworkError is a transport failure: DNS, refused connection, timeout
type NetworkError struct {
	URL     string
	Timeout bool
	Err     error
}

func newNetworkError(url string, err error) *NetworkError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		timeout = true
	}
	return &NetworkError{URL: url, Timeout: timeout, Err: err}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx upstream response
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string // truncated
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s -> %s", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s -> %s: %s", e.URL, e.Status, e.Body)
}

// DecodeError is an upstream body that does not parse as the requested format
type DecodeError struct {
	URL        string
	Format     Format
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response from %s: %v", e.Format, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// classify maps a fetch failure to its ErrorType and, when a response was
// received, its status code.
func classify(err error) (errorType string, statusCode int) {
	var se *StatusError
	if errors.As(err, &se) {
		return ErrorTypeHTTPStatus, se.StatusCode
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return ErrorTypeDecode, de.StatusCode
	}
	var ne *NetworkError
	if errors.As(err, &ne) && ne.Timeout {
		return ErrorTypeTimeout, 0
	}
	return ErrorTypeNetwork, 0
}
