package fetcher

import (
	"errors"
	"fmt"
)

// ErrEmptyResult marks a well-formed response without data for the requested
// window. It is an expected outcome, not a failure.
var ErrEmptyResult = errors.New("no data for the requested window")

// NetworkError reports a transport failure or a non-2xx response
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: request to %s failed: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DataFormatError reports a response that does not have the expected shape
type DataFormatError struct {
	Op     string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is or wraps a *NetworkError
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsDataFormat reports whether err is or wraps a *DataFormatError
func IsDataFormat(err error) bool {
	var de *DataFormatError
	return errors.As(err, &de)
}
