package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// Failure reasons recorded for failed requests.
const (
	ReasonTransport = "transport"
	ReasonTimeout   = "timeout"
	ReasonEmpty     = "empty"
	ReasonMismatch  = "mismatch"
)

// RequestError describes one failed request. It is counted, logged at debug
// level and never retried.
type RequestError struct {
	Position int
	Reason   string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("position %d: %s: %v", e.Position, e.Reason, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// FatalError stops a single worker before it could replay anything, such as
// a failure to build its HTTP client.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "worker setup failed: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err stopped a worker.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonEmpty
	}
	return ReasonTransport
}
