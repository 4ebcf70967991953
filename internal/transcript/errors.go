package transcript

import (
	"errors"
	"fmt"
)

var (
	// ErrIO matches every error caused by an unreadable transcript.
	ErrIO = errors.New("transcript unreadable")
	// ErrMalformedInput matches body/Content-Length misalignment.
	ErrMalformedInput = errors.New("malformed transcript")
)

// IOError reports a transcript that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read transcript: %v", e.Err)
	}
	return fmt.Sprintf("read transcript %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// MalformedInputError reports a request whose recovered body does not match
// its declared Content-Length.
type MalformedInputError struct {
	Block    int
	URL      string
	Declared int
	Actual   int
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("block %d (%s): body length %d does not match Content-Length %d", e.Block, e.URL, e.Actual, e.Declared)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
