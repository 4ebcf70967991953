package har

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/torosent/replayfire/internal/transcript"
)

// ParseFile reads and parses a HAR file from disk.
func ParseFile(path string) (*HAR, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &transcript.IOError{Path: path, Err: err}
	}
	defer file.Close()

	h, err := Parse(file)
	var ioErr *transcript.IOError
	if errors.As(err, &ioErr) {
		ioErr.Path = path
	}
	return h, err
}

// Parse reads and parses a HAR from an io.Reader.
func Parse(r io.Reader) (*HAR, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &transcript.IOError{Err: err}
	}

	if len(data) == 0 {
		return nil, &transcript.IOError{Err: errors.New("empty HAR data")}
	}

	var h HAR
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, &transcript.IOError{Err: fmt.Errorf("parse HAR JSON: %w", err)}
	}

	if h.Log == nil {
		return nil, &transcript.IOError{Err: errors.New("invalid HAR: missing log")}
	}

	return &h, nil
}
