// Package match decides whether a live response is equivalent to the one
// recorded in the transcript.
package match

import (
	"net/http"
	"strings"

	"github.com/torosent/replayfire/internal/transcript"
)

// Policy is the rule used to compare responses. The zero value compares
// status lines only.
type Policy struct {
	headers []string
}

// StatusOnly compares status lines only.
func StatusOnly() Policy {
	return Policy{}
}

// StatusAndHeaders compares status lines and the values of the named headers.
func StatusAndHeaders(names ...string) Policy {
	seen := make(map[string]bool, len(names))
	headers := make([]string, 0, len(names))
	for _, name := range names {
		key := http.CanonicalHeaderKey(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		headers = append(headers, key)
	}
	return Policy{headers: headers}
}

// NewPolicy picks StatusOnly for an empty header list.
func NewPolicy(names []string) Policy {
	if len(names) == 0 {
		return StatusOnly()
	}
	return StatusAndHeaders(names...)
}

// Headers returns the compared header names.
func (p Policy) Headers() []string {
	return append([]string(nil), p.headers...)
}

// Matches reports whether actual is equivalent to expected. Status lines must
// be byte-equal; every configured header must be present and non-empty on
// both sides with equal values.
func (p Policy) Matches(expected, actual transcript.Response) bool {
	if expected.StatusLine != actual.StatusLine {
		return false
	}
	for _, name := range p.headers {
		want, ok := expected.Headers.Get(name)
		if !ok || want == "" {
			return false
		}
		got, ok := actual.Headers.Get(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (p Policy) String() string {
	if len(p.headers) == 0 {
		return "status"
	}
	return "status+" + strings.Join(p.headers, ",")
}
