package transcript

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Headers keeps header fields in capture order. Lookups are case-insensitive.
type Headers []Field

// Get returns the value of the first field named name.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether a field named name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Replace sets the value of every field named name and reports whether any
// field was found. Absent headers are not added.
func (h Headers) Replace(name, value string) bool {
	found := false
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			h[i].Value = value
			found = true
		}
	}
	return found
}

// WireSize is the number of bytes the fields take when serialized as
// "Name: value\r\n" lines.
func (h Headers) WireSize() int64 {
	var n int64
	for _, f := range h {
		n += int64(len(f.Name) + len(": ") + len(f.Value) + len("\r\n"))
	}
	return n
}

// Request is a captured request ready to be replayed.
type Request struct {
	Method  string
	URL     *url.URL
	Proto   string
	Headers Headers
	Body    []byte
	// ContentLength is the declared body length, -1 when the capture had none.
	ContentLength int64
}

// RequestLine renders the request line in origin form.
func (r Request) RequestLine() string {
	target := "/"
	if r.URL != nil {
		target = r.URL.RequestURI()
	}
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	return r.Method + " " + target + " " + proto
}

// WireSize is the serialized size of the request: request line, headers, the
// blank line and the body.
func (r Request) WireSize() int64 {
	return int64(len(r.RequestLine())+len("\r\n")) + r.Headers.WireSize() + int64(len("\r\n")) + int64(len(r.Body))
}

// Response is a status line plus headers. Recorded responses are used for
// comparison only and are never replayed.
type Response struct {
	StatusLine string
	Headers    Headers
}

// StatusCode extracts the numeric code from the status line, 0 when the line
// cannot be parsed.
func (r Response) StatusCode() int {
	parts := strings.Fields(r.StatusLine)
	if len(parts) < 2 {
		return 0
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return code
}

// Date parses the Date header.
func (r Response) Date() (time.Time, bool) {
	raw, ok := r.Headers.Get("Date")
	if !ok {
		return time.Time{}, false
	}
	t, err := http.ParseTime(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Kind tags an Entry.
type Kind int

const (
	KindExchange Kind = iota
	KindDelay
)

func (k Kind) String() string {
	switch k {
	case KindExchange:
		return "exchange"
	case KindDelay:
		return "delay"
	default:
		return "unknown"
	}
}

// Entry is one step of a session: either a request with its expected
// response, or a pause.
type Entry struct {
	Kind Kind

	// Position is the 1-based index of the exchange among all exchanges of
	// the session. Zero for delays.
	Position    int
	Request     Request
	Expected    Response
	RequestSize int64

	Delay time.Duration
}

// Session is the ordered, replayable form of a transcript.
type Session struct {
	Entries []Entry

	// KeepAliveMax is the per-connection request budget adopted from the
	// first recorded Keep-Alive header. Zero means connections are not reused.
	KeepAliveMax     int
	KeepAliveTimeout time.Duration

	// TotalDelay is the sum of all emitted delays.
	TotalDelay time.Duration
}

// Exchanges returns the request entries in position order.
func (s *Session) Exchanges() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Kind == KindExchange {
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of exchanges in the session.
func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, e := range s.Entries {
		if e.Kind == KindExchange {
			n++
		}
	}
	return n
}
