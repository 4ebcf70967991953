package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/torosent/replayfire/internal/transcript"
)

// Headers managed by the transport rather than copied from the capture.
var skippedHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"content-length":      true,
	"host":                true,
}

// BuildRequest creates a live request from a captured one. Recorded headers
// are copied in order, except hop-by-hop headers; Host is carried through
// req.Host.
func BuildRequest(ctx context.Context, r transcript.Request) (*http.Request, error) {
	if r.URL == nil {
		return nil, errors.New("request has no URL")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	if err != nil {
		return nil, err
	}

	for _, f := range r.Headers {
		name := strings.TrimSpace(f.Name)
		if name == "" || skippedHeaders[strings.ToLower(name)] {
			continue
		}
		req.Header.Add(name, f.Value)
	}
	if host, ok := r.Headers.Get("Host"); ok && strings.TrimSpace(host) != "" {
		req.Host = strings.TrimSpace(host)
	}
	if len(r.Body) > 0 {
		req.ContentLength = int64(len(r.Body))
	}
	return req, nil
}

// LiveResponse converts resp into the comparable form. Headers are sorted by
// name; multi-valued headers keep their order.
func LiveResponse(resp *http.Response) transcript.Response {
	if resp == nil {
		return transcript.Response{}
	}

	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	out := transcript.Response{StatusLine: proto + " " + resp.Status}

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			out.Headers = append(out.Headers, transcript.Field{Name: name, Value: v})
		}
	}
	return out
}

// ReceivedBytes sizes a response. A declared Content-Length wins; otherwise
// the size is the serialized status line and headers plus the measured body.
func ReceivedBytes(live transcript.Response, resp *http.Response, bodyLen int64) int64 {
	if resp != nil && resp.ContentLength >= 0 {
		if _, ok := live.Headers.Get("Content-Length"); ok {
			return resp.ContentLength
		}
	}
	return int64(len(live.StatusLine)+len("\r\n")) + live.Headers.WireSize() + int64(len("\r\n")) + bodyLen
}
