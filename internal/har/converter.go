package har

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/replayfire/internal/transcript"
)

var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// ToSession converts the archive entries that pass filter into a session.
// Session-wide rules (delays, keep-alive adoption, entry cap) are the same as
// for transcripts; delays are inferred from startedDateTime.
func ToSession(h *HAR, filter Filter, opts transcript.Options) (*transcript.Session, error) {
	if h == nil || h.Log == nil {
		return nil, errors.New("HAR is nil or has nil log")
	}

	builder := transcript.NewBuilder(opts)
	for _, entry := range h.Log.Entries {
		if builder.Full() {
			break
		}
		if entry == nil || !filter.Includes(entry.Request) {
			continue
		}
		x, ok := toExchange(entry, opts)
		if !ok {
			continue
		}
		builder.Add(x)
	}
	return builder.Session(), nil
}

// toExchange converts one entry. Entries without an absolute URL or without
// a recorded response (aborted requests report status 0) are skipped.
func toExchange(entry *Entry, opts transcript.Options) (transcript.Exchange, bool) {
	req, resp := entry.Request, entry.Response
	if req == nil || resp == nil || resp.Status == 0 {
		return transcript.Exchange{}, false
	}
	target, err := url.Parse(req.URL)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return transcript.Exchange{}, false
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		return transcript.Exchange{}, false
	}

	r := transcript.Request{
		Method:        method,
		URL:           target,
		Proto:         normalizeProto(req.HTTPVersion),
		Headers:       requestHeaders(req.Headers, target.Host, opts.ReuseCookies),
		ContentLength: -1,
	}
	if req.PostData != nil && req.PostData.Text != "" {
		r.Body = []byte(req.PostData.Text)
		r.ContentLength = int64(len(r.Body))
	}
	if opts.Hostname != "" {
		r.URL.Host = opts.Hostname
		r.Headers.Replace("Host", opts.Hostname)
	}

	// h2 captures leave statusText empty; the live response always has one.
	text := strings.TrimSpace(resp.StatusText)
	if text == "" {
		text = http.StatusText(resp.Status)
	}
	statusLine := normalizeProto(resp.HTTPVersion) + " " + strconv.Itoa(resp.Status)
	if text != "" {
		statusLine += " " + text
	}
	expected := transcript.Response{
		StatusLine: statusLine,
		Headers:    responseHeaders(resp.Headers, opts.ReuseCookies),
	}

	x := transcript.Exchange{
		Request:     r,
		Expected:    expected,
		RequestSize: r.WireSize(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, entry.StartedDateTime); err == nil {
		x.Timestamp = ts
	}
	return x, true
}

// normalizeProto maps the version spellings browsers write to the protocol
// the replay speaks. Replays always run over HTTP/1.1, so h2 and h3 captures
// expect HTTP/1.1 status lines.
func normalizeProto(version string) string {
	v := strings.ToLower(strings.TrimSpace(version))
	switch v {
	case "", "http/1.1", "h2", "http/2", "http/2.0", "h3", "http/3", "http/3.0":
		return "HTTP/1.1"
	case "http/1.0":
		return "HTTP/1.0"
	}
	return strings.ToUpper(v)
}

// requestHeaders drops HTTP/2 pseudo-headers and hop-by-hop headers. A Host
// header is synthesized from :authority captures so the replay keeps the
// recorded virtual host.
func requestHeaders(in []*Header, host string, reuseCookies bool) transcript.Headers {
	var out transcript.Headers
	for _, h := range in {
		if h == nil || h.Name == "" || strings.HasPrefix(h.Name, ":") {
			continue
		}
		lower := strings.ToLower(h.Name)
		if hopByHopHeaders[lower] {
			continue
		}
		if lower == "cookie" && !reuseCookies {
			continue
		}
		out = append(out, transcript.Field{Name: h.Name, Value: h.Value})
	}
	if !out.Has("Host") {
		out = append(transcript.Headers{{Name: "Host", Value: host}}, out...)
	}
	return out
}

func responseHeaders(in []*Header, reuseCookies bool) transcript.Headers {
	var out transcript.Headers
	for _, h := range in {
		if h == nil || h.Name == "" || strings.HasPrefix(h.Name, ":") {
			continue
		}
		if !reuseCookies && strings.EqualFold(h.Name, "Set-Cookie") {
			continue
		}
		out = append(out, transcript.Field{Name: h.Name, Value: h.Value})
	}
	return out
}
