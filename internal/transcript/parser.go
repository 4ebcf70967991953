package transcript

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ProtocolMarker starts every response status line.
const ProtocolMarker = "HTTP/"

var requestLinePattern = regexp.MustCompile(`^(GET|HEAD|POST|PUT|DELETE|CONNECT|OPTIONS|TRACE|PATCH)\s+(\S+)\s+(HTTP/\d(?:\.\d)?)\s*$`)

var statusLinePattern = regexp.MustCompile(`^HTTP/\d(?:\.\d)?\s+\d{3}\b`)

// Options control how a transcript becomes a session.
type Options struct {
	// Delay inserts think-time pauses inferred from response Date headers.
	Delay bool
	// MaxDelay caps every inferred pause. Zero means uncapped.
	MaxDelay time.Duration
	// Hostname, when set, replaces the host of every request, port
	// included: a recorded ":8080" is dropped unless Hostname repeats it.
	Hostname string
	// ReuseCookies keeps recorded Cookie and Set-Cookie headers.
	ReuseCookies bool
	// KeepAlive reports that the transport already reuses connections, in
	// which case recorded Keep-Alive budgets are ignored.
	KeepAlive bool
	// MaxEntries stops parsing once that many exchanges were captured.
	// Zero means no limit.
	MaxEntries int
}

// Exchange is a parsed block before session-wide rules are applied.
type Exchange struct {
	Request     Request
	Expected    Response
	RequestSize int64
	// Timestamp is when the exchange happened in the capture, zero if unknown.
	Timestamp time.Time
}

// ParseFile parses the transcript stored at path.
func ParseFile(path string, opts Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	session, err := Parse(f, opts)
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		ioErr.Path = path
	}
	return session, err
}

// Parse reads a transcript from r.
func Parse(r io.Reader, opts Options) (*Session, error) {
	blocks, err := Lex(r)
	if err != nil {
		return nil, &IOError{Err: err}
	}

	builder := NewBuilder(opts)
	for _, block := range blocks {
		if builder.Full() {
			break
		}
		exchange, ok, err := ParseBlock(block, opts)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		builder.Add(exchange)
	}
	return builder.Session(), nil
}

// ParseBlock turns one block into an exchange. ok is false when the block has
// no usable URL, request or response; such blocks are skipped by Parse.
func ParseBlock(b Block, opts Options) (Exchange, bool, error) {
	lines := b.Lines
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return Exchange{}, false, nil
	}
	target, err := url.Parse(strings.TrimSpace(lines[i]))
	if err != nil || !target.IsAbs() || target.Host == "" {
		return Exchange{}, false, nil
	}
	i++

	var match []string
	for ; i < len(lines); i++ {
		if match = requestLinePattern.FindStringSubmatch(strings.TrimSpace(lines[i])); match != nil {
			break
		}
	}
	if match == nil {
		return Exchange{}, false, nil
	}
	i++

	declared := -1
	var requestLines []string
	for ; i < len(lines) && !strings.HasPrefix(lines[i], ProtocolMarker); i++ {
		line := lines[i]
		if name, value, ok := splitHeader(line); ok {
			if declared < 0 && strings.EqualFold(name, "Content-Length") {
				if n, err := strconv.Atoi(value); err == nil && n >= 0 {
					declared = n
				}
			}
			if !opts.ReuseCookies && strings.EqualFold(name, "Cookie") {
				continue
			}
		}
		requestLines = append(requestLines, line)
	}
	if i == len(lines) {
		return Exchange{}, false, nil
	}

	text := strings.Join(trimTrailingEmpty(requestLines), "\n")
	head, body := strings.TrimRight(text, "\r"), []byte(nil)
	if declared > 0 {
		head, body, err = splitRecordedBody(text, declared)
		if err != nil {
			var malformed *MalformedInputError
			if errors.As(err, &malformed) {
				malformed.Block = b.Index
				malformed.URL = target.String()
			}
			return Exchange{}, false, err
		}
	}

	req := Request{
		Method:        match[1],
		URL:           target,
		Proto:         match[3],
		Headers:       parseHeaderLines(strings.Split(head, "\n"), nil),
		Body:          body,
		ContentLength: int64(declared),
	}
	if opts.Hostname != "" {
		req.URL.Host = opts.Hostname
		req.Headers.Replace("Host", opts.Hostname)
	}

	statusLine := strings.TrimSpace(lines[i])
	if !statusLinePattern.MatchString(statusLine) {
		return Exchange{}, false, nil
	}
	var drop func(string) bool
	if !opts.ReuseCookies {
		drop = func(name string) bool { return strings.EqualFold(name, "Set-Cookie") }
	}
	expected := Response{
		StatusLine: statusLine,
		Headers:    parseHeaderLines(lines[i+1:], drop),
	}

	exchange := Exchange{
		Request:     req,
		Expected:    expected,
		RequestSize: req.WireSize(),
	}
	if date, ok := expected.Date(); ok {
		exchange.Timestamp = date
	}
	return exchange, true, nil
}

// SplitBody treats the last n bytes of text as the request body and returns
// the remaining header text. The body must start on a line boundary, otherwise
// the capture tool misaligned body and headers and a *MalformedInputError is
// returned.
func SplitBody(text string, n int) (string, []byte, error) {
	if n <= 0 {
		return text, nil, nil
	}
	if len(text) < n {
		return "", nil, &MalformedInputError{Declared: n, Actual: len(text)}
	}
	cut := len(text) - n
	if cut > 0 && text[cut-1] != '\n' {
		start := strings.LastIndexByte(text[:cut], '\n') + 1
		return "", nil, &MalformedInputError{Declared: n, Actual: len(text) - start}
	}
	return strings.TrimRight(text[:cut], "\r\n"), []byte(text[cut:]), nil
}

// splitRecordedBody cuts the body out of the raw request text. The line
// ending the body is either the capture's own separator or, when the body
// itself ends with a newline (multipart), part of the body. Both readings
// are tried; the error of the first is reported when neither aligns.
func splitRecordedBody(text string, n int) (string, []byte, error) {
	head, body, err := SplitBody(strings.TrimSuffix(text, "\r"), n)
	if err == nil {
		return head, body, nil
	}
	if h, b, err2 := SplitBody(text+"\n", n); err2 == nil {
		return h, b, nil
	}
	return head, body, err
}

func splitHeader(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	name := line[:idx]
	if strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	return name, strings.TrimSpace(line[idx+1:]), true
}

func parseHeaderLines(lines []string, drop func(string) bool) Headers {
	var headers Headers
	for _, line := range lines {
		name, value, ok := splitHeader(line)
		if !ok {
			continue
		}
		if drop != nil && drop(name) {
			continue
		}
		headers = append(headers, Field{Name: name, Value: value})
	}
	return headers
}

// String renders an exchange for debug logs.
func (x Exchange) String() string {
	return fmt.Sprintf("%s %s -> %s", x.Request.Method, x.Request.URL, x.Expected.StatusLine)
}
