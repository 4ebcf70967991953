package match_test

import (
	"testing"

	"github.com/torosent/replayfire/internal/match"
	"github.com/torosent/replayfire/internal/transcript"
)

func response(status string, headers ...string) transcript.Response {
	r := transcript.Response{StatusLine: status}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Headers = append(r.Headers, transcript.Field{Name: headers[i], Value: headers[i+1]})
	}
	return r
}

func TestStatusOnlyIgnoresHeaders(t *testing.T) {
	p := match.StatusOnly()
	expected := response("HTTP/1.1 200 OK", "Content-Type", "text/html")

	if !p.Matches(expected, response("HTTP/1.1 200 OK", "Content-Type", "application/json")) {
		t.Error("equal status lines should match regardless of headers")
	}
	if !p.Matches(expected, response("HTTP/1.1 200 OK")) {
		t.Error("missing headers should not matter for status-only matching")
	}
	if p.Matches(expected, response("HTTP/1.1 200 Ok")) {
		t.Error("status lines differing in case must not match")
	}
	if p.Matches(expected, response("HTTP/1.0 200 OK")) {
		t.Error("status lines differing in protocol must not match")
	}
}

func TestStatusAndHeaders(t *testing.T) {
	p := match.StatusAndHeaders("content-type", "X-Cache")
	expected := response("HTTP/1.1 200 OK", "Content-Type", "text/html", "X-Cache", "HIT", "Server", "a")

	tests := []struct {
		name   string
		actual transcript.Response
		want   bool
	}{
		{
			name:   "all configured headers equal",
			actual: response("HTTP/1.1 200 OK", "content-type", "text/html", "x-cache", "HIT", "Server", "b"),
			want:   true,
		},
		{
			name:   "header value differs",
			actual: response("HTTP/1.1 200 OK", "Content-Type", "text/html", "X-Cache", "MISS"),
		},
		{
			name:   "header missing on live side",
			actual: response("HTTP/1.1 200 OK", "Content-Type", "text/html"),
		},
		{
			name:   "status differs",
			actual: response("HTTP/1.1 500 Internal Server Error", "Content-Type", "text/html", "X-Cache", "HIT"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Matches(expected, tt.actual); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusAndHeadersMissingOnExpectedSide(t *testing.T) {
	p := match.StatusAndHeaders("ETag")
	expected := response("HTTP/1.1 200 OK")
	actual := response("HTTP/1.1 200 OK", "ETag", `"abc"`)
	if p.Matches(expected, actual) {
		t.Error("a header absent from the recorded response must fail the match")
	}
}

func TestNewPolicy(t *testing.T) {
	if got := match.NewPolicy(nil).String(); got != "status" {
		t.Errorf("NewPolicy(nil) = %s, want status", got)
	}
	p := match.NewPolicy([]string{"etag", " ETag ", ""})
	if got := p.Headers(); len(got) != 1 || got[0] != "Etag" {
		t.Errorf("Headers() = %v, want [Etag]", got)
	}
	if got := p.String(); got != "status+Etag" {
		t.Errorf("String() = %s", got)
	}
}

func TestStatusAndHeadersEmptyValue(t *testing.T) {
	p := match.StatusAndHeaders("X-Cache")
	expected := response("HTTP/1.1 200 OK", "X-Cache", "")
	actual := response("HTTP/1.1 200 OK", "X-Cache", "")
	if p.Matches(expected, actual) {
		t.Error("an empty header value must fail the match")
	}
}
