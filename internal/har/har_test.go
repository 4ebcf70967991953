package har_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/replayfire/internal/har"
	"github.com/torosent/replayfire/internal/transcript"
)

const archive = `{
  "log": {
    "version": "1.2",
    "creator": {"name": "browser", "version": "1"},
    "entries": [
      {
        "startedDateTime": "2024-03-01T10:00:00.000Z",
        "request": {
          "method": "GET",
          "url": "https://shop.example.com/",
          "httpVersion": "h2",
          "headers": [
            {"name": ":authority", "value": "shop.example.com"},
            {"name": "Accept", "value": "text/html"},
            {"name": "Cookie", "value": "sid=abc"},
            {"name": "Connection", "value": "keep-alive"}
          ]
        },
        "response": {
          "status": 200,
          "statusText": "",
          "httpVersion": "h2",
          "headers": [
            {"name": "Content-Type", "value": "text/html"},
            {"name": "Set-Cookie", "value": "sid=abc; Path=/"},
            {"name": "Keep-Alive", "value": "timeout=5, max=50"}
          ]
        }
      },
      {
        "startedDateTime": "2024-03-01T10:00:02.000Z",
        "request": {
          "method": "GET",
          "url": "https://cdn.example.com/app.js",
          "httpVersion": "HTTP/1.1",
          "headers": [{"name": "Host", "value": "cdn.example.com"}]
        },
        "response": {"status": 304, "statusText": "Not Modified", "httpVersion": "HTTP/1.1", "headers": []}
      },
      {
        "startedDateTime": "2024-03-01T10:00:03.000Z",
        "request": {
          "method": "POST",
          "url": "https://shop.example.com/cart",
          "httpVersion": "HTTP/1.1",
          "headers": [{"name": "Content-Type", "value": "application/json"}],
          "postData": {"mimeType": "application/json", "text": "{\"sku\":42}"}
        },
        "response": {"status": 201, "statusText": "", "httpVersion": "HTTP/1.1", "headers": []}
      },
      {
        "startedDateTime": "2024-03-01T10:00:04.000Z",
        "request": {"method": "GET", "url": "https://shop.example.com/aborted", "headers": []},
        "response": {"status": 0, "statusText": "", "httpVersion": "", "headers": []}
      }
    ]
  }
}`

func parseArchive(t *testing.T) *har.HAR {
	t.Helper()
	h, err := har.Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return h
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "invalid json", input: "{not json"},
		{name: "missing log", input: `{"version": "1.2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := har.Parse(strings.NewReader(tt.input))
			if !errors.Is(err, transcript.ErrIO) {
				t.Fatalf("Parse() error = %v, want ErrIO", err)
			}
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.har")
	_, err := har.ParseFile(path)
	var ioErr *transcript.IOError
	if !errors.As(err, &ioErr) || ioErr.Path != path {
		t.Fatalf("ParseFile() error = %v, want IOError for %s", err, path)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := har.ParseFilter("host: a.example.com , b.example.com; method:GET,post; exclude_static")
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if len(f.Hosts) != 2 || f.Hosts[1] != "b.example.com" {
		t.Errorf("Hosts = %v", f.Hosts)
	}
	if len(f.Methods) != 2 || f.Methods[1] != "post" {
		t.Errorf("Methods = %v", f.Methods)
	}
	if !f.ExcludeStatic {
		t.Error("ExcludeStatic = false")
	}

	if f, err := har.ParseFilter(""); err != nil || len(f.Hosts) != 0 || f.ExcludeStatic {
		t.Errorf("ParseFilter(\"\") = %+v, %v", f, err)
	}
	if _, err := har.ParseFilter("path:/api"); err == nil {
		t.Error("expected an error for an unknown key")
	}
}

func TestFilterIncludes(t *testing.T) {
	req := func(method, u string) *har.Request { return &har.Request{Method: method, URL: u} }
	tests := []struct {
		name   string
		filter har.Filter
		req    *har.Request
		want   bool
	}{
		{name: "empty filter", filter: har.Filter{}, req: req("GET", "https://a.example.com/x.js"), want: true},
		{name: "host match", filter: har.Filter{Hosts: []string{"A.example.com"}}, req: req("GET", "https://a.example.com/"), want: true},
		{name: "host miss", filter: har.Filter{Hosts: []string{"b.example.com"}}, req: req("GET", "https://a.example.com/"), want: false},
		{name: "method match", filter: har.Filter{Methods: []string{"post"}}, req: req("POST", "https://a.example.com/"), want: true},
		{name: "method miss", filter: har.Filter{Methods: []string{"GET"}}, req: req("POST", "https://a.example.com/"), want: false},
		{name: "static excluded", filter: har.Filter{ExcludeStatic: true}, req: req("GET", "https://a.example.com/logo.PNG"), want: false},
		{name: "nil request", filter: har.Filter{}, req: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Includes(tt.req); got != tt.want {
				t.Errorf("Includes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToSession(t *testing.T) {
	session, err := har.ToSession(parseArchive(t), har.Filter{}, transcript.Options{Delay: true})
	if err != nil {
		t.Fatalf("ToSession() error = %v", err)
	}

	kinds := make([]transcript.Kind, 0, len(session.Entries))
	for _, e := range session.Entries {
		kinds = append(kinds, e.Kind)
	}
	want := []transcript.Kind{transcript.KindExchange, transcript.KindDelay, transcript.KindExchange, transcript.KindDelay, transcript.KindExchange}
	if len(kinds) != len(want) {
		t.Fatalf("entry kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("entry kinds = %v, want %v", kinds, want)
		}
	}
	if session.Entries[1].Delay != 2*time.Second || session.Entries[3].Delay != time.Second {
		t.Errorf("delays = %v, %v", session.Entries[1].Delay, session.Entries[3].Delay)
	}
	if session.TotalDelay != 3*time.Second {
		t.Errorf("TotalDelay = %v, want 3s", session.TotalDelay)
	}
	if session.KeepAliveMax != 50 || session.KeepAliveTimeout != 5*time.Second {
		t.Errorf("keep-alive = %d/%v, want 50/5s", session.KeepAliveMax, session.KeepAliveTimeout)
	}

	exchanges := session.Exchanges()
	first := exchanges[0]
	// Captured over h2 without a status text; the replay speaks HTTP/1.1.
	if first.Position != 1 || first.Expected.StatusLine != "HTTP/1.1 200 OK" {
		t.Errorf("first = position %d, status %q", first.Position, first.Expected.StatusLine)
	}
	if first.Request.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q", first.Request.Proto)
	}
	if host, _ := first.Request.Headers.Get("Host"); host != "shop.example.com" {
		t.Errorf("Host = %q", host)
	}
	for _, name := range []string{":authority", "Cookie", "Connection"} {
		if first.Request.Headers.Has(name) {
			t.Errorf("request header %s was kept", name)
		}
	}
	if first.Expected.Headers.Has("Set-Cookie") {
		t.Error("Set-Cookie was kept without cookie reuse")
	}

	post := exchanges[2]
	if post.Position != 3 || string(post.Request.Body) != `{"sku":42}` || post.Request.ContentLength != 10 {
		t.Errorf("post = position %d, body %q, length %d", post.Position, post.Request.Body, post.Request.ContentLength)
	}
	if post.Expected.StatusLine != "HTTP/1.1 201 Created" {
		t.Errorf("StatusLine = %q", post.Expected.StatusLine)
	}
	if post.RequestSize != post.Request.WireSize() {
		t.Errorf("RequestSize = %d, want %d", post.RequestSize, post.Request.WireSize())
	}
}

func TestToSessionOptions(t *testing.T) {
	filter, err := har.ParseFilter("exclude_static")
	if err != nil {
		t.Fatal(err)
	}
	session, err := har.ToSession(parseArchive(t), filter, transcript.Options{
		Hostname:     "staging.example.com",
		ReuseCookies: true,
		KeepAlive:    true,
		MaxEntries:   1,
	})
	if err != nil {
		t.Fatalf("ToSession() error = %v", err)
	}
	if session.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", session.Len())
	}
	if session.KeepAliveMax != 0 {
		t.Errorf("KeepAliveMax = %d, want 0 when keep-alive is forced", session.KeepAliveMax)
	}

	x := session.Exchanges()[0]
	if x.Request.URL.Host != "staging.example.com" {
		t.Errorf("URL host = %q", x.Request.URL.Host)
	}
	if host, _ := x.Request.Headers.Get("Host"); host != "staging.example.com" {
		t.Errorf("Host header = %q", host)
	}
	if !x.Request.Headers.Has("Cookie") || !x.Expected.Headers.Has("Set-Cookie") {
		t.Error("cookies were stripped despite reuse")
	}
}

func TestToSessionNil(t *testing.T) {
	if _, err := har.ToSession(nil, har.Filter{}, transcript.Options{}); err == nil {
		t.Fatal("expected an error for a nil archive")
	}
}
