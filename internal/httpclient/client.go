package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Options configures a replay client.
type Options struct {
	// Timeout bounds every request, zero means no timeout.
	Timeout time.Duration
	// KeepAlive reuses connections without a budget.
	KeepAlive bool
	// KeepAliveMax is the number of requests a connection may serve before it
	// is closed. Zero disables reuse unless KeepAlive is set.
	KeepAliveMax int
	// KeepAliveTimeout is how long an idle connection is kept open.
	KeepAliveTimeout time.Duration
	// Jar overrides the cookie jar. A fresh jar is created when nil.
	Jar http.CookieJar
	// Proxy overrides the proxy from the environment.
	Proxy *url.URL
	// InsecureSkipVerify disables TLS certificate checks.
	InsecureSkipVerify bool
}

// ReusesConnections reports whether the options allow connection reuse.
func (o Options) ReusesConnections() bool {
	return o.KeepAlive || o.KeepAliveMax > 0
}

// NewClient creates a client that never follows redirects and stores cookies
// in its own jar.
func NewClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	jar := opts.Jar
	if jar == nil {
		var err error
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	proxy := http.ProxyFromEnvironment
	if opts.Proxy != nil {
		proxy = http.ProxyURL(opts.Proxy)
	}

	idle := opts.KeepAliveTimeout
	if idle <= 0 {
		idle = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     false,
		DisableKeepAlives:     !opts.ReusesConnections(),
		DisableCompression:    true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       idle,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Captures are HTTP/1.x; an empty map keeps ALPN from negotiating h2.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	var rt http.RoundTripper = transport
	if !opts.KeepAlive && opts.KeepAliveMax > 0 {
		rt = &budgetTransport{base: transport, budget: opts.KeepAliveMax}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// budgetTransport closes idle connections after every budget requests, so a
// sequential caller never sends more than budget requests on one connection.
type budgetTransport struct {
	base   *http.Transport
	budget int

	mu   sync.Mutex
	sent int
}

func (t *budgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	if t.sent > 0 && t.sent%t.budget == 0 {
		t.base.CloseIdleConnections()
	}
	t.sent++
	t.mu.Unlock()
	return t.base.RoundTrip(req)
}

func (t *budgetTransport) CloseIdleConnections() {
	t.base.CloseIdleConnections()
}
