package transcript

import (
	"strconv"
	"strings"
	"time"
)

// DefaultKeepAliveMax is adopted when a recorded Keep-Alive header carries an
// unparsable max parameter.
const DefaultKeepAliveMax = 100

// Builder accumulates exchanges into a Session, applying the session-wide
// rules: think-time delays, keep-alive adoption and the entry cap.
type Builder struct {
	opts      Options
	session   *Session
	exchanges int
	prev      time.Time
	hasPrev   bool
}

// NewBuilder returns an empty builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, session: &Session{}}
}

// Full reports whether the configured entry cap was reached.
func (b *Builder) Full() bool {
	return b.opts.MaxEntries > 0 && b.exchanges >= b.opts.MaxEntries
}

// Add appends x to the session, preceded by a delay entry when delays are
// enabled and the capture shows a positive gap since the previous exchange.
// It returns false when the builder is already full.
func (b *Builder) Add(x Exchange) bool {
	if b.Full() {
		return false
	}

	b.adoptKeepAlive(x.Expected)

	if b.opts.Delay && b.exchanges > 0 {
		if d, ok := InferDelay(b.prev, b.hasPrev, x.Timestamp, b.opts.MaxDelay); ok {
			b.session.Entries = append(b.session.Entries, Entry{Kind: KindDelay, Delay: d})
			b.session.TotalDelay += d
		}
	}

	b.exchanges++
	b.session.Entries = append(b.session.Entries, Entry{
		Kind:        KindExchange,
		Position:    b.exchanges,
		Request:     x.Request,
		Expected:    x.Expected,
		RequestSize: x.RequestSize,
	})
	b.prev, b.hasPrev = x.Timestamp, !x.Timestamp.IsZero()
	return true
}

// Session returns the built session. The builder must not be used afterwards.
func (b *Builder) Session() *Session {
	return b.session
}

// InferDelay computes the pause between two captured exchanges. A delay is
// only produced when both timestamps are known and the gap is positive; it is
// clamped to maxDelay when maxDelay > 0.
func InferDelay(prev time.Time, hasPrev bool, current time.Time, maxDelay time.Duration) (time.Duration, bool) {
	if !hasPrev || current.IsZero() {
		return 0, false
	}
	d := current.Sub(prev)
	if d <= 0 {
		return 0, false
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d, true
}

func (b *Builder) adoptKeepAlive(resp Response) {
	if b.opts.KeepAlive || b.session.KeepAliveMax > 0 {
		return
	}
	raw, ok := resp.Headers.Get("Keep-Alive")
	if !ok {
		return
	}
	budget, timeout := ParseKeepAlive(raw)
	b.session.KeepAliveMax = budget
	b.session.KeepAliveTimeout = timeout
}

// ParseKeepAlive reads the max and timeout parameters of a Keep-Alive header
// value such as "timeout=15, max=100". An unparsable or missing max yields
// DefaultKeepAliveMax.
func ParseKeepAlive(value string) (int, time.Duration) {
	budget := DefaultKeepAliveMax
	var timeout time.Duration
	for _, part := range strings.Split(value, ",") {
		key, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "max":
			if err == nil && n > 0 {
				budget = n
			}
		case "timeout":
			if err == nil && n > 0 {
				timeout = time.Duration(n) * time.Second
			}
		}
	}
	return budget, timeout
}
