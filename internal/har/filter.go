package har

import (
	"fmt"
	"net/url"
	"strings"
)

// Filter selects which archive entries are replayed. Empty lists match
// everything.
type Filter struct {
	Hosts         []string
	Methods       []string
	ExcludeStatic bool
}

var staticExtensions = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
	".woff", ".woff2", ".ttf", ".eot", ".ico", ".map",
}

// ParseFilter parses a filter expression. Format examples:
//   - "host:example.com"
//   - "host:api.example.com,cdn.example.com"
//   - "method:GET,POST"
//   - "host:example.com;method:GET;exclude_static"
func ParseFilter(expr string) (Filter, error) {
	var f Filter
	for _, part := range strings.Split(expr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, ":")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "host":
			f.Hosts = splitList(value)
		case "method":
			f.Methods = splitList(value)
		case "exclude_static":
			value = strings.ToLower(strings.TrimSpace(value))
			f.ExcludeStatic = value == "" || value == "true"
		default:
			return Filter{}, fmt.Errorf("unknown HAR filter key %q", key)
		}
	}
	return f, nil
}

// Includes reports whether req passes the filter.
func (f Filter) Includes(req *Request) bool {
	if req == nil {
		return false
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}

	if len(f.Hosts) > 0 && !containsFold(f.Hosts, u.Host) {
		return false
	}
	if len(f.Methods) > 0 && !containsFold(f.Methods, req.Method) {
		return false
	}
	if f.ExcludeStatic && isStaticAsset(u.Path) {
		return false
	}
	return true
}

func isStaticAsset(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
