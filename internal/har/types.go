// Package har imports HTTP Archive (HAR 1.2) captures as replayable sessions.
//
// Only the fields needed to rebuild the exchanges are decoded; pages, cache
// and timing details are ignored.
package har

// HAR is the top-level archive document.
type HAR struct {
	Log *Log `json:"log"`
}

// Log holds the recorded entries.
type Log struct {
	Version string   `json:"version"`
	Creator *Creator `json:"creator"`
	Entries []*Entry `json:"entries"`
}

// Creator describes the application that created the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is a single request/response pair.
type Entry struct {
	StartedDateTime string    `json:"startedDateTime"`
	Time            float64   `json:"time"`
	Request         *Request  `json:"request"`
	Response        *Response `json:"response"`
}

// Request describes an HTTP request.
type Request struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	HTTPVersion string    `json:"httpVersion"`
	Headers     []*Header `json:"headers"`
	PostData    *PostData `json:"postData,omitempty"`
}

// Response describes an HTTP response.
type Response struct {
	Status      int       `json:"status"`
	StatusText  string    `json:"statusText"`
	HTTPVersion string    `json:"httpVersion"`
	Headers     []*Header `json:"headers"`
}

// Header is a name-value pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData is the request body.
type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
}
