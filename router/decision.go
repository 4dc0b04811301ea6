package router

import (
	"fmt"
	"net/http"
)

// Decision is the outcome of routing one request: exactly one of Remote
// or Reject is set.
type Decision struct {
	// Remote is the "host:port" a caller should forward the request to,
	// or a bare host for a request to the management domain.
	Remote string

	// Reject is non-nil when the request should not be forwarded.
	Reject *Rejection
}

// Rejection is a response to send back in place of forwarding, mirroring
// the source's _reject: a raw HTTP/1.0 status line plus body, since the
// director speaks to its caller below the level of a real HTTP response
// writer (spec.md §4.5).
type Rejection struct {
	StatusCode int
	Body       string
}

// reject builds a Decision that closes the connection with an HTTP/1.0
// status line. An empty reason defaults to the status text.
func reject(code int, reason string) Decision {
	if reason == "" {
		reason = http.StatusText(code)
	}
	return Decision{Reject: &Rejection{StatusCode: code, Body: reason}}
}

// Raw renders the rejection as the literal bytes the source wrote to the
// client: "HTTP/1.0 <code> <reason>\r\n\r\n<body>".
func (r *Rejection) Raw() string {
	return fmt.Sprintf("HTTP/1.0 %d %s\r\n\r\n%s", r.StatusCode, http.StatusText(r.StatusCode), r.Body)
}
