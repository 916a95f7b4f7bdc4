package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request  *http.Request
	// Route is the matched route pattern, e.g. "/query"; empty when no
	// route matched.
	Route    string
	Status   int
	Duration time.Duration
}
