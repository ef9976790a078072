package trello

import (
	"fmt"
	"net/http"
)

// TransportError is a network-level failure that persisted after the
// connection retries were exhausted.
type TransportError struct {
	Method   string
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failed after %d attempts: %v", e.Method, e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError is returned when the API answers 429 again after the
// cooldown retry.
type RateLimitError struct {
	Endpoint string
	Body     string
}

func (e *RateLimitError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: rate limited after cooldown: %s", e.Endpoint, e.Body)
	}
	return fmt.Sprintf("%s: rate limited after cooldown", e.Endpoint)
}

// RequestError is any other non-2xx response. Body holds the server-provided
// text when the response carried one.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}
