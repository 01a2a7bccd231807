package types

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPRequest is a single request handed to a request executor
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    *string
}

// HTTPResponse is what an executor returns for a completed request
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Latency    time.Duration
}

// TransportError covers every way a request can fail to produce a response:
// connection failures, timeouts and unreadable responses.
type TransportError struct {
	Op      string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPRequest converts the finding's request into an executor request
func (r FindingRequest) HTTPRequest() HTTPRequest {
	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	return HTTPRequest{
		Method:  r.Method,
		URL:     r.URL,
		Headers: headers,
		Body:    r.Body,
	}
}
