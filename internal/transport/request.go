// Package transport sends protocol requests and applies the policy every
// request shares: bounded retries on server failure, device authentication
// challenges and decoding of structured error bodies.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Doer issues a single HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DeviceAuthHandler answers a device authentication challenge with the value
// of the Authorization header to resend the request with.
type DeviceAuthHandler interface {
	Handle(ctx context.Context, challenge string, requestURL *url.URL) (string, error)
}

// Request is an immutable request template. Execute works on copies, so a
// template can be reused across executions.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy.
func (r Request) Clone() Request {
	c := r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if r.URL != nil {
		u := *r.URL
		c.URL = &u
	}
	c.Body = bytes.Clone(r.Body)
	return c
}

// WithHeader returns a copy with key set to value.
func (r Request) WithHeader(key, value string) Request {
	c := r.Clone()
	c.Header.Set(key, value)
	return c
}

func (r Request) httpRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	return req, nil
}

// Policy bounds the retries of one execution. The counter is copied into
// every execution and never shared.
type Policy struct {
	RetryCount    int
	RetryInterval time.Duration
}

// Response is a successful (2xx) exchange with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ErrorDecoder turns a 400/401 body into a typed error. It reports false
// when the body is not an envelope it recognises.
type ErrorDecoder func(body []byte) (error, bool)
