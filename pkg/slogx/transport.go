package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/idx"
)

// RequestIDHeader carries the per-attempt request id to the server.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outbound request. It is the client-side twin of an
// access log: one line per round trip with status and latency.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base, falling back to http.DefaultTransport.
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, reqID)
	}

	logger := t.Logger
	if logger == nil {
		logger = FromContext(r.Context())
	}
	logger = logger.With(
		"req_id", reqID,
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	)

	resp, err := t.Base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request", "status", resp.StatusCode, "duration_ms", duration)
	return resp, nil
}
