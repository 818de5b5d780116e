package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/sethvargo/go-retry"
)

const (
	// DeviceAuthScheme marks a WWW-Authenticate challenge for device auth.
	DeviceAuthScheme = "PKeyAuth"

	maxBodyBytes = 1 << 20
)

// Executor is the only component allowed to resend a request.
type Executor struct {
	doer       Doer
	deviceAuth DeviceAuthHandler
}

// NewExecutor returns an Executor. deviceAuth may be nil, in which case a
// device challenge fails with ErrNoDeviceAuthHandler.
func NewExecutor(doer Doer, deviceAuth DeviceAuthHandler) *Executor {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Executor{doer: doer, deviceAuth: deviceAuth}
}

// Execute sends req and returns exactly one outcome:
//
//   - 2xx: the response.
//   - no response: *NetworkError, never retried.
//   - 5xx: resent after RetryInterval while retries remain, then *HTTPError
//     with ServerUnavailable set.
//   - 400/401 carrying a PKeyAuth challenge: negotiated through the device
//     auth handler and resent with an Authorization header, or
//     *DeviceAuthError. Error decoding is skipped entirely.
//   - other 400/401: *EnvelopeError when decode recognises the body,
//     otherwise *HTTPError.
//   - anything else: *HTTPError.
//
// Cancelling ctx stops the retry chain.
func (e *Executor) Execute(ctx context.Context, req Request, policy Policy, decode ErrorDecoder) (*Response, error) {
	log := slogx.FromContext(ctx)
	if req.URL == nil {
		return nil, ErrNoURL
	}

	remaining := max(policy.RetryCount, 0)
	interval := policy.RetryInterval
	if interval <= 0 {
		interval = time.Nanosecond
	}
	backoff := retry.WithMaxRetries(uint64(remaining), retry.NewConstant(interval))

	current := req.Clone()
	negotiated := false

	var out *Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		for {
			resp, err := e.send(ctx, current)
			if err != nil {
				log.Warn("request failed without a response", "path", current.URL.Path, "error", err)
				return &NetworkError{Err: err}
			}

			switch {
			case resp.StatusCode >= 200 && resp.StatusCode <= 299:
				out = resp
				return nil

			case resp.StatusCode >= 500 && resp.StatusCode <= 599:
				httpErr := newHTTPError(resp)
				if remaining > 0 {
					remaining--
					log.Debug("retrying request", "status", resp.StatusCode, "retries_left", remaining)
					return retry.RetryableError(httpErr)
				}
				log.Warn("server unavailable", "status", resp.StatusCode)
				return httpErr

			case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
				if challenge, ok := deviceAuthChallenge(resp.Header); ok {
					if negotiated {
						return &DeviceAuthError{Err: ErrDeviceAuthRejected}
					}
					value, err := e.negotiate(ctx, challenge, current)
					if err != nil {
						log.Warn("device authentication failed", "error", err)
						return &DeviceAuthError{Err: err}
					}
					negotiated = true
					current = current.WithHeader("Authorization", value)
					log.Debug("resending request with device authentication")
					continue
				}

				httpErr := newHTTPError(resp)
				if decode != nil {
					if envelope, ok := decode(resp.Body); ok {
						log.Warn("request returned an error",
							"status", resp.StatusCode,
							"error", slogx.MaskPII(envelope.Error()),
						)
						return &EnvelopeError{Envelope: envelope, HTTP: httpErr}
					}
				}
				log.Warn("request returned an undecodable error", "status", resp.StatusCode)
				return httpErr

			default:
				log.Warn("request returned an unexpected status", "status", resp.StatusCode)
				return newHTTPError(resp)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Executor) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := e.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (e *Executor) negotiate(ctx context.Context, challenge string, req Request) (string, error) {
	if e.deviceAuth == nil {
		return "", ErrNoDeviceAuthHandler
	}
	return e.deviceAuth.Handle(ctx, challenge, req.URL)
}

func deviceAuthChallenge(h http.Header) (string, bool) {
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.Contains(v, DeviceAuthScheme) {
			return v, true
		}
	}
	return "", false
}
