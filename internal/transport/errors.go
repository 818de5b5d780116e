package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoURL is returned by Execute for a request without a URL. Nothing
	// is sent.
	ErrNoURL = errors.New("transport: request has no url")

	// ErrNoDeviceAuthHandler is returned when the service demands device
	// authentication and no handler is configured.
	ErrNoDeviceAuthHandler = errors.New("transport: device authentication required but no handler configured")

	// ErrDeviceAuthRejected is returned when the service challenges again
	// after a negotiated resend.
	ErrDeviceAuthRejected = errors.New("transport: device authentication rejected")
)

// NetworkError is a failure below HTTP: nothing came back.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-success response the protocol layer could not decode.
type HTTPError struct {
	StatusCode int
	Reason     string
	Header     http.Header

	// ServerUnavailable marks 5xx responses, returned once retries ran out.
	ServerUnavailable bool
}

func newHTTPError(resp *Response) *HTTPError {
	return &HTTPError{
		StatusCode:        resp.StatusCode,
		Reason:            http.StatusText(resp.StatusCode),
		Header:            resp.Header,
		ServerUnavailable: resp.StatusCode >= 500 && resp.StatusCode <= 599,
	}
}

func (e *HTTPError) Error() string {
	if e.ServerUnavailable {
		return fmt.Sprintf("server unavailable: http %d %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("http %d %s", e.StatusCode, e.Reason)
}

// EnvelopeError pairs a decoded error envelope with the HTTP error it came
// from. errors.As reaches both.
type EnvelopeError struct {
	Envelope error
	HTTP     *HTTPError
}

func (e *EnvelopeError) Error() string   { return e.Envelope.Error() }
func (e *EnvelopeError) Unwrap() []error { return []error{e.Envelope, e.HTTP} }

// DeviceAuthError wraps a failed device authentication negotiation.
type DeviceAuthError struct {
	Err error
}

func (e *DeviceAuthError) Error() string { return "device authentication failed: " + e.Err.Error() }
func (e *DeviceAuthError) Unwrap() error { return e.Err }
