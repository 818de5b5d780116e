package nativeauth

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/nativeauth/internal/transport"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
)

// errorInfo is shared by every public error type.
type errorInfo struct {
	// Message is safe to show a developer; it may contain the server's
	// error description.
	Message       string
	CorrelationID string
	// ErrorCodes are the server's numeric error codes, if any.
	ErrorCodes []int
	// Err is the underlying cause.
	Err error
}

func (e errorInfo) format(kind fmt.Stringer) string {
	if e.Message == "" {
		return kind.String()
	}
	return kind.String() + ": " + e.Message
}

// ============================================================================
// Sign in
// ============================================================================

type SignInErrorType int

const (
	SignInGeneralError SignInErrorType = iota
	SignInUserNotFound
	SignInInvalidCredentials
	SignInInvalidCode
	SignInInvalidPassword
)

func (t SignInErrorType) String() string {
	switch t {
	case SignInUserNotFound:
		return "user not found"
	case SignInInvalidCredentials:
		return "invalid credentials"
	case SignInInvalidCode:
		return "invalid code"
	case SignInInvalidPassword:
		return "invalid password"
	default:
		return "general error"
	}
}

type SignInError struct {
	Type SignInErrorType
	errorInfo
}

func (e *SignInError) Error() string { return "sign in: " + e.format(e.Type) }
func (e *SignInError) Unwrap() error { return e.Err }

// ============================================================================
// Sign up
// ============================================================================

type SignUpErrorType int

const (
	SignUpGeneralError SignUpErrorType = iota
	SignUpUserAlreadyExists
	SignUpInvalidPassword
	SignUpInvalidAttributes
	SignUpInvalidCode
)

func (t SignUpErrorType) String() string {
	switch t {
	case SignUpUserAlreadyExists:
		return "user already exists"
	case SignUpInvalidPassword:
		return "invalid password"
	case SignUpInvalidAttributes:
		return "invalid attributes"
	case SignUpInvalidCode:
		return "invalid code"
	default:
		return "general error"
	}
}

type SignUpError struct {
	Type SignUpErrorType
	// InvalidAttributes names the rejected attributes for
	// SignUpInvalidAttributes.
	InvalidAttributes []string
	errorInfo
}

func (e *SignUpError) Error() string { return "sign up: " + e.format(e.Type) }
func (e *SignUpError) Unwrap() error { return e.Err }

// ============================================================================
// Reset password
// ============================================================================

type ResetPasswordErrorType int

const (
	ResetPasswordGeneralError ResetPasswordErrorType = iota
	ResetPasswordUserNotFound
	ResetPasswordUserDoesNotHavePassword
	ResetPasswordInvalidCode
	ResetPasswordInvalidPassword
	ResetPasswordFailed
)

func (t ResetPasswordErrorType) String() string {
	switch t {
	case ResetPasswordUserNotFound:
		return "user not found"
	case ResetPasswordUserDoesNotHavePassword:
		return "user does not have a password"
	case ResetPasswordInvalidCode:
		return "invalid code"
	case ResetPasswordInvalidPassword:
		return "invalid password"
	case ResetPasswordFailed:
		return "password reset failed"
	default:
		return "general error"
	}
}

type ResetPasswordError struct {
	Type ResetPasswordErrorType
	errorInfo
}

func (e *ResetPasswordError) Error() string { return "reset password: " + e.format(e.Type) }
func (e *ResetPasswordError) Unwrap() error { return e.Err }

// ============================================================================
// Access token
// ============================================================================

type RetrieveAccessTokenErrorType int

const (
	RetrieveAccessTokenGeneralError RetrieveAccessTokenErrorType = iota
	RetrieveAccessTokenRefreshTokenExpired
)

func (t RetrieveAccessTokenErrorType) String() string {
	if t == RetrieveAccessTokenRefreshTokenExpired {
		return "refresh token expired"
	}
	return "general error"
}

type RetrieveAccessTokenError struct {
	Type RetrieveAccessTokenErrorType
	errorInfo
}

func (e *RetrieveAccessTokenError) Error() string { return "access token: " + e.format(e.Type) }
func (e *RetrieveAccessTokenError) Unwrap() error { return e.Err }

// ============================================================================
// Conversion
// ============================================================================

// infoFromDomain carries a recognised server error to the public surface.
func infoFromDomain(de validator.DomainError) errorInfo {
	return errorInfo{
		Message:       de.Description,
		CorrelationID: de.CorrelationID,
		ErrorCodes:    de.ErrorCodes,
		Err:           de,
	}
}

func infoFromPassword(pe validator.PasswordError) errorInfo {
	return errorInfo{
		Message:       pe.Description,
		CorrelationID: pe.CorrelationID,
		ErrorCodes:    pe.ErrorCodes,
		Err:           pe,
	}
}

// infoFromCause describes a failure that never produced a recognised
// server error: construction, transport or an unexpected response.
func infoFromCause(cause error, correlationID string) errorInfo {
	msg := "unexpected error"
	var (
		httpErr *transport.HTTPError
		netErr  *transport.NetworkError
		devErr  *transport.DeviceAuthError
	)
	switch {
	case cause == nil:
	case errors.As(cause, &netErr):
		msg = "network error"
	case errors.As(cause, &devErr):
		msg = "device authentication failed"
	case errors.As(cause, &httpErr) && httpErr.ServerUnavailable:
		msg = "server unavailable"
	default:
		msg = cause.Error()
	}
	return errorInfo{Message: msg, CorrelationID: correlationID, Err: cause}
}

func unexpectedCause(u validator.Unexpected) error {
	if u.Cause != nil {
		return u.Cause
	}
	return errors.New("unexpected response")
}
