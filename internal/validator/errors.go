package validator

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
)

// ErrMissingField marks a success response without a mandatory field.
var ErrMissingField = errors.New("validator: response is missing a required field")

// Kind classifies a DomainError. The set is closed; every allow-listed
// non-password code maps to exactly one Kind.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindInvalidClient
	KindInvalidGrant
	KindExpiredToken
	KindUnsupportedChallengeType
	KindInvalidScope
	KindAuthorizationPending
	KindSlowDown
	KindUserNotFound
	KindUserAlreadyExists
	KindUserDoesNotHavePassword
	KindAttributesRequired
	KindAttributeValidationFailed
	KindVerificationRequired
	KindUnsupportedAuthMethod
	KindCredentialRequired
	KindInvalidOOBValue
)

var kinds = map[errcode.Code]Kind{
	errcode.InvalidRequest:            KindInvalidRequest,
	errcode.InvalidClient:             KindInvalidClient,
	errcode.InvalidGrant:              KindInvalidGrant,
	errcode.ExpiredToken:              KindExpiredToken,
	errcode.UnsupportedChallengeType:  KindUnsupportedChallengeType,
	errcode.InvalidScope:              KindInvalidScope,
	errcode.AuthorizationPending:      KindAuthorizationPending,
	errcode.SlowDown:                  KindSlowDown,
	errcode.UserNotFound:              KindUserNotFound,
	errcode.UserAlreadyExists:         KindUserAlreadyExists,
	errcode.UserDoesNotHavePassword:   KindUserDoesNotHavePassword,
	errcode.AttributesRequired:        KindAttributesRequired,
	errcode.AttributeValidationFailed: KindAttributeValidationFailed,
	errcode.VerificationRequired:      KindVerificationRequired,
	errcode.UnsupportedAuthMethod:     KindUnsupportedAuthMethod,
	errcode.CredentialRequired:        KindCredentialRequired,
	errcode.InvalidOOBValue:           KindInvalidOOBValue,
}

// String returns the wire code the kind was mapped from.
func (k Kind) String() string {
	for code, kind := range kinds {
		if kind == k {
			return string(code)
		}
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DomainError is a recognised protocol error.
type DomainError struct {
	Kind          Kind
	Code          errcode.Code
	Description   string
	CorrelationID string
	ErrorCodes    []int
	ErrorURI      string
}

func (e DomainError) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

// PasswordKind classifies a password policy failure.
type PasswordKind int

const (
	PasswordTooWeak PasswordKind = iota + 1
	PasswordTooShort
	PasswordTooLong
	PasswordRecentlyUsed
	PasswordBanned
)

var passwordKinds = map[errcode.Code]PasswordKind{
	errcode.PasswordTooWeak:      PasswordTooWeak,
	errcode.PasswordTooShort:     PasswordTooShort,
	errcode.PasswordTooLong:      PasswordTooLong,
	errcode.PasswordRecentlyUsed: PasswordRecentlyUsed,
	errcode.PasswordBanned:       PasswordBanned,
}

// PasswordError is a password policy failure.
type PasswordError struct {
	Kind          PasswordKind
	Code          errcode.Code
	Description   string
	CorrelationID string
	ErrorCodes    []int
}

func (e PasswordError) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

// stepError returns the decoded envelope when err carries one for step
// with a code on that step's allow list.
func stepError(step errcode.Step, err error) (*wire.StepError, bool) {
	var se *wire.StepError
	if !errors.As(err, &se) || se.Step != step {
		return nil, false
	}
	if !errcode.AllowList(step).Allows(se.Envelope.Error) {
		return nil, false
	}
	return se, true
}

func correlationOf(env wire.ErrorEnvelope, fallback string) string {
	if env.CorrelationID != "" {
		return env.CorrelationID
	}
	return fallback
}

func domainError(env wire.ErrorEnvelope, correlationID string) (DomainError, bool) {
	kind, ok := kinds[env.Error]
	if !ok {
		return DomainError{}, false
	}
	return DomainError{
		Kind:          kind,
		Code:          env.Error,
		Description:   env.ErrorDescription,
		CorrelationID: correlationOf(env, correlationID),
		ErrorCodes:    env.ErrorCodes,
		ErrorURI:      env.ErrorURI,
	}, true
}

func passwordError(env wire.ErrorEnvelope, correlationID string) (PasswordError, bool) {
	kind, ok := passwordKinds[env.Error]
	if !ok {
		return PasswordError{}, false
	}
	return PasswordError{
		Kind:          kind,
		Code:          env.Error,
		Description:   env.ErrorDescription,
		CorrelationID: correlationOf(env, correlationID),
		ErrorCodes:    env.ErrorCodes,
	}, true
}

func missing(step errcode.Step, field string) Unexpected {
	return Unexpected{Cause: fmt.Errorf("%w: %s: %s", ErrMissingField, step, field)}
}
