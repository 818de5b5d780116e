package nativeauth

import (
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
)

// Channel is where a one-time code was sent.
type Channel string

const (
	ChannelNone  Channel = "none"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Result sets. Each is closed: only the types in this file implement them.
type (
	SignInResult        interface{ signInResult() }
	SignUpResult        interface{ signUpResult() }
	ResetPasswordResult interface{ resetPasswordResult() }
)

// BrowserRequired means the service wants the user to continue in a
// browser. It is an interruption, not an error.
type BrowserRequired struct {
	CorrelationID string
}

func (*BrowserRequired) signInResult()        {}
func (*BrowserRequired) signUpResult()        {}
func (*BrowserRequired) resetPasswordResult() {}

// ============================================================================
// Sign in
// ============================================================================

// SignInCompleted carries the signed-in account. Its tokens are cached.
type SignInCompleted struct {
	Account *UserAccount
}

// SignInCodeRequired means a one-time code was sent to SentTo.
type SignInCodeRequired struct {
	State      *SignInCodeRequiredState
	SentTo     string
	Channel    Channel
	CodeLength int
}

// SignInPasswordRequired means the user has to enter their password.
type SignInPasswordRequired struct {
	State *SignInPasswordRequiredState
}

func (*SignInCompleted) signInResult()        {}
func (*SignInCodeRequired) signInResult()     {}
func (*SignInPasswordRequired) signInResult() {}

// ============================================================================
// Sign up
// ============================================================================

type SignUpCodeRequired struct {
	State      *SignUpCodeRequiredState
	SentTo     string
	Channel    Channel
	CodeLength int
}

type SignUpPasswordRequired struct {
	State *SignUpPasswordRequiredState
}

// SignUpAttributesRequired lists the attributes the service still needs.
type SignUpAttributesRequired struct {
	State      *SignUpAttributesRequiredState
	Attributes []string
}

// SignUpCompleted means the account exists. State signs the new user in
// without asking for their credentials again.
type SignUpCompleted struct {
	State *SignInAfterSignUpState
}

func (*SignUpCodeRequired) signUpResult()       {}
func (*SignUpPasswordRequired) signUpResult()   {}
func (*SignUpAttributesRequired) signUpResult() {}
func (*SignUpCompleted) signUpResult()          {}

// ============================================================================
// Reset password
// ============================================================================

type ResetPasswordCodeRequired struct {
	State      *ResetPasswordCodeRequiredState
	SentTo     string
	Channel    Channel
	CodeLength int
}

// ResetPasswordRequired means the code was accepted and a new password
// can be submitted.
type ResetPasswordRequired struct {
	State *ResetPasswordRequiredState
}

type ResetPasswordCompleted struct {
	State *SignInAfterResetPasswordState
}

func (*ResetPasswordCodeRequired) resetPasswordResult() {}
func (*ResetPasswordRequired) resetPasswordResult()     {}
func (*ResetPasswordCompleted) resetPasswordResult()    {}

// ============================================================================
// Tokens
// ============================================================================

// TokenResult is an access token ready to be sent to a resource.
type TokenResult struct {
	AccessToken string
	Scopes      []string
	ExpiresOn   time.Time
}

// flowState is embedded by every continuation state. All steps of one flow
// share its correlation id.
type flowState struct {
	client        *Client
	correlationID string
}

// CorrelationID identifies the flow in service logs.
func (s flowState) CorrelationID() string { return s.correlationID }

func publicChannel(c domain.Channel) Channel {
	switch c {
	case domain.ChannelEmail:
		return ChannelEmail
	case domain.ChannelSMS:
		return ChannelSMS
	default:
		return ChannelNone
	}
}
