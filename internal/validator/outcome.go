// Package validator classifies the result of one protocol step into that
// step's closed set of outcomes. Validators are pure and total: they never
// return errors or panic, and anything they cannot place becomes Unexpected.
package validator

import (
	"github.com/aussiebroadwan/nativeauth/internal/domain"
)

// Each step has its own outcome interface. The unexported marker methods
// keep the sets closed: only the types below implement them.
type (
	SignUpStartOutcome            interface{ signUpStart() }
	SignUpChallengeOutcome        interface{ signUpChallenge() }
	SignUpContinueOutcome         interface{ signUpContinue() }
	SignInInitiateOutcome         interface{ signInInitiate() }
	SignInChallengeOutcome        interface{ signInChallenge() }
	TokenOutcome                  interface{ token() }
	ResetPasswordStartOutcome     interface{ resetPasswordStart() }
	ResetPasswordChallengeOutcome interface{ resetPasswordChallenge() }
	ResetPasswordContinueOutcome  interface{ resetPasswordContinue() }
	ResetPasswordSubmitOutcome    interface{ resetPasswordSubmit() }
	ResetPasswordPollOutcome      interface{ resetPasswordPoll() }
)

// ============================================================================
// Shared variants
// ============================================================================

// Redirect means the service wants the flow finished in a browser.
type Redirect struct{}

// Failed is a recognised protocol error.
type Failed struct{ Err DomainError }

// PasswordFailed is a password policy rejection.
type PasswordFailed struct{ Err PasswordError }

// InvalidCode means the submitted one-time code was wrong.
type InvalidCode struct{ Err DomainError }

// Unexpected is everything else: transport failures, unknown codes and
// malformed success bodies.
type Unexpected struct{ Cause error }

func (Redirect) signUpStart()            {}
func (Redirect) signUpChallenge()        {}
func (Redirect) signInInitiate()         {}
func (Redirect) signInChallenge()        {}
func (Redirect) resetPasswordStart()     {}
func (Redirect) resetPasswordChallenge() {}

func (Failed) signUpStart()            {}
func (Failed) signUpChallenge()        {}
func (Failed) signUpContinue()         {}
func (Failed) signInInitiate()         {}
func (Failed) signInChallenge()        {}
func (Failed) token()                  {}
func (Failed) resetPasswordStart()     {}
func (Failed) resetPasswordChallenge() {}
func (Failed) resetPasswordContinue()  {}
func (Failed) resetPasswordSubmit()    {}
func (Failed) resetPasswordPoll()      {}

func (PasswordFailed) signUpStart()         {}
func (PasswordFailed) signUpContinue()      {}
func (PasswordFailed) resetPasswordSubmit() {}
func (PasswordFailed) resetPasswordPoll()   {}

func (InvalidCode) signUpContinue()        {}
func (InvalidCode) token()                 {}
func (InvalidCode) resetPasswordContinue() {}

func (Unexpected) signUpStart()            {}
func (Unexpected) signUpChallenge()        {}
func (Unexpected) signUpContinue()         {}
func (Unexpected) signInInitiate()         {}
func (Unexpected) signInChallenge()        {}
func (Unexpected) token()                  {}
func (Unexpected) resetPasswordStart()     {}
func (Unexpected) resetPasswordChallenge() {}
func (Unexpected) resetPasswordContinue()  {}
func (Unexpected) resetPasswordSubmit()    {}
func (Unexpected) resetPasswordPoll()      {}

// ============================================================================
// Sign up
// ============================================================================

type SignUpStarted struct{ Token domain.SignUpToken }

// SignUpVerificationRequired is start asking for a challenge before anything
// else. It carries the token for that challenge.
type SignUpVerificationRequired struct{ Token domain.SignUpToken }

type SignUpAttributesInvalid struct {
	Attributes []string
	Err        DomainError
}

type SignUpCodeRequired struct {
	Token     domain.SignUpToken
	Challenge domain.ChallengeDescriptor
}

type SignUpPasswordRequired struct{ Token domain.SignUpToken }

type SignUpCompleted struct {
	SignInSLT domain.SignInSLT
	ExpiresIn int
}

type SignUpAttributesRequired struct {
	Token      domain.SignUpToken
	Attributes []string
}

type SignUpCredentialRequired struct{ Token domain.SignUpToken }

func (SignUpStarted) signUpStart()               {}
func (SignUpVerificationRequired) signUpStart()  {}
func (SignUpAttributesInvalid) signUpStart()     {}
func (SignUpAttributesInvalid) signUpContinue()  {}
func (SignUpCodeRequired) signUpChallenge()      {}
func (SignUpPasswordRequired) signUpChallenge()  {}
func (SignUpCompleted) signUpContinue()          {}
func (SignUpAttributesRequired) signUpContinue() {}
func (SignUpCredentialRequired) signUpContinue() {}

// ============================================================================
// Sign in
// ============================================================================

type SignInInitiated struct{ Token domain.CredentialToken }

type SignInCodeRequired struct {
	Token     domain.CredentialToken
	Challenge domain.ChallengeDescriptor
}

type SignInPasswordRequired struct{ Token domain.CredentialToken }

// TokenIssued is a token endpoint success.
type TokenIssued struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ClientInfo   string
	Scopes       []string
	ExpiresIn    int
}

// SignInCredentialRequired is the token endpoint asking for another
// challenge round. It continues the flow and is not an error.
type SignInCredentialRequired struct{ Token domain.CredentialToken }

func (SignInInitiated) signInInitiate()         {}
func (SignInCodeRequired) signInChallenge()     {}
func (SignInPasswordRequired) signInChallenge() {}
func (TokenIssued) token()                      {}
func (SignInCredentialRequired) token()         {}

// ============================================================================
// Reset password
// ============================================================================

type ResetPasswordStarted struct{ Token domain.PasswordResetToken }

type ResetPasswordCodeRequired struct {
	Token     domain.PasswordResetToken
	Challenge domain.ChallengeDescriptor
}

type ResetPasswordCodeVerified struct {
	Token     domain.PasswordSubmitToken
	ExpiresIn int
}

type ResetPasswordSubmitted struct {
	Token        domain.PasswordResetToken
	PollInterval int
}

type ResetPasswordPolled struct {
	Status    domain.PollStatus
	Token     domain.PasswordResetToken
	SignInSLT domain.SignInSLT
}

func (ResetPasswordStarted) resetPasswordStart()          {}
func (ResetPasswordCodeRequired) resetPasswordChallenge() {}
func (ResetPasswordCodeVerified) resetPasswordContinue()  {}
func (ResetPasswordSubmitted) resetPasswordSubmit()       {}
func (ResetPasswordPolled) resetPasswordPoll()            {}
