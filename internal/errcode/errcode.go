// Package errcode lists the wire error codes of the native authentication
// API and, per endpoint, the closed set of codes that endpoint may return.
// An envelope whose code is outside its endpoint's set is not decoded.
package errcode

// Code is a raw OAuth2 style "error" value.
type Code string

// Base OAuth2 codes.
const (
	InvalidRequest           Code = "invalid_request"
	InvalidClient            Code = "invalid_client"
	InvalidGrant             Code = "invalid_grant"
	ExpiredToken             Code = "expired_token"
	UnsupportedChallengeType Code = "unsupported_challenge_type"
	InvalidScope             Code = "invalid_scope"
	AuthorizationPending     Code = "authorization_pending"
	SlowDown                 Code = "slow_down"
	CredentialRequired       Code = "credential_required"
)

// Flow specific codes.
const (
	UserNotFound              Code = "user_not_found"
	UserAlreadyExists         Code = "user_already_exists"
	UserDoesNotHavePassword   Code = "user_does_not_have_password"
	InvalidOOBValue           Code = "invalid_oob_value"
	VerificationRequired      Code = "verification_required"
	AttributesRequired        Code = "attributes_required"
	AttributeValidationFailed Code = "attribute_validation_failed"
	UnsupportedAuthMethod     Code = "unsupported_auth_method"
	PasswordTooWeak           Code = "password_too_weak"
	PasswordTooShort          Code = "password_too_short"
	PasswordTooLong           Code = "password_too_long"
	PasswordRecentlyUsed      Code = "password_recently_used"
	PasswordBanned            Code = "password_banned"
)

// IsPassword reports whether c is a password policy failure.
func (c Code) IsPassword() bool {
	switch c {
	case PasswordTooWeak, PasswordTooShort, PasswordTooLong, PasswordRecentlyUsed, PasswordBanned:
		return true
	}
	return false
}

// Step identifies one endpoint of one flow.
type Step string

const (
	SignUpStart                 Step = "signup/start"
	SignUpChallenge             Step = "signup/challenge"
	SignUpContinue              Step = "signup/continue"
	SignInInitiate              Step = "signin/initiate"
	SignInChallenge             Step = "signin/challenge"
	Token                       Step = "token"
	ResetPasswordStart          Step = "resetpassword/start"
	ResetPasswordChallenge      Step = "resetpassword/challenge"
	ResetPasswordContinue       Step = "resetpassword/continue"
	ResetPasswordSubmit         Step = "resetpassword/submit"
	ResetPasswordPollCompletion Step = "resetpassword/poll_completion"
)

// Steps lists every step, in flow order.
var Steps = []Step{
	SignUpStart, SignUpChallenge, SignUpContinue,
	SignInInitiate, SignInChallenge, Token,
	ResetPasswordStart, ResetPasswordChallenge, ResetPasswordContinue,
	ResetPasswordSubmit, ResetPasswordPollCompletion,
}

// Set is an immutable set of codes.
type Set struct {
	codes map[Code]struct{}
}

func newSet(codes ...Code) Set {
	m := make(map[Code]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return Set{codes: m}
}

// Allows reports whether c is a member.
func (s Set) Allows(c Code) bool {
	_, ok := s.codes[c]
	return ok
}

// Len is the number of members.
func (s Set) Len() int { return len(s.codes) }

var passwordCodes = []Code{PasswordTooWeak, PasswordTooShort, PasswordTooLong, PasswordRecentlyUsed, PasswordBanned}

var allowLists = map[Step]Set{
	SignUpStart: newSet(append([]Code{
		InvalidRequest, InvalidClient, UnsupportedChallengeType, UserAlreadyExists,
		AttributesRequired, VerificationRequired, UnsupportedAuthMethod, AttributeValidationFailed,
	}, passwordCodes...)...),
	SignUpChallenge: newSet(InvalidRequest, InvalidClient, ExpiredToken, UnsupportedChallengeType),
	SignUpContinue: newSet(append([]Code{
		InvalidRequest, InvalidClient, InvalidGrant, ExpiredToken, InvalidOOBValue, UserAlreadyExists,
		AttributesRequired, VerificationRequired, CredentialRequired, AttributeValidationFailed,
	}, passwordCodes...)...),
	SignInInitiate:  newSet(InvalidRequest, InvalidClient, UnsupportedChallengeType, UserNotFound),
	SignInChallenge: newSet(InvalidRequest, InvalidClient, InvalidGrant, ExpiredToken, UnsupportedChallengeType),
	Token: newSet(
		InvalidRequest, InvalidClient, InvalidGrant, ExpiredToken, UnsupportedChallengeType, InvalidScope,
		AuthorizationPending, SlowDown, CredentialRequired, UserNotFound, InvalidOOBValue,
	),
	ResetPasswordStart:     newSet(InvalidRequest, InvalidClient, UnsupportedChallengeType, UserNotFound, UserDoesNotHavePassword),
	ResetPasswordChallenge: newSet(InvalidRequest, InvalidClient, ExpiredToken, UnsupportedChallengeType),
	ResetPasswordContinue:  newSet(InvalidRequest, InvalidClient, InvalidGrant, ExpiredToken, InvalidOOBValue, VerificationRequired),
	ResetPasswordSubmit: newSet(append([]Code{
		InvalidRequest, InvalidClient, InvalidGrant, ExpiredToken,
	}, passwordCodes...)...),
	ResetPasswordPollCompletion: newSet(append([]Code{
		InvalidRequest, InvalidClient, ExpiredToken, UserNotFound,
	}, passwordCodes...)...),
}

// AllowList returns the codes step may return. Unknown steps get an empty
// set, so nothing decodes for them.
func AllowList(step Step) Set {
	return allowLists[step]
}
