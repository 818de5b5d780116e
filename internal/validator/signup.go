package validator

import (
	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
)

// SignUpStart classifies a signup/start result.
func SignUpStart(p *wire.SignUpStartResponse, err error, correlationID string) SignUpStartOutcome {
	const step = errcode.SignUpStart

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		env := se.Envelope
		switch env.Error {
		case errcode.VerificationRequired:
			if env.SignUpToken == "" {
				return missing(step, "signup_token")
			}
			return SignUpVerificationRequired{Token: domain.SignUpToken(env.SignUpToken)}
		case errcode.AttributeValidationFailed:
			de, _ := domainError(env, correlationID)
			return SignUpAttributesInvalid{Attributes: wire.AttributeNames(env.InvalidAttributes), Err: de}
		}
		if pe, ok := passwordError(env, correlationID); ok {
			return PasswordFailed{Err: pe}
		}
		if de, ok := domainError(env, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	if p == nil {
		return missing(step, "body")
	}
	if p.ChallengeType == string(domain.ChallengeTypeRedirect) {
		return Redirect{}
	}
	if p.SignUpToken == "" {
		return missing(step, "signup_token")
	}
	return SignUpStarted{Token: domain.SignUpToken(p.SignUpToken)}
}

// SignUpChallenge classifies a signup/challenge result.
func SignUpChallenge(p *wire.ChallengeResponse, err error, correlationID string) SignUpChallengeOutcome {
	const step = errcode.SignUpChallenge

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		if de, ok := domainError(se.Envelope, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	if p == nil {
		return missing(step, "body")
	}
	kind, desc, bad := classifyChallenge(step, p, p.SignUpToken)
	switch kind {
	case challengeRedirect:
		return Redirect{}
	case challengeCode:
		return SignUpCodeRequired{Token: domain.SignUpToken(p.SignUpToken), Challenge: desc}
	case challengePassword:
		return SignUpPasswordRequired{Token: domain.SignUpToken(p.SignUpToken)}
	default:
		return bad
	}
}

// SignUpContinue classifies a signup/continue result.
func SignUpContinue(p *wire.SignUpContinueResponse, err error, correlationID string) SignUpContinueOutcome {
	const step = errcode.SignUpContinue

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		env := se.Envelope
		switch env.Error {
		case errcode.InvalidOOBValue:
			de, _ := domainError(env, correlationID)
			return InvalidCode{Err: de}
		case errcode.AttributesRequired:
			if env.SignUpToken == "" {
				return missing(step, "signup_token")
			}
			return SignUpAttributesRequired{
				Token:      domain.SignUpToken(env.SignUpToken),
				Attributes: wire.AttributeNames(env.RequiredAttributes),
			}
		case errcode.CredentialRequired:
			if env.SignUpToken == "" {
				return missing(step, "signup_token")
			}
			return SignUpCredentialRequired{Token: domain.SignUpToken(env.SignUpToken)}
		case errcode.AttributeValidationFailed:
			de, _ := domainError(env, correlationID)
			return SignUpAttributesInvalid{Attributes: wire.AttributeNames(env.InvalidAttributes), Err: de}
		}
		if pe, ok := passwordError(env, correlationID); ok {
			return PasswordFailed{Err: pe}
		}
		if de, ok := domainError(env, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	if p == nil {
		return missing(step, "body")
	}
	// A missing short-lived token still completes sign up; only the
	// follow-up sign in becomes unavailable.
	return SignUpCompleted{SignInSLT: domain.SignInSLT(p.SignInSLT), ExpiresIn: p.ExpiresIn}
}
