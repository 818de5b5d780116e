package validator

import (
	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
)

// ResetPasswordStart classifies a resetpassword/start result.
func ResetPasswordStart(p *wire.ResetPasswordStartResponse, err error, correlationID string) ResetPasswordStartOutcome {
	const step = errcode.ResetPasswordStart

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
	if p.ChallengeType == string(domain.ChallengeTypeRedirect) {
		return Redirect{}
	}
	if p.PasswordResetToken == "" {
		return missing(step, "password_reset_token")
	}
	return ResetPasswordStarted{Token: domain.PasswordResetToken(p.PasswordResetToken)}
}

// ResetPasswordChallenge classifies a resetpassword/challenge result. Only
// code challenges continue a reset.
func ResetPasswordChallenge(p *wire.ChallengeResponse, err error, correlationID string) ResetPasswordChallengeOutcome {
	const step = errcode.ResetPasswordChallenge

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
	kind, desc, bad := classifyChallenge(step, p, p.PasswordResetToken)
	switch kind {
	case challengeRedirect:
		return Redirect{}
	case challengeCode:
		return ResetPasswordCodeRequired{Token: domain.PasswordResetToken(p.PasswordResetToken), Challenge: desc}
	case challengePassword:
		return missing(step, "code challenge")
	default:
		return bad
	}
}

// ResetPasswordContinue classifies a resetpassword/continue result.
func ResetPasswordContinue(p *wire.ResetPasswordContinueResponse, err error, correlationID string) ResetPasswordContinueOutcome {
	const step = errcode.ResetPasswordContinue

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
		case errcode.VerificationRequired:
			// Reset never asks for a second verification round.
			return Unexpected{Cause: err}
		}
		if de, ok := domainError(env, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	if p == nil {
		return missing(step, "body")
	}
	if p.PasswordSubmitToken == "" {
		return missing(step, "password_submit_token")
	}
	return ResetPasswordCodeVerified{Token: domain.PasswordSubmitToken(p.PasswordSubmitToken), ExpiresIn: p.ExpiresIn}
}

// ResetPasswordSubmit classifies a resetpassword/submit result.
func ResetPasswordSubmit(p *wire.ResetPasswordSubmitResponse, err error, correlationID string) ResetPasswordSubmitOutcome {
	const step = errcode.ResetPasswordSubmit

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		if pe, ok := passwordError(se.Envelope, correlationID); ok {
			return PasswordFailed{Err: pe}
		}
		if de, ok := domainError(se.Envelope, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	switch {
	case p == nil:
		return missing(step, "body")
	case p.PasswordResetToken == "":
		return missing(step, "password_reset_token")
	case p.PollInterval <= 0:
		return missing(step, "poll_interval")
	}
	return ResetPasswordSubmitted{Token: domain.PasswordResetToken(p.PasswordResetToken), PollInterval: p.PollInterval}
}

// ResetPasswordPoll classifies a resetpassword/poll_completion result.
func ResetPasswordPoll(p *wire.ResetPasswordPollResponse, err error, correlationID string) ResetPasswordPollOutcome {
	const step = errcode.ResetPasswordPollCompletion

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		if pe, ok := passwordError(se.Envelope, correlationID); ok {
			return PasswordFailed{Err: pe}
		}
		if de, ok := domainError(se.Envelope, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	if p == nil {
		return missing(step, "body")
	}
	status, ok := domain.ParsePollStatus(p.Status)
	if !ok {
		return missing(step, "status")
	}
	return ResetPasswordPolled{
		Status:    status,
		Token:     domain.PasswordResetToken(p.PasswordResetToken),
		SignInSLT: domain.SignInSLT(p.SignInSLT),
	}
}
