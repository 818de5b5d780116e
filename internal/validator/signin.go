package validator

import (
	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
)

// SignInInitiate classifies a signin/initiate result.
func SignInInitiate(p *wire.SignInInitiateResponse, err error, correlationID string) SignInInitiateOutcome {
	const step = errcode.SignInInitiate

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
	if p.CredentialToken == "" {
		return missing(step, "credential_token")
	}
	return SignInInitiated{Token: domain.CredentialToken(p.CredentialToken)}
}

// SignInChallenge classifies a signin/challenge result.
func SignInChallenge(p *wire.ChallengeResponse, err error, correlationID string) SignInChallengeOutcome {
	const step = errcode.SignInChallenge

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
	kind, desc, bad := classifyChallenge(step, p, p.CredentialToken)
	switch kind {
	case challengeRedirect:
		return Redirect{}
	case challengeCode:
		return SignInCodeRequired{Token: domain.CredentialToken(p.CredentialToken), Challenge: desc}
	case challengePassword:
		return SignInPasswordRequired{Token: domain.CredentialToken(p.CredentialToken)}
	default:
		return bad
	}
}

// Token classifies a sign in token request. An ID token is mandatory.
func Token(p *wire.TokenResponse, err error, correlationID string) TokenOutcome {
	return token(p, err, correlationID, true)
}

// Refresh classifies a refresh_token grant. The service may omit the ID
// token on refresh.
func Refresh(p *wire.TokenResponse, err error, correlationID string) TokenOutcome {
	return token(p, err, correlationID, false)
}

func token(p *wire.TokenResponse, err error, correlationID string, requireIDToken bool) TokenOutcome {
	const step = errcode.Token

	if err != nil {
		se, ok := stepError(step, err)
		if !ok {
			return Unexpected{Cause: err}
		}
		env := se.Envelope
		switch env.Error {
		case errcode.CredentialRequired:
			if env.CredentialToken == "" {
				return missing(step, "credential_token")
			}
			return SignInCredentialRequired{Token: domain.CredentialToken(env.CredentialToken)}
		case errcode.InvalidOOBValue:
			de, _ := domainError(env, correlationID)
			return InvalidCode{Err: de}
		}
		if de, ok := domainError(env, correlationID); ok {
			return Failed{Err: de}
		}
		return Unexpected{Cause: err}
	}

	switch {
	case p == nil:
		return missing(step, "body")
	case p.AccessToken == "":
		return missing(step, "access_token")
	case p.ExpiresIn <= 0:
		return missing(step, "expires_in")
	case requireIDToken && p.IDToken == "":
		return missing(step, "id_token")
	}
	return TokenIssued{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		IDToken:      p.IDToken,
		ClientInfo:   p.ClientInfo,
		Scopes:       httpx.ParseSpaceDelimitedFields(p.Scope),
		ExpiresIn:    p.ExpiresIn,
	}
}
