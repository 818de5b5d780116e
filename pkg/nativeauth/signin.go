package nativeauth

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/transport"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
)

// SignInParameters starts a sign in. An empty Password signs in with a
// one-time code instead.
type SignInParameters struct {
	Username string
	Password string
	// Scopes are requested in addition to openid, profile and
	// offline_access.
	Scopes []string
	// CorrelationID is sent with every request of the flow. Generated
	// when empty.
	CorrelationID string
}

// SignIn starts a sign in. The result is *SignInCompleted,
// *SignInCodeRequired, *SignInPasswordRequired or *BrowserRequired.
// Failures are *SignInError.
func (c *Client) SignIn(ctx context.Context, p SignInParameters) (res SignInResult, err error) {
	api := telemetry.APISignInWithCode
	if p.Password != "" {
		api = telemetry.APISignInWithPassword
	}
	ctx, op := c.begin(ctx, api, p.CorrelationID)
	defer func() { op.end(err) }()

	scopes := domain.JoinScopes(p.Scopes)

	if p.Password != "" {
		req, err := c.builder.Token(op.correlationID, wire.TokenParams{
			GrantType: domain.GrantTypePassword,
			Scopes:    scopes,
			Username:  p.Username,
			Password:  p.Password,
		})
		if err != nil {
			return nil, signInGeneral(err, op.correlationID)
		}
		return c.signInToken(ctx, op, req, scopes, SignInInvalidCredentials)
	}

	req, err := c.builder.SignInInitiate(op.correlationID, p.Username)
	if err != nil {
		return nil, signInGeneral(err, op.correlationID)
	}
	body, err := wire.Send[wire.SignInInitiateResponse](ctx, c.exec, req, c.policy(), errcode.SignInInitiate)
	switch out := validator.SignInInitiate(body, err, op.correlationID).(type) {
	case validator.SignInInitiated:
		return c.signInChallenge(ctx, op, out.Token, scopes)
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		return nil, signInFailure(out.Err, SignInGeneralError)
	case validator.Unexpected:
		return nil, signInGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signInGeneral(nil, op.correlationID)
	}
}

// SignInAsync is SignIn on a background goroutine.
func (c *Client) SignInAsync(ctx context.Context, p SignInParameters) *Future[SignInResult] {
	return async(c.dispatcher, func() (SignInResult, error) { return c.SignIn(ctx, p) })
}

func (c *Client) signInChallenge(ctx context.Context, op *operation, token domain.CredentialToken, scopes []string) (SignInResult, error) {
	req, err := c.builder.SignInChallenge(op.correlationID, token)
	if err != nil {
		return nil, signInGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.ChallengeResponse](ctx, c.exec, req, c.policy(), errcode.SignInChallenge)
	switch out := validator.SignInChallenge(body, err, op.correlationID).(type) {
	case validator.SignInCodeRequired:
		return &SignInCodeRequired{
			State: &SignInCodeRequiredState{
				flowState: flowState{client: c, correlationID: op.correlationID},
				token:     out.Token,
				scopes:    scopes,
			},
			SentTo:     out.Challenge.TargetLabel,
			Channel:    publicChannel(out.Challenge.Channel),
			CodeLength: out.Challenge.CodeLength,
		}, nil
	case validator.SignInPasswordRequired:
		return &SignInPasswordRequired{
			State: &SignInPasswordRequiredState{
				flowState: flowState{client: c, correlationID: op.correlationID},
				token:     out.Token,
				scopes:    scopes,
			},
		}, nil
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		return nil, signInFailure(out.Err, SignInGeneralError)
	case validator.Unexpected:
		return nil, signInGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signInGeneral(nil, op.correlationID)
	}
}

// signInToken sends a token request and caches the result. invalidGrant
// is what an invalid_grant error means for this request.
func (c *Client) signInToken(ctx context.Context, op *operation, req transport.Request, scopes []string, invalidGrant SignInErrorType) (SignInResult, error) {
	body, err := wire.Send[wire.TokenResponse](ctx, c.exec, req, c.policy(), errcode.Token)
	switch out := validator.Token(body, err, op.correlationID).(type) {
	case validator.TokenIssued:
		account, err := c.persist(ctx, out, scopes, nil)
		if err != nil {
			return nil, signInGeneral(err, op.correlationID)
		}
		op.event.SetAccount(account.HomeAccountID)
		return &SignInCompleted{Account: account}, nil
	case validator.SignInCredentialRequired:
		return c.signInChallenge(ctx, op, out.Token, scopes)
	case validator.InvalidCode:
		return nil, &SignInError{Type: SignInInvalidCode, errorInfo: infoFromDomain(out.Err)}
	case validator.Failed:
		return nil, signInFailure(out.Err, invalidGrant)
	case validator.Unexpected:
		return nil, signInGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signInGeneral(nil, op.correlationID)
	}
}

func signInFailure(de validator.DomainError, invalidGrant SignInErrorType) *SignInError {
	t := SignInGeneralError
	switch de.Kind {
	case validator.KindUserNotFound:
		t = SignInUserNotFound
	case validator.KindInvalidGrant:
		t = invalidGrant
	}
	return &SignInError{Type: t, errorInfo: infoFromDomain(de)}
}

func signInGeneral(cause error, correlationID string) *SignInError {
	return &SignInError{Type: SignInGeneralError, errorInfo: infoFromCause(cause, correlationID)}
}

// ============================================================================
// States
// ============================================================================

// SignInCodeRequiredState continues a sign in waiting for a one-time code.
type SignInCodeRequiredState struct {
	flowState
	token  domain.CredentialToken
	scopes []string
}

// SubmitCode completes the sign in with the code the user received.
func (s *SignInCodeRequiredState) SubmitCode(ctx context.Context, code string) (res SignInResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APISignInSubmitCode, s.correlationID)
	defer func() { op.end(err) }()

	req, err := c.builder.Token(op.correlationID, wire.TokenParams{
		GrantType:       domain.GrantTypeOOB,
		Scopes:          s.scopes,
		CredentialToken: s.token,
		OOB:             code,
	})
	if err != nil {
		return nil, signInGeneral(err, op.correlationID)
	}
	return c.signInToken(ctx, op, req, s.scopes, SignInInvalidCode)
}

// ResendCode asks the service to send a new code.
func (s *SignInCodeRequiredState) ResendCode(ctx context.Context) (res SignInResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APISignInResendCode, s.correlationID)
	defer func() { op.end(err) }()

	return c.signInChallenge(ctx, op, s.token, s.scopes)
}

// SignInPasswordRequiredState continues a sign in waiting for the
// user's password.
type SignInPasswordRequiredState struct {
	flowState
	token  domain.CredentialToken
	scopes []string
}

func (s *SignInPasswordRequiredState) SubmitPassword(ctx context.Context, password string) (res SignInResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APISignInSubmitPassword, s.correlationID)
	defer func() { op.end(err) }()

	req, err := c.builder.Token(op.correlationID, wire.TokenParams{
		GrantType:       domain.GrantTypePassword,
		Scopes:          s.scopes,
		CredentialToken: s.token,
		Password:        password,
	})
	if err != nil {
		return nil, signInGeneral(err, op.correlationID)
	}
	return c.signInToken(ctx, op, req, s.scopes, SignInInvalidPassword)
}

var errNoSignInSLT = errors.New("the service did not return a sign in token")

// SignInAfterSignUpState signs a freshly registered user in.
type SignInAfterSignUpState struct {
	flowState
	slt      domain.SignInSLT
	username string
}

// SignIn exchanges the short-lived sign in token for tokens.
func (s *SignInAfterSignUpState) SignIn(ctx context.Context, scopes []string) (SignInResult, error) {
	return s.client.signInWithSLT(ctx, telemetry.APISignInAfterSignUp, s.correlationID, s.slt, s.username, scopes)
}

// SignInAfterResetPasswordState signs a user in after a password reset.
type SignInAfterResetPasswordState struct {
	flowState
	slt      domain.SignInSLT
	username string
}

// SignIn exchanges the short-lived sign in token for tokens.
func (s *SignInAfterResetPasswordState) SignIn(ctx context.Context, scopes []string) (SignInResult, error) {
	return s.client.signInWithSLT(ctx, telemetry.APISignInAfterReset, s.correlationID, s.slt, s.username, scopes)
}

func (c *Client) signInWithSLT(ctx context.Context, api telemetry.API, correlationID string, slt domain.SignInSLT, username string, scopes []string) (res SignInResult, err error) {
	ctx, op := c.begin(ctx, api, correlationID)
	defer func() { op.end(err) }()

	if slt == "" {
		return nil, &SignInError{
			Type:      SignInGeneralError,
			errorInfo: errorInfo{Message: "sign in is not available", CorrelationID: op.correlationID, Err: errNoSignInSLT},
		}
	}

	scopes = domain.JoinScopes(scopes)
	req, err := c.builder.Token(op.correlationID, wire.TokenParams{
		GrantType: domain.GrantTypeSLT,
		Scopes:    scopes,
		Username:  username,
		SignInSLT: slt,
	})
	if err != nil {
		return nil, signInGeneral(err, op.correlationID)
	}
	return c.signInToken(ctx, op, req, scopes, SignInGeneralError)
}
