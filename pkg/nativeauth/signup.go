package nativeauth

import (
	"context"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
)

// SignUpParameters starts a sign up. Password is optional when the tenant
// signs up with a one-time code only.
type SignUpParameters struct {
	Username string
	Password string
	// Attributes are user attributes such as "displayName" or
	// "extension_..._favouriteColour", sent as JSON.
	Attributes    map[string]any
	CorrelationID string
}

// SignUp registers a new user. The result is *SignUpCodeRequired,
// *SignUpPasswordRequired, *SignUpAttributesRequired, *SignUpCompleted or
// *BrowserRequired. Failures are *SignUpError.
func (c *Client) SignUp(ctx context.Context, p SignUpParameters) (res SignUpResult, err error) {
	ctx, op := c.begin(ctx, telemetry.APISignUp, p.CorrelationID)
	defer func() { op.end(err) }()

	req, err := c.builder.SignUpStart(op.correlationID, wire.SignUpStartParams{
		Username:   p.Username,
		Password:   p.Password,
		Attributes: p.Attributes,
	})
	if err != nil {
		return nil, signUpGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.SignUpStartResponse](ctx, c.exec, req, c.policy(), errcode.SignUpStart)
	switch out := validator.SignUpStart(body, err, op.correlationID).(type) {
	case validator.SignUpStarted:
		return c.signUpChallenge(ctx, op, out.Token, p.Username)
	case validator.SignUpVerificationRequired:
		return c.signUpChallenge(ctx, op, out.Token, p.Username)
	case validator.SignUpAttributesInvalid:
		return nil, signUpAttributesInvalid(out)
	case validator.PasswordFailed:
		return nil, &SignUpError{Type: SignUpInvalidPassword, errorInfo: infoFromPassword(out.Err)}
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		if out.Err.Kind == validator.KindUnsupportedAuthMethod {
			return &BrowserRequired{CorrelationID: op.correlationID}, nil
		}
		return nil, signUpFailure(out.Err)
	case validator.Unexpected:
		return nil, signUpGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signUpGeneral(nil, op.correlationID)
	}
}

// SignUpAsync is SignUp on a background goroutine.
func (c *Client) SignUpAsync(ctx context.Context, p SignUpParameters) *Future[SignUpResult] {
	return async(c.dispatcher, func() (SignUpResult, error) { return c.SignUp(ctx, p) })
}

func (c *Client) signUpChallenge(ctx context.Context, op *operation, token domain.SignUpToken, username string) (SignUpResult, error) {
	req, err := c.builder.SignUpChallenge(op.correlationID, token)
	if err != nil {
		return nil, signUpGeneral(err, op.correlationID)
	}

	state := signUpFlow{
		flowState: flowState{client: c, correlationID: op.correlationID},
		username:  username,
	}

	body, err := wire.Send[wire.ChallengeResponse](ctx, c.exec, req, c.policy(), errcode.SignUpChallenge)
	switch out := validator.SignUpChallenge(body, err, op.correlationID).(type) {
	case validator.SignUpCodeRequired:
		state.token = out.Token
		return &SignUpCodeRequired{
			State:      &SignUpCodeRequiredState{signUpFlow: state},
			SentTo:     out.Challenge.TargetLabel,
			Channel:    publicChannel(out.Challenge.Channel),
			CodeLength: out.Challenge.CodeLength,
		}, nil
	case validator.SignUpPasswordRequired:
		state.token = out.Token
		return &SignUpPasswordRequired{State: &SignUpPasswordRequiredState{signUpFlow: state}}, nil
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		return nil, signUpFailure(out.Err)
	case validator.Unexpected:
		return nil, signUpGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signUpGeneral(nil, op.correlationID)
	}
}

func (c *Client) signUpContinue(ctx context.Context, op *operation, flow signUpFlow, p wire.SignUpContinueParams) (SignUpResult, error) {
	p.Token = flow.token
	req, err := c.builder.SignUpContinue(op.correlationID, p)
	if err != nil {
		return nil, signUpGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.SignUpContinueResponse](ctx, c.exec, req, c.policy(), errcode.SignUpContinue)
	switch out := validator.SignUpContinue(body, err, op.correlationID).(type) {
	case validator.SignUpCompleted:
		return &SignUpCompleted{
			State: &SignInAfterSignUpState{
				flowState: flow.flowState,
				slt:       out.SignInSLT,
				username:  flow.username,
			},
		}, nil
	case validator.SignUpAttributesRequired:
		flow.token = out.Token
		return &SignUpAttributesRequired{
			State:      &SignUpAttributesRequiredState{signUpFlow: flow},
			Attributes: out.Attributes,
		}, nil
	case validator.SignUpCredentialRequired:
		return c.signUpChallenge(ctx, op, out.Token, flow.username)
	case validator.InvalidCode:
		return nil, &SignUpError{Type: SignUpInvalidCode, errorInfo: infoFromDomain(out.Err)}
	case validator.PasswordFailed:
		return nil, &SignUpError{Type: SignUpInvalidPassword, errorInfo: infoFromPassword(out.Err)}
	case validator.SignUpAttributesInvalid:
		return nil, signUpAttributesInvalid(out)
	case validator.Failed:
		return nil, signUpFailure(out.Err)
	case validator.Unexpected:
		return nil, signUpGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, signUpGeneral(nil, op.correlationID)
	}
}

func signUpFailure(de validator.DomainError) *SignUpError {
	t := SignUpGeneralError
	if de.Kind == validator.KindUserAlreadyExists {
		t = SignUpUserAlreadyExists
	}
	return &SignUpError{Type: t, errorInfo: infoFromDomain(de)}
}

func signUpAttributesInvalid(out validator.SignUpAttributesInvalid) *SignUpError {
	return &SignUpError{
		Type:              SignUpInvalidAttributes,
		InvalidAttributes: out.Attributes,
		errorInfo:         infoFromDomain(out.Err),
	}
}

func signUpGeneral(cause error, correlationID string) *SignUpError {
	return &SignUpError{Type: SignUpGeneralError, errorInfo: infoFromCause(cause, correlationID)}
}

// ============================================================================
// States
// ============================================================================

// signUpFlow is the continuation shared by every sign up state.
type signUpFlow struct {
	flowState
	token    domain.SignUpToken
	username string
}

// begin starts a public call on this flow.
func (f signUpFlow) begin(ctx context.Context, api telemetry.API) (context.Context, *operation) {
	return f.client.begin(ctx, api, f.correlationID)
}

// SignUpCodeRequiredState continues a sign up waiting for the code sent
// to the new user.
type SignUpCodeRequiredState struct{ signUpFlow }

func (s *SignUpCodeRequiredState) SubmitCode(ctx context.Context, code string) (res SignUpResult, err error) {
	ctx, op := s.begin(ctx, telemetry.APISignUpSubmitCode)
	defer func() { op.end(err) }()

	return s.client.signUpContinue(ctx, op, s.signUpFlow, wire.SignUpContinueParams{GrantType: domain.GrantTypeOOB, OOB: code})
}

func (s *SignUpCodeRequiredState) ResendCode(ctx context.Context) (res SignUpResult, err error) {
	ctx, op := s.begin(ctx, telemetry.APISignUpResendCode)
	defer func() { op.end(err) }()

	return s.client.signUpChallenge(ctx, op, s.token, s.username)
}

// SignUpPasswordRequiredState continues a sign up waiting for the new
// user's password.
type SignUpPasswordRequiredState struct{ signUpFlow }

func (s *SignUpPasswordRequiredState) SubmitPassword(ctx context.Context, password string) (res SignUpResult, err error) {
	ctx, op := s.begin(ctx, telemetry.APISignUpSubmitPassword)
	defer func() { op.end(err) }()

	return s.client.signUpContinue(ctx, op, s.signUpFlow, wire.SignUpContinueParams{GrantType: domain.GrantTypePassword, Password: password})
}

// SignUpAttributesRequiredState continues a sign up waiting for
// attributes the tenant requires.
type SignUpAttributesRequiredState struct{ signUpFlow }

func (s *SignUpAttributesRequiredState) SubmitAttributes(ctx context.Context, attributes map[string]any) (res SignUpResult, err error) {
	ctx, op := s.begin(ctx, telemetry.APISignUpSubmitAttributes)
	defer func() { op.end(err) }()

	return s.client.signUpContinue(ctx, op, s.signUpFlow, wire.SignUpContinueParams{GrantType: domain.GrantTypeAttributes, Attributes: attributes})
}
