package nativeauth

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"golang.org/x/time/rate"
)

type ResetPasswordParameters struct {
	Username      string
	CorrelationID string
}

// ResetPassword starts a self-service password reset. The result is
// *ResetPasswordCodeRequired or *BrowserRequired. Failures are
// *ResetPasswordError.
func (c *Client) ResetPassword(ctx context.Context, p ResetPasswordParameters) (res ResetPasswordResult, err error) {
	ctx, op := c.begin(ctx, telemetry.APIResetPassword, p.CorrelationID)
	defer func() { op.end(err) }()

	req, err := c.builder.ResetPasswordStart(op.correlationID, p.Username)
	if err != nil {
		return nil, resetGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.ResetPasswordStartResponse](ctx, c.exec, req, c.policy(), errcode.ResetPasswordStart)
	switch out := validator.ResetPasswordStart(body, err, op.correlationID).(type) {
	case validator.ResetPasswordStarted:
		return c.resetPasswordChallenge(ctx, op, out.Token, p.Username)
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		return nil, resetFailure(out.Err)
	case validator.Unexpected:
		return nil, resetGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, resetGeneral(nil, op.correlationID)
	}
}

// ResetPasswordAsync is ResetPassword on a background goroutine.
func (c *Client) ResetPasswordAsync(ctx context.Context, p ResetPasswordParameters) *Future[ResetPasswordResult] {
	return async(c.dispatcher, func() (ResetPasswordResult, error) { return c.ResetPassword(ctx, p) })
}

func (c *Client) resetPasswordChallenge(ctx context.Context, op *operation, token domain.PasswordResetToken, username string) (ResetPasswordResult, error) {
	req, err := c.builder.ResetPasswordChallenge(op.correlationID, token)
	if err != nil {
		return nil, resetGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.ChallengeResponse](ctx, c.exec, req, c.policy(), errcode.ResetPasswordChallenge)
	switch out := validator.ResetPasswordChallenge(body, err, op.correlationID).(type) {
	case validator.ResetPasswordCodeRequired:
		return &ResetPasswordCodeRequired{
			State: &ResetPasswordCodeRequiredState{
				flowState: flowState{client: c, correlationID: op.correlationID},
				token:     out.Token,
				username:  username,
			},
			SentTo:     out.Challenge.TargetLabel,
			Channel:    publicChannel(out.Challenge.Channel),
			CodeLength: out.Challenge.CodeLength,
		}, nil
	case validator.Redirect:
		return &BrowserRequired{CorrelationID: op.correlationID}, nil
	case validator.Failed:
		return nil, resetFailure(out.Err)
	case validator.Unexpected:
		return nil, resetGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, resetGeneral(nil, op.correlationID)
	}
}

// pollCompletion asks the service whether the new password took effect,
// at most PollMaxAttempts times, one interval apart.
func (c *Client) pollCompletion(ctx context.Context, op *operation, token domain.PasswordResetToken, interval time.Duration, username string) (ResetPasswordResult, error) {
	log := slogx.FromContext(ctx)
	if c.cfg.PollInterval > 0 {
		interval = c.cfg.PollInterval
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()

	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, resetGeneral(err, op.correlationID)
		}

		req, err := c.builder.ResetPasswordPollCompletion(op.correlationID, token)
		if err != nil {
			return nil, resetGeneral(err, op.correlationID)
		}

		body, err := wire.Send[wire.ResetPasswordPollResponse](ctx, c.exec, req, c.policy(), errcode.ResetPasswordPollCompletion)
		switch out := validator.ResetPasswordPoll(body, err, op.correlationID).(type) {
		case validator.ResetPasswordPolled:
			switch out.Status {
			case domain.PollStatusSucceeded:
				return &ResetPasswordCompleted{
					State: &SignInAfterResetPasswordState{
						flowState: flowState{client: c, correlationID: op.correlationID},
						slt:       out.SignInSLT,
						username:  username,
					},
				}, nil
			case domain.PollStatusFailed:
				return nil, &ResetPasswordError{
					Type:      ResetPasswordFailed,
					errorInfo: errorInfo{Message: "the service could not complete the password reset", CorrelationID: op.correlationID},
				}
			}
			if out.Token != "" {
				token = out.Token
			}
			log.Debug("password reset not complete yet", "status", string(out.Status), "attempt", attempt)
		case validator.PasswordFailed:
			return nil, &ResetPasswordError{Type: ResetPasswordInvalidPassword, errorInfo: infoFromPassword(out.Err)}
		case validator.Failed:
			return nil, resetFailure(out.Err)
		case validator.Unexpected:
			return nil, resetGeneral(unexpectedCause(out), op.correlationID)
		default:
			return nil, resetGeneral(nil, op.correlationID)
		}
	}

	return nil, &ResetPasswordError{
		Type: ResetPasswordFailed,
		errorInfo: errorInfo{
			Message:       fmt.Sprintf("password reset did not complete after %d polls", c.cfg.PollMaxAttempts),
			CorrelationID: op.correlationID,
		},
	}
}

func resetFailure(de validator.DomainError) *ResetPasswordError {
	t := ResetPasswordGeneralError
	switch de.Kind {
	case validator.KindUserNotFound:
		t = ResetPasswordUserNotFound
	case validator.KindUserDoesNotHavePassword:
		t = ResetPasswordUserDoesNotHavePassword
	case validator.KindInvalidOOBValue:
		t = ResetPasswordInvalidCode
	}
	return &ResetPasswordError{Type: t, errorInfo: infoFromDomain(de)}
}

func resetGeneral(cause error, correlationID string) *ResetPasswordError {
	return &ResetPasswordError{Type: ResetPasswordGeneralError, errorInfo: infoFromCause(cause, correlationID)}
}

// ============================================================================
// States
// ============================================================================

// ResetPasswordCodeRequiredState continues a reset waiting for the code
// sent to the user.
type ResetPasswordCodeRequiredState struct {
	flowState
	token    domain.PasswordResetToken
	username string
}

// SubmitCode verifies the code. The result is *ResetPasswordRequired.
func (s *ResetPasswordCodeRequiredState) SubmitCode(ctx context.Context, code string) (res ResetPasswordResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APIResetPasswordSubmitCode, s.correlationID)
	defer func() { op.end(err) }()

	req, err := c.builder.ResetPasswordContinue(op.correlationID, s.token, code)
	if err != nil {
		return nil, resetGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.ResetPasswordContinueResponse](ctx, c.exec, req, c.policy(), errcode.ResetPasswordContinue)
	switch out := validator.ResetPasswordContinue(body, err, op.correlationID).(type) {
	case validator.ResetPasswordCodeVerified:
		return &ResetPasswordRequired{
			State: &ResetPasswordRequiredState{
				flowState: s.flowState,
				token:     out.Token,
				username:  s.username,
			},
		}, nil
	case validator.InvalidCode:
		return nil, &ResetPasswordError{Type: ResetPasswordInvalidCode, errorInfo: infoFromDomain(out.Err)}
	case validator.Failed:
		return nil, resetFailure(out.Err)
	case validator.Unexpected:
		return nil, resetGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, resetGeneral(nil, op.correlationID)
	}
}

func (s *ResetPasswordCodeRequiredState) ResendCode(ctx context.Context) (res ResetPasswordResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APIResetPasswordResendCode, s.correlationID)
	defer func() { op.end(err) }()

	return c.resetPasswordChallenge(ctx, op, s.token, s.username)
}

// ResetPasswordRequiredState continues a reset waiting for the new
// password.
type ResetPasswordRequiredState struct {
	flowState
	token    domain.PasswordSubmitToken
	username string
}

// SubmitPassword sets the new password and waits for the service to apply
// it. The result is *ResetPasswordCompleted.
func (s *ResetPasswordRequiredState) SubmitPassword(ctx context.Context, password string) (res ResetPasswordResult, err error) {
	c := s.client
	ctx, op := c.begin(ctx, telemetry.APIResetPasswordSubmit, s.correlationID)
	defer func() { op.end(err) }()

	req, err := c.builder.ResetPasswordSubmit(op.correlationID, s.token, password)
	if err != nil {
		return nil, resetGeneral(err, op.correlationID)
	}

	body, err := wire.Send[wire.ResetPasswordSubmitResponse](ctx, c.exec, req, c.policy(), errcode.ResetPasswordSubmit)
	switch out := validator.ResetPasswordSubmit(body, err, op.correlationID).(type) {
	case validator.ResetPasswordSubmitted:
		return c.pollCompletion(ctx, op, out.Token, seconds(out.PollInterval), s.username)
	case validator.PasswordFailed:
		return nil, &ResetPasswordError{Type: ResetPasswordInvalidPassword, errorInfo: infoFromPassword(out.Err)}
	case validator.Failed:
		return nil, resetFailure(out.Err)
	case validator.Unexpected:
		return nil, resetGeneral(unexpectedCause(out), op.correlationID)
	default:
		return nil, resetGeneral(nil, op.correlationID)
	}
}
