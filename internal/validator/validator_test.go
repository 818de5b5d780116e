package validator

import (
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/transport"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/stretchr/testify/require"
)

// envelopeErr wraps an envelope the way the executor returns it.
func envelopeErr(step errcode.Step, env wire.ErrorEnvelope) error {
	return &transport.EnvelopeError{
		Envelope: &wire.StepError{Step: step, Envelope: env},
		HTTP:     &transport.HTTPError{StatusCode: http.StatusBadRequest},
	}
}

// classifyError runs the validator of step with an error and no payload.
func classifyError(step errcode.Step, err error) any {
	switch step {
	case errcode.SignUpStart:
		return SignUpStart(nil, err, "corr")
	case errcode.SignUpChallenge:
		return SignUpChallenge(nil, err, "corr")
	case errcode.SignUpContinue:
		return SignUpContinue(nil, err, "corr")
	case errcode.SignInInitiate:
		return SignInInitiate(nil, err, "corr")
	case errcode.SignInChallenge:
		return SignInChallenge(nil, err, "corr")
	case errcode.Token:
		return Token(nil, err, "corr")
	case errcode.ResetPasswordStart:
		return ResetPasswordStart(nil, err, "corr")
	case errcode.ResetPasswordChallenge:
		return ResetPasswordChallenge(nil, err, "corr")
	case errcode.ResetPasswordContinue:
		return ResetPasswordContinue(nil, err, "corr")
	case errcode.ResetPasswordSubmit:
		return ResetPasswordSubmit(nil, err, "corr")
	case errcode.ResetPasswordPollCompletion:
		return ResetPasswordPoll(nil, err, "corr")
	}
	panic("unknown step " + string(step))
}

var allCodes = []errcode.Code{
	errcode.InvalidRequest, errcode.InvalidClient, errcode.InvalidGrant, errcode.ExpiredToken,
	errcode.UnsupportedChallengeType, errcode.InvalidScope, errcode.AuthorizationPending,
	errcode.SlowDown, errcode.CredentialRequired, errcode.UserNotFound, errcode.UserAlreadyExists,
	errcode.UserDoesNotHavePassword, errcode.InvalidOOBValue, errcode.VerificationRequired,
	errcode.AttributesRequired, errcode.AttributeValidationFailed, errcode.UnsupportedAuthMethod,
	errcode.PasswordTooWeak, errcode.PasswordTooShort, errcode.PasswordTooLong,
	errcode.PasswordRecentlyUsed, errcode.PasswordBanned, "some_future_code",
}

func TestValidators_Totality(t *testing.T) {
	t.Parallel()

	for _, step := range errcode.Steps {
		t.Run(string(step), func(t *testing.T) {
			t.Parallel()

			require.IsType(t, Unexpected{}, classifyError(step, errors.New("boom")))
			require.IsType(t, Unexpected{}, classifyError(step, &transport.NetworkError{Err: errors.New("reset")}))
			require.IsType(t, Unexpected{}, classifyError(step, &transport.HTTPError{StatusCode: 503, ServerUnavailable: true}))
			require.IsType(t, Unexpected{}, classifyError(step, nil), "nil payload without error")

			for _, code := range allCodes {
				env := wire.ErrorEnvelope{Error: code, SignUpToken: "su", CredentialToken: "ct"}
				out := classifyError(step, envelopeErr(step, env))
				require.NotNil(t, out, "code %s", code)
				if !errcode.AllowList(step).Allows(code) {
					require.IsType(t, Unexpected{}, out, "code %s is not allowed for %s", code, step)
				}
			}
		})
	}
}

func TestValidators_AllowListIsolation(t *testing.T) {
	t.Parallel()

	// Allowed for sign up start, never for sign in initiate.
	err := envelopeErr(errcode.SignInInitiate, wire.ErrorEnvelope{Error: errcode.UserAlreadyExists})
	require.IsType(t, Unexpected{}, SignInInitiate(nil, err, ""))

	// A valid envelope for another step is not this step's error.
	err = envelopeErr(errcode.SignUpStart, wire.ErrorEnvelope{Error: errcode.InvalidRequest})
	require.IsType(t, Failed{}, SignUpStart(nil, err, ""))
	require.IsType(t, Unexpected{}, SignInInitiate(nil, err, ""))
	require.IsType(t, Unexpected{}, ResetPasswordStart(nil, err, ""))
}

func TestResetPasswordChallenge(t *testing.T) {
	t.Parallel()

	t.Run("redirect wins over missing fields", func(t *testing.T) {
		t.Parallel()
		out := ResetPasswordChallenge(&wire.ChallengeResponse{ChallengeType: "redirect"}, nil, "")
		require.Equal(t, Redirect{}, out)
	})

	t.Run("oob code challenge", func(t *testing.T) {
		t.Parallel()
		out := ResetPasswordChallenge(&wire.ChallengeResponse{
			ChallengeType:        "oob",
			ChallengeChannel:     "email",
			ChallengeTargetLabel: "a@b.com",
			PasswordResetToken:   "t",
			CodeLength:           6,
		}, nil, "")
		require.Equal(t, ResetPasswordCodeRequired{
			Token: "t",
			Challenge: domain.ChallengeDescriptor{
				Type:        domain.ChallengeTypeOOB,
				TargetLabel: "a@b.com",
				Channel:     domain.ChannelEmail,
				CodeLength:  6,
			},
		}, out)
	})

	t.Run("binding method is optional but the label is not", func(t *testing.T) {
		t.Parallel()
		out := ResetPasswordChallenge(&wire.ChallengeResponse{
			ChallengeType:      "oob",
			ChallengeChannel:   "email",
			PasswordResetToken: "t",
			CodeLength:         6,
		}, nil, "")
		unexpected, ok := out.(Unexpected)
		require.True(t, ok)
		require.ErrorIs(t, unexpected.Cause, ErrMissingField)
	})

	t.Run("unknown channel", func(t *testing.T) {
		t.Parallel()
		out := ResetPasswordChallenge(&wire.ChallengeResponse{
			ChallengeType:        "oob",
			ChallengeChannel:     "pigeon",
			ChallengeTargetLabel: "a@b.com",
			PasswordResetToken:   "t",
			CodeLength:           6,
		}, nil, "")
		require.IsType(t, Unexpected{}, out)
	})

	t.Run("password challenge cannot reset a password", func(t *testing.T) {
		t.Parallel()
		out := ResetPasswordChallenge(&wire.ChallengeResponse{ChallengeType: "password", PasswordResetToken: "t"}, nil, "")
		require.IsType(t, Unexpected{}, out)
	})
}

func TestResetPasswordSubmit_PasswordPolicy(t *testing.T) {
	t.Parallel()

	err := envelopeErr(errcode.ResetPasswordSubmit, wire.ErrorEnvelope{
		Error:            errcode.PasswordTooWeak,
		ErrorDescription: "too weak",
		ErrorCodes:       []int{399246},
	})
	out := ResetPasswordSubmit(nil, err, "corr-1")

	failed, ok := out.(PasswordFailed)
	require.True(t, ok)
	require.Equal(t, PasswordTooWeak, failed.Err.Kind)
	require.Equal(t, "corr-1", failed.Err.CorrelationID)
	require.Equal(t, []int{399246}, failed.Err.ErrorCodes)
}

func TestResetPasswordContinue(t *testing.T) {
	t.Parallel()

	out := ResetPasswordContinue(nil, envelopeErr(errcode.ResetPasswordContinue, wire.ErrorEnvelope{Error: errcode.InvalidOOBValue}), "")
	require.IsType(t, InvalidCode{}, out)

	out = ResetPasswordContinue(nil, envelopeErr(errcode.ResetPasswordContinue, wire.ErrorEnvelope{Error: errcode.VerificationRequired}), "")
	require.IsType(t, Unexpected{}, out)

	out = ResetPasswordContinue(&wire.ResetPasswordContinueResponse{PasswordSubmitToken: "pst", ExpiresIn: 600}, nil, "")
	require.Equal(t, ResetPasswordCodeVerified{Token: "pst", ExpiresIn: 600}, out)
}

func TestResetPasswordSubmitAndPoll(t *testing.T) {
	t.Parallel()

	out := ResetPasswordSubmit(&wire.ResetPasswordSubmitResponse{PasswordResetToken: "prt", PollInterval: 2}, nil, "")
	require.Equal(t, ResetPasswordSubmitted{Token: "prt", PollInterval: 2}, out)

	require.IsType(t, Unexpected{}, ResetPasswordSubmit(&wire.ResetPasswordSubmitResponse{PasswordResetToken: "prt"}, nil, ""))

	polled := ResetPasswordPoll(&wire.ResetPasswordPollResponse{Status: "succeeded", SignInSLT: "slt"}, nil, "")
	require.Equal(t, ResetPasswordPolled{Status: domain.PollStatusSucceeded, SignInSLT: "slt"}, polled)

	require.IsType(t, Unexpected{}, ResetPasswordPoll(&wire.ResetPasswordPollResponse{Status: "exploded"}, nil, ""))
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	t.Run("start verification required carries the token", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.SignUpStart, wire.ErrorEnvelope{Error: errcode.VerificationRequired, SignUpToken: "su"})
		require.Equal(t, SignUpVerificationRequired{Token: "su"}, SignUpStart(nil, err, ""))

		err = envelopeErr(errcode.SignUpStart, wire.ErrorEnvelope{Error: errcode.VerificationRequired})
		require.IsType(t, Unexpected{}, SignUpStart(nil, err, ""))
	})

	t.Run("start invalid attributes", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.SignUpStart, wire.ErrorEnvelope{
			Error:             errcode.AttributeValidationFailed,
			InvalidAttributes: []map[string]string{{"name": "age"}},
		})
		out, ok := SignUpStart(nil, err, "").(SignUpAttributesInvalid)
		require.True(t, ok)
		require.Equal(t, []string{"age"}, out.Attributes)
	})

	t.Run("start user already exists", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.SignUpStart, wire.ErrorEnvelope{Error: errcode.UserAlreadyExists, CorrelationID: "server-corr"})
		out, ok := SignUpStart(nil, err, "corr").(Failed)
		require.True(t, ok)
		require.Equal(t, KindUserAlreadyExists, out.Err.Kind)
		require.Equal(t, "server-corr", out.Err.CorrelationID)
		require.Equal(t, "user_already_exists", out.Err.Kind.String())
	})

	t.Run("start success and redirect", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, SignUpStarted{Token: "su"}, SignUpStart(&wire.SignUpStartResponse{SignUpToken: "su"}, nil, ""))
		require.Equal(t, Redirect{}, SignUpStart(&wire.SignUpStartResponse{ChallengeType: "redirect"}, nil, ""))
	})

	t.Run("challenge password", func(t *testing.T) {
		t.Parallel()
		out := SignUpChallenge(&wire.ChallengeResponse{ChallengeType: "password", SignUpToken: "su"}, nil, "")
		require.Equal(t, SignUpPasswordRequired{Token: "su"}, out)
	})

	t.Run("continue continuations", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.SignUpContinue, wire.ErrorEnvelope{
			Error:              errcode.AttributesRequired,
			SignUpToken:        "su2",
			RequiredAttributes: []map[string]string{{"name": "city"}},
		})
		require.Equal(t, SignUpAttributesRequired{Token: "su2", Attributes: []string{"city"}}, SignUpContinue(nil, err, ""))

		err = envelopeErr(errcode.SignUpContinue, wire.ErrorEnvelope{Error: errcode.CredentialRequired, SignUpToken: "su3"})
		require.Equal(t, SignUpCredentialRequired{Token: "su3"}, SignUpContinue(nil, err, ""))

		err = envelopeErr(errcode.SignUpContinue, wire.ErrorEnvelope{Error: errcode.InvalidOOBValue})
		require.IsType(t, InvalidCode{}, SignUpContinue(nil, err, ""))

		err = envelopeErr(errcode.SignUpContinue, wire.ErrorEnvelope{Error: errcode.PasswordBanned})
		require.IsType(t, PasswordFailed{}, SignUpContinue(nil, err, ""))
	})

	t.Run("continue success", func(t *testing.T) {
		t.Parallel()
		out := SignUpContinue(&wire.SignUpContinueResponse{SignInSLT: "slt", ExpiresIn: 300}, nil, "")
		require.Equal(t, SignUpCompleted{SignInSLT: "slt", ExpiresIn: 300}, out)
	})
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	t.Run("initiate", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, SignInInitiated{Token: "ct"}, SignInInitiate(&wire.SignInInitiateResponse{CredentialToken: "ct"}, nil, ""))
		require.Equal(t, Redirect{}, SignInInitiate(&wire.SignInInitiateResponse{ChallengeType: "redirect"}, nil, ""))
		require.IsType(t, Unexpected{}, SignInInitiate(&wire.SignInInitiateResponse{}, nil, ""))

		err := envelopeErr(errcode.SignInInitiate, wire.ErrorEnvelope{Error: errcode.UserNotFound})
		out, ok := SignInInitiate(nil, err, "").(Failed)
		require.True(t, ok)
		require.Equal(t, KindUserNotFound, out.Err.Kind)
	})

	t.Run("challenge sms code", func(t *testing.T) {
		t.Parallel()
		out := SignInChallenge(&wire.ChallengeResponse{
			ChallengeType:        "otp",
			ChallengeChannel:     "phone",
			ChallengeTargetLabel: "+61*******12",
			CredentialToken:      "ct",
			CodeLength:           8,
		}, nil, "")
		code, ok := out.(SignInCodeRequired)
		require.True(t, ok)
		require.Equal(t, domain.ChannelSMS, code.Challenge.Channel)
		require.Equal(t, 8, code.Challenge.CodeLength)
	})

	t.Run("token success requires an id token", func(t *testing.T) {
		t.Parallel()
		body := &wire.TokenResponse{AccessToken: "at", ExpiresIn: 3600, Scope: "openid api://read"}
		require.IsType(t, Unexpected{}, Token(body, nil, ""))

		issued, ok := Refresh(body, nil, "").(TokenIssued)
		require.True(t, ok)
		require.Equal(t, []string{"openid", "api://read"}, issued.Scopes)

		body.IDToken = "idt"
		require.IsType(t, TokenIssued{}, Token(body, nil, ""))

		require.IsType(t, Unexpected{}, Refresh(&wire.TokenResponse{AccessToken: "at"}, nil, ""))
	})

	t.Run("token credential required continues", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.Token, wire.ErrorEnvelope{Error: errcode.CredentialRequired, CredentialToken: "ct2"})
		require.Equal(t, SignInCredentialRequired{Token: "ct2"}, Token(nil, err, ""))
	})

	t.Run("token invalid grant", func(t *testing.T) {
		t.Parallel()
		err := envelopeErr(errcode.Token, wire.ErrorEnvelope{Error: errcode.InvalidGrant, ErrorDescription: "bad password"})
		out, ok := Token(nil, err, "corr").(Failed)
		require.True(t, ok)
		require.Equal(t, KindInvalidGrant, out.Err.Kind)
		require.Equal(t, "corr", out.Err.CorrelationID)
		require.Equal(t, "invalid_grant: bad password", out.Err.Error())
	})
}
