package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/transport"
	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
)

// ErrInvalidParameter is returned when a request cannot be built from the
// supplied parameters. Nothing is sent in that case.
var ErrInvalidParameter = errors.New("wire: invalid request parameter")

var paths = map[errcode.Step]string{
	errcode.SignUpStart:                 "signup/v1.0/start",
	errcode.SignUpChallenge:             "signup/v1.0/challenge",
	errcode.SignUpContinue:              "signup/v1.0/continue",
	errcode.SignInInitiate:              "signin/v1.0/initiate",
	errcode.SignInChallenge:             "signin/v1.0/challenge",
	errcode.Token:                       "oauth2/v2.0/token",
	errcode.ResetPasswordStart:          "resetpassword/v1.0/start",
	errcode.ResetPasswordChallenge:      "resetpassword/v1.0/challenge",
	errcode.ResetPasswordContinue:       "resetpassword/v1.0/continue",
	errcode.ResetPasswordSubmit:         "resetpassword/v1.0/submit",
	errcode.ResetPasswordPollCompletion: "resetpassword/v1.0/poll_completion",
}

// Path returns the endpoint path of step relative to the authority.
func Path(step errcode.Step) string { return paths[step] }

// Builder turns typed parameters into request templates.
type Builder struct {
	authority      *url.URL
	clientID       string
	challengeTypes string
}

// NewBuilder validates the authority and returns a Builder for clientID.
func NewBuilder(authority, clientID string, challengeTypes []domain.ChallengeType) (*Builder, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidParameter)
	}

	u, err := url.Parse(authority)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: authority %q must be an absolute http(s) url", ErrInvalidParameter, authority)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &Builder{
		authority:      u,
		clientID:       clientID,
		challengeTypes: domain.ChallengeTypeParam(challengeTypes),
	}, nil
}

// Host is the authority's host, used as the cache environment.
func (b *Builder) Host() string { return b.authority.Host }

func (b *Builder) request(step errcode.Step, correlationID string, form url.Values) transport.Request {
	form.Set(ParamClientID, b.clientID)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Accept", "application/json")
	if correlationID != "" {
		header.Set(HeaderClientRequestID, correlationID)
		header.Set(HeaderReturnClientRequestID, "true")
	}

	return transport.Request{
		Method: http.MethodPost,
		URL:    b.authority.JoinPath(paths[step]),
		Header: header,
		Body:   []byte(form.Encode()),
	}
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidParameter, name)
	}
	return nil
}

func encodeAttributes(attrs map[string]any) (string, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("%w: attributes: %w", ErrInvalidParameter, err)
	}
	return string(data), nil
}

// ============================================================================
// Sign up
// ============================================================================

type SignUpStartParams struct {
	Username   string
	Password   string
	Attributes map[string]any
}

func (b *Builder) SignUpStart(correlationID string, p SignUpStartParams) (transport.Request, error) {
	if err := required(ParamUsername, p.Username); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamUsername, p.Username)
	form.Set(ParamChallengeType, b.challengeTypes)
	if p.Password != "" {
		form.Set(ParamPassword, p.Password)
	}
	if len(p.Attributes) > 0 {
		attrs, err := encodeAttributes(p.Attributes)
		if err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamAttributes, attrs)
	}
	return b.request(errcode.SignUpStart, correlationID, form), nil
}

func (b *Builder) SignUpChallenge(correlationID string, token domain.SignUpToken) (transport.Request, error) {
	if err := required(ParamSignUpToken, string(token)); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamSignUpToken, string(token))
	form.Set(ParamChallengeType, b.challengeTypes)
	return b.request(errcode.SignUpChallenge, correlationID, form), nil
}

type SignUpContinueParams struct {
	Token      domain.SignUpToken
	GrantType  domain.GrantType
	OOB        string
	Password   string
	Attributes map[string]any
}

func (b *Builder) SignUpContinue(correlationID string, p SignUpContinueParams) (transport.Request, error) {
	if err := required(ParamSignUpToken, string(p.Token)); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamSignUpToken, string(p.Token))
	form.Set(ParamGrantType, string(p.GrantType))

	switch p.GrantType {
	case domain.GrantTypeOOB:
		if err := required(ParamOOB, p.OOB); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamOOB, p.OOB)
	case domain.GrantTypePassword:
		if err := required(ParamPassword, p.Password); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamPassword, p.Password)
	case domain.GrantTypeAttributes:
		if len(p.Attributes) == 0 {
			return transport.Request{}, fmt.Errorf("%w: attributes are required", ErrInvalidParameter)
		}
		attrs, err := encodeAttributes(p.Attributes)
		if err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamAttributes, attrs)
	default:
		return transport.Request{}, fmt.Errorf("%w: unsupported sign up grant %q", ErrInvalidParameter, p.GrantType)
	}
	return b.request(errcode.SignUpContinue, correlationID, form), nil
}

// ============================================================================
// Sign in
// ============================================================================

func (b *Builder) SignInInitiate(correlationID, username string) (transport.Request, error) {
	if err := required(ParamUsername, username); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamUsername, username)
	form.Set(ParamChallengeType, b.challengeTypes)
	return b.request(errcode.SignInInitiate, correlationID, form), nil
}

func (b *Builder) SignInChallenge(correlationID string, token domain.CredentialToken) (transport.Request, error) {
	if err := required(ParamCredentialToken, string(token)); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamCredentialToken, string(token))
	form.Set(ParamChallengeType, b.challengeTypes)
	return b.request(errcode.SignInChallenge, correlationID, form), nil
}

// TokenParams covers every grant the token endpoint accepts from this
// client. Only the fields relevant to GrantType are sent.
type TokenParams struct {
	GrantType       domain.GrantType
	Scopes          []string
	Username        string
	Password        string
	OOB             string
	CredentialToken domain.CredentialToken
	SignInSLT       domain.SignInSLT
	RefreshToken    string
}

func (b *Builder) Token(correlationID string, p TokenParams) (transport.Request, error) {
	form := url.Values{}
	form.Set(ParamGrantType, string(p.GrantType))
	form.Set(ParamClientInfo, "true")
	if scope := httpx.JoinSpaceDelimited(p.Scopes); scope != "" {
		form.Set(ParamScope, scope)
	}

	switch p.GrantType {
	case domain.GrantTypePassword:
		if p.CredentialToken == "" {
			if err := required(ParamUsername, p.Username); err != nil {
				return transport.Request{}, err
			}
			form.Set(ParamUsername, p.Username)
		} else {
			form.Set(ParamCredentialToken, string(p.CredentialToken))
		}
		if err := required(ParamPassword, p.Password); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamPassword, p.Password)
		form.Set(ParamChallengeType, b.challengeTypes)
	case domain.GrantTypeOOB:
		if err := required(ParamCredentialToken, string(p.CredentialToken)); err != nil {
			return transport.Request{}, err
		}
		if err := required(ParamOOB, p.OOB); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamCredentialToken, string(p.CredentialToken))
		form.Set(ParamOOB, p.OOB)
	case domain.GrantTypeSLT:
		if err := required(ParamSignInSLT, string(p.SignInSLT)); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamSignInSLT, string(p.SignInSLT))
		if p.Username != "" {
			form.Set(ParamUsername, p.Username)
		}
	case domain.GrantTypeRefreshToken:
		if err := required(ParamRefreshToken, p.RefreshToken); err != nil {
			return transport.Request{}, err
		}
		form.Set(ParamRefreshToken, p.RefreshToken)
	default:
		return transport.Request{}, fmt.Errorf("%w: unsupported grant %q", ErrInvalidParameter, p.GrantType)
	}
	return b.request(errcode.Token, correlationID, form), nil
}

// ============================================================================
// Reset password
// ============================================================================

func (b *Builder) ResetPasswordStart(correlationID, username string) (transport.Request, error) {
	if err := required(ParamUsername, username); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamUsername, username)
	form.Set(ParamChallengeType, b.challengeTypes)
	return b.request(errcode.ResetPasswordStart, correlationID, form), nil
}

func (b *Builder) ResetPasswordChallenge(correlationID string, token domain.PasswordResetToken) (transport.Request, error) {
	if err := required(ParamPasswordResetToken, string(token)); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamPasswordResetToken, string(token))
	form.Set(ParamChallengeType, b.challengeTypes)
	return b.request(errcode.ResetPasswordChallenge, correlationID, form), nil
}

func (b *Builder) ResetPasswordContinue(correlationID string, token domain.PasswordResetToken, code string) (transport.Request, error) {
	if err := required(ParamPasswordResetToken, string(token)); err != nil {
		return transport.Request{}, err
	}
	if err := required(ParamOOB, code); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamPasswordResetToken, string(token))
	form.Set(ParamGrantType, string(domain.GrantTypeOOB))
	form.Set(ParamOOB, code)
	return b.request(errcode.ResetPasswordContinue, correlationID, form), nil
}

func (b *Builder) ResetPasswordSubmit(correlationID string, token domain.PasswordSubmitToken, newPassword string) (transport.Request, error) {
	if err := required(ParamPasswordSubmitToken, string(token)); err != nil {
		return transport.Request{}, err
	}
	if err := required(ParamNewPassword, newPassword); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamPasswordSubmitToken, string(token))
	form.Set(ParamNewPassword, newPassword)
	return b.request(errcode.ResetPasswordSubmit, correlationID, form), nil
}

func (b *Builder) ResetPasswordPollCompletion(correlationID string, token domain.PasswordResetToken) (transport.Request, error) {
	if err := required(ParamPasswordResetToken, string(token)); err != nil {
		return transport.Request{}, err
	}

	form := url.Values{}
	form.Set(ParamPasswordResetToken, string(token))
	return b.request(errcode.ResetPasswordPollCompletion, correlationID, form), nil
}
