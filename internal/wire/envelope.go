package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/transport"
)

// ErrMalformedResponse is returned when a 2xx body is not the expected JSON.
var ErrMalformedResponse = errors.New("wire: malformed response body")

// InnerError is one entry of inner_errors.
type InnerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorEnvelope is the JSON body of a 400/401 response.
type ErrorEnvelope struct {
	Error               errcode.Code        `json:"error"`
	ErrorDescription    string              `json:"error_description,omitempty"`
	ErrorURI            string              `json:"error_uri,omitempty"`
	ErrorCodes          []int               `json:"error_codes,omitempty"`
	CorrelationID       string              `json:"correlation_id,omitempty"`
	InnerErrors         []InnerError        `json:"inner_errors,omitempty"`
	SignUpToken         string              `json:"signup_token,omitempty"`
	CredentialToken     string              `json:"credential_token,omitempty"`
	PasswordResetToken  string              `json:"password_reset_token,omitempty"`
	PasswordSubmitToken string              `json:"password_submit_token,omitempty"`
	AttributesToVerify  []map[string]string `json:"attributes_to_verify,omitempty"`
	InvalidAttributes   []map[string]string `json:"invalid_attributes,omitempty"`
	RequiredAttributes  []map[string]string `json:"required_attributes,omitempty"`
}

// AttributeNames flattens an attribute list to the values of its "name"
// keys, skipping entries without one.
func AttributeNames(attrs []map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if n := a["name"]; n != "" {
			names = append(names, n)
		}
	}
	return names
}

// StepError is a decoded envelope tagged with the step that produced it.
// Validators only accept a StepError for their own step.
type StepError struct {
	Step     errcode.Step
	Envelope ErrorEnvelope
}

func (e *StepError) Error() string {
	if e.Envelope.ErrorDescription == "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Envelope.Error)
	}
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Envelope.Error, e.Envelope.ErrorDescription)
}

// Decoder returns the error decoder for step. It only recognises envelopes
// whose code is on the step's allow list.
func Decoder(step errcode.Step) transport.ErrorDecoder {
	allowed := errcode.AllowList(step)
	return func(body []byte) (error, bool) {
		var env ErrorEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, false
		}
		env.Error = errcode.Code(strings.TrimSpace(string(env.Error)))
		if env.Error == "" || !allowed.Allows(env.Error) {
			return nil, false
		}
		return &StepError{Step: step, Envelope: env}, true
	}
}

// Send executes req for step and decodes a successful body into T.
func Send[T any](ctx context.Context, exec *transport.Executor, req transport.Request, policy transport.Policy, step errcode.Step) (*T, error) {
	resp, err := exec.Execute(ctx, req, policy, Decoder(step))
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, step, err)
	}
	return &out, nil
}
