package domain

// Flow tokens are opaque continuation credentials. Each flow step has its
// own type so one flow's token cannot be handed to another flow's request.
type (
	SignUpToken         string
	CredentialToken     string
	PasswordResetToken  string
	PasswordSubmitToken string
	SignInSLT           string
)

// GrantType is the grant_type parameter of a continue or token request.
type GrantType string

const (
	GrantTypePassword     GrantType = "password"
	GrantTypeOOB          GrantType = "oob"
	GrantTypeAttributes   GrantType = "attributes"
	GrantTypeSLT          GrantType = "urn:microsoft:params:oauth:grant-type:slt"
	GrantTypeRefreshToken GrantType = "refresh_token"
)

// PollStatus is the state of a password reset reported by poll_completion.
type PollStatus string

const (
	PollStatusNotStarted PollStatus = "not_started"
	PollStatusInProgress PollStatus = "in_progress"
	PollStatusSucceeded  PollStatus = "succeeded"
	PollStatusFailed     PollStatus = "failed"
)

// ParsePollStatus maps a wire value, reporting false for anything unknown.
func ParsePollStatus(s string) (PollStatus, bool) {
	switch PollStatus(s) {
	case PollStatusNotStarted, PollStatusInProgress, PollStatusSucceeded, PollStatusFailed:
		return PollStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether polling should stop.
func (s PollStatus) Terminal() bool {
	return s == PollStatusSucceeded || s == PollStatusFailed
}
