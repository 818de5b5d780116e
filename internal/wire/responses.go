package wire

// Success bodies. Fields absent from a response decode to their zero value;
// the validators decide which ones are mandatory.

type SignUpStartResponse struct {
	SignUpToken   string `json:"signup_token,omitempty"`
	ChallengeType string `json:"challenge_type,omitempty"`
}

// ChallengeResponse is shared by every challenge endpoint. Each flow reads
// its own continuation token field.
type ChallengeResponse struct {
	ChallengeType        string `json:"challenge_type,omitempty"`
	BindingMethod        string `json:"binding_method,omitempty"`
	ChallengeTargetLabel string `json:"challenge_target_label,omitempty"`
	ChallengeChannel     string `json:"challenge_channel,omitempty"`
	CodeLength           int    `json:"code_length,omitempty"`
	Interval             int    `json:"interval,omitempty"`
	SignUpToken          string `json:"signup_token,omitempty"`
	CredentialToken      string `json:"credential_token,omitempty"`
	PasswordResetToken   string `json:"password_reset_token,omitempty"`
}

type SignUpContinueResponse struct {
	SignInSLT string `json:"signin_slt,omitempty"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

type SignInInitiateResponse struct {
	CredentialToken string `json:"credential_token,omitempty"`
	ChallengeType   string `json:"challenge_type,omitempty"`
}

type TokenResponse struct {
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExtExpiresIn int    `json:"ext_expires_in,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ClientInfo   string `json:"client_info,omitempty"`
}

type ResetPasswordStartResponse struct {
	PasswordResetToken string `json:"password_reset_token,omitempty"`
	ChallengeType      string `json:"challenge_type,omitempty"`
}

type ResetPasswordContinueResponse struct {
	PasswordSubmitToken string `json:"password_submit_token,omitempty"`
	ChallengeType       string `json:"challenge_type,omitempty"`
	ExpiresIn           int    `json:"expires_in,omitempty"`
}

type ResetPasswordSubmitResponse struct {
	PasswordResetToken string `json:"password_reset_token,omitempty"`
	PollInterval       int    `json:"poll_interval,omitempty"`
}

type ResetPasswordPollResponse struct {
	Status             string `json:"status,omitempty"`
	PasswordResetToken string `json:"password_reset_token,omitempty"`
	SignInSLT          string `json:"signin_slt,omitempty"`
	ExpiresIn          int    `json:"expires_in,omitempty"`
}
