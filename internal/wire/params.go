// Package wire is the native authentication wire format: endpoint paths,
// form parameters, response bodies and error envelopes.
package wire

// Form parameter keys.
const (
	ParamClientID            = "client_id"
	ParamChallengeType       = "challenge_type"
	ParamGrantType           = "grant_type"
	ParamUsername            = "username"
	ParamEmail               = "email"
	ParamPassword            = "password"
	ParamScope               = "scope"
	ParamCredentialToken     = "credential_token"
	ParamOOB                 = "oob"
	ParamOTP                 = "otp"
	ParamSignInSLT           = "signin_slt"
	ParamAttributes          = "attributes"
	ParamSignUpToken         = "signup_token"
	ParamPasswordResetToken  = "password_reset_token"
	ParamPasswordSubmitToken = "password_submit_token"
	ParamNewPassword         = "new_password"
	ParamClientInfo          = "client_info"
	ParamRefreshToken        = "refresh_token"
)

// Headers sent with every request.
const (
	HeaderClientRequestID       = "client-request-id"
	HeaderReturnClientRequestID = "return-client-request-id"
)
