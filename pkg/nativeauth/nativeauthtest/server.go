// Package nativeauthtest runs an in-process fake of the native
// authentication endpoints for tests. Codes are real TOTP codes and ID
// tokens are signed JWTs, so a Client talks to it exactly as it would to
// the real service.
package nativeauthtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/cryptox"
	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
	"github.com/aussiebroadwan/nativeauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Endpoint paths, for FailNext and Requests.
var (
	SignUpStart                 = "/" + wire.Path(errcode.SignUpStart)
	SignUpChallenge             = "/" + wire.Path(errcode.SignUpChallenge)
	SignUpContinue              = "/" + wire.Path(errcode.SignUpContinue)
	SignInInitiate              = "/" + wire.Path(errcode.SignInInitiate)
	SignInChallenge             = "/" + wire.Path(errcode.SignInChallenge)
	Token                       = "/" + wire.Path(errcode.Token)
	ResetPasswordStart          = "/" + wire.Path(errcode.ResetPasswordStart)
	ResetPasswordChallenge      = "/" + wire.Path(errcode.ResetPasswordChallenge)
	ResetPasswordContinue       = "/" + wire.Path(errcode.ResetPasswordContinue)
	ResetPasswordSubmit         = "/" + wire.Path(errcode.ResetPasswordSubmit)
	ResetPasswordPollCompletion = "/" + wire.Path(errcode.ResetPasswordPollCompletion)
)

const (
	codeLength        = 6
	minPasswordLength = 8
)

// User is a registered account.
type User struct {
	Username   string
	Password   string
	Name       string
	OID        string
	Attributes map[string]any
}

// Options shape the fake's behaviour. The zero value is usable.
type Options struct {
	ClientID string
	TenantID string

	// SignInChallenge is what signin/challenge asks for: "oob" (default),
	// "password" or "redirect".
	SignInChallenge string

	// RequiredAttributes must be present before sign up completes.
	RequiredAttributes []string

	// CodeAfterPassword answers a correct password with
	// credential_required, so the user also has to enter a code.
	CodeAfterPassword bool

	// PollsBeforeCompletion is how many polls report in_progress before a
	// password reset succeeds.
	PollsBeforeCompletion int
	// PollInterval is the poll_interval returned by submit, in seconds.
	PollInterval int

	AccessTokenLifetime time.Duration

	// RateLimit, when set, limits requests per username.
	RateLimit *httpx.RateLimitConfig
}

// Failure is a canned response served instead of the real one.
type Failure struct {
	Status int
	Header http.Header
	// Body is JSON encoded when non-nil.
	Body any
}

// Unavailable is a 503 with no envelope.
func Unavailable() Failure {
	return Failure{Status: http.StatusServiceUnavailable}
}

// OAuthError is an error envelope with the given code.
func OAuthError(status int, code, description string) Failure {
	return Failure{Status: status, Body: map[string]any{"error": code, "error_description": description}}
}

// DeviceChallenge is a PKeyAuth challenge. The retried request is served
// normally.
func DeviceChallenge() Failure {
	h := http.Header{}
	h.Set("WWW-Authenticate", `PKeyAuth Context="nativeauthtest", Version="1.0", nonce="n0nce"`)
	return Failure{Status: http.StatusUnauthorized, Header: h, Body: map[string]any{}}
}

// Server is the fake identity service.
type Server struct {
	*httptest.Server

	opts Options
	key  []byte

	mu             sync.Mutex
	users          map[string]*User
	sessions       map[string]*session
	slts           map[string]string
	refreshTokens  map[string]string
	codes          map[string]string
	failures       map[string][]Failure
	requests       map[string]int
	correlationIDs []string
	authorizations []string
}

// session is one flow in progress, keyed by its continuation token.
type session struct {
	username   string
	password   string
	attributes map[string]any
	secret     string
	verified   bool
	polls      int
	submitted  string
}

// New starts a server and closes it when t ends.
func New(t testing.TB, opts Options) *Server {
	t.Helper()

	if opts.ClientID == "" {
		opts.ClientID = "nativeauthtest-client"
	}
	if opts.TenantID == "" {
		opts.TenantID = uuid.NewString()
	}
	if opts.SignInChallenge == "" {
		opts.SignInChallenge = "oob"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 1
	}
	if opts.AccessTokenLifetime <= 0 {
		opts.AccessTokenLifetime = time.Hour
	}

	key, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		t.Fatalf("nativeauthtest: signing key: %v", err)
	}

	s := &Server{
		opts:          opts,
		key:           []byte(key),
		users:         make(map[string]*User),
		sessions:      make(map[string]*session),
		slts:          make(map[string]string),
		refreshTokens: make(map[string]string),
		codes:         make(map[string]string),
		failures:      make(map[string][]Failure),
		requests:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+SignUpStart, s.signUpStart)
	mux.HandleFunc("POST "+SignUpChallenge, s.signUpChallenge)
	mux.HandleFunc("POST "+SignUpContinue, s.signUpContinue)
	mux.HandleFunc("POST "+SignInInitiate, s.signInInitiate)
	mux.HandleFunc("POST "+SignInChallenge, s.signInChallenge)
	mux.HandleFunc("POST "+Token, s.token)
	mux.HandleFunc("POST "+ResetPasswordStart, s.resetPasswordStart)
	mux.HandleFunc("POST "+ResetPasswordChallenge, s.resetPasswordChallenge)
	mux.HandleFunc("POST "+ResetPasswordContinue, s.resetPasswordContinue)
	mux.HandleFunc("POST "+ResetPasswordSubmit, s.resetPasswordSubmit)
	mux.HandleFunc("POST "+ResetPasswordPollCompletion, s.resetPasswordPoll)

	var handler http.Handler = s.checkClient(mux)
	if opts.RateLimit != nil {
		handler = httpx.RateLimitMiddleware(*opts.RateLimit, httpx.FormFieldKeyExtractor(wire.ParamUsername))(handler)
	}
	s.Server = httptest.NewServer(s.intercept(handler))
	t.Cleanup(s.Close)
	return s
}

// ClientID is the client id the server accepts.
func (s *Server) ClientID() string { return s.opts.ClientID }

// AddUser registers u. OID is generated when empty.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.OID == "" {
		u.OID = uuid.NewString()
	}
	s.users[u.Username] = &u
}

// User returns a copy of the registered user.
func (s *Server) User(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// LastCode is the most recent one-time code sent to username.
func (s *Server) LastCode(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[username]
}

// FailNext queues failures for endpoint, served in order before any
// normal response.
func (s *Server) FailNext(endpoint string, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = append(s.failures[endpoint], failures...)
}

// Requests counts requests received by endpoint, failures included.
func (s *Server) Requests(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[endpoint]
}

// TotalRequests counts every request received.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// CorrelationIDs are the client-request-id headers received, in order.
func (s *Server) CorrelationIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.correlationIDs)
}

// Authorizations are the Authorization headers received, in order.
func (s *Server) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.authorizations)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refreshTokens)
}

// ============================================================================
// Middleware
// ============================================================================

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		if id := r.Header.Get(wire.HeaderClientRequestID); id != "" {
			s.correlationIDs = append(s.correlationIDs, id)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			s.authorizations = append(s.authorizations, auth)
		}
		var failure *Failure
		if queued := s.failures[r.URL.Path]; len(queued) > 0 {
			failure = &queued[0]
			s.failures[r.URL.Path] = queued[1:]
		}
		s.mu.Unlock()

		if failure == nil {
			next.ServeHTTP(w, r)
			return
		}
		for k, vs := range failure.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		if failure.Body == nil {
			w.WriteHeader(failure.Status)
			return
		}
		httpx.WriteJSON(w, failure.Status, failure.Body)
	})
}

func (s *Server) checkClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "malformed form", nil)
			return
		}
		if r.PostForm.Get(wire.ParamClientID) != s.opts.ClientID {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidClient, "unknown client", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, code errcode.Code, description string, extra map[string]any) {
	if extra == nil {
		extra = map[string]any{}
	}
	extra["correlation_id"] = r.Header.Get(wire.HeaderClientRequestID)
	extra["error_codes"] = []int{errorCodes[code]}
	httpx.WriteOAuthError(w, status, string(code), description, extra)
}

// errorCodes are the numeric codes the service pairs with each error.
var errorCodes = map[errcode.Code]int{
	errcode.InvalidRequest:            90023,
	errcode.InvalidClient:             700016,
	errcode.InvalidGrant:              50126,
	errcode.ExpiredToken:              552003,
	errcode.UserNotFound:              50034,
	errcode.UserAlreadyExists:         1003037,
	errcode.UserDoesNotHavePassword:   500222,
	errcode.InvalidOOBValue:           50181,
	errcode.CredentialRequired:        55103,
	errcode.AttributesRequired:        55106,
	errcode.AttributeValidationFailed: 55107,
	errcode.PasswordTooShort:          399246,
	errcode.PasswordTooWeak:           399246,
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) newToken() string {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		panic(err)
	}
	return token
}

// sendCode rotates the session's TOTP secret and records the code the
// user would have received.
func (s *Server) sendCode(sess *session) error {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "nativeauthtest",
		AccountName: sess.username,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return err
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return err
	}
	sess.secret = key.Secret()
	s.codes[sess.username] = code
	return nil
}

func (s *Server) codeChallenge(w http.ResponseWriter, sess *session, tokenField, token string) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"challenge_type":         "oob",
		"binding_method":         "prompt",
		"challenge_target_label": sess.username,
		"challenge_channel":      "email",
		"code_length":            codeLength,
		"interval":               300,
		tokenField:               token,
	})
}

func supports(challengeTypes, want string) bool {
	return slices.Contains(strings.Fields(challengeTypes), want)
}

// ============================================================================
// Sign up
// ============================================================================

func (s *Server) signUpStart(w http.ResponseWriter, r *http.Request) {
	username := r.PostForm.Get(wire.ParamUsername)
	password := r.PostForm.Get(wire.ParamPassword)
	if username == "" {
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "username is required", nil)
		return
	}
	if !supports(r.PostForm.Get(wire.ParamChallengeType), "oob") {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"challenge_type": "redirect"})
		return
	}

	attrs := map[string]any{}
	if raw := r.PostForm.Get(wire.ParamAttributes); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "attributes must be a json object", nil)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		s.fail(w, r, http.StatusBadRequest, errcode.UserAlreadyExists, "an account with this username already exists", nil)
		return
	}
	if password != "" && len(password) < minPasswordLength {
		s.fail(w, r, http.StatusBadRequest, errcode.PasswordTooShort, "password is too short", nil)
		return
	}
	if invalid := invalidAttributes(attrs); len(invalid) > 0 {
		s.fail(w, r, http.StatusBadRequest, errcode.AttributeValidationFailed, "attribute validation failed",
			map[string]any{"invalid_attributes": invalid})
		return
	}

	token := s.newToken()
	s.sessions[token] = &session{username: username, password: password, attributes: attrs}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"signup_token": token})
}

func (s *Server) signUpChallenge(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamSignUpToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the sign up token has expired", nil)
		return
	}
	if sess.verified && sess.password == "" && supports(r.PostForm.Get(wire.ParamChallengeType), "password") {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"challenge_type": "password", "signup_token": token})
		return
	}
	if err := s.sendCode(sess); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.codeChallenge(w, sess, "signup_token", token)
}

func (s *Server) signUpContinue(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamSignUpToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the sign up token has expired", nil)
		return
	}

	switch r.PostForm.Get(wire.ParamGrantType) {
	case "oob":
		if !totp.Validate(r.PostForm.Get(wire.ParamOOB), sess.secret) {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidOOBValue, "the code is incorrect", nil)
			return
		}
		sess.verified = true
	case "password":
		if !sess.verified {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidGrant, "verify the email address first", nil)
			return
		}
		password := r.PostForm.Get(wire.ParamPassword)
		if len(password) < minPasswordLength {
			s.fail(w, r, http.StatusBadRequest, errcode.PasswordTooWeak, "password is too weak", nil)
			return
		}
		sess.password = password
	case "attributes":
		attrs := map[string]any{}
		if err := json.Unmarshal([]byte(r.PostForm.Get(wire.ParamAttributes)), &attrs); err != nil {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "attributes must be a json object", nil)
			return
		}
		if invalid := invalidAttributes(attrs); len(invalid) > 0 {
			s.fail(w, r, http.StatusBadRequest, errcode.AttributeValidationFailed, "attribute validation failed",
				map[string]any{"invalid_attributes": invalid, "signup_token": token})
			return
		}
		for k, v := range attrs {
			sess.attributes[k] = v
		}
	default:
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "unsupported grant type", nil)
		return
	}

	if !sess.verified {
		s.fail(w, r, http.StatusBadRequest, errcode.CredentialRequired, "verification is required", map[string]any{"signup_token": token})
		return
	}
	if sess.password == "" {
		s.fail(w, r, http.StatusBadRequest, errcode.CredentialRequired, "a password is required", map[string]any{"signup_token": token})
		return
	}
	var missing []map[string]string
	for _, name := range s.opts.RequiredAttributes {
		if _, ok := sess.attributes[name]; !ok {
			missing = append(missing, map[string]string{"name": name})
		}
	}
	if len(missing) > 0 {
		s.fail(w, r, http.StatusBadRequest, errcode.AttributesRequired, "attributes are required",
			map[string]any{"signup_token": token, "required_attributes": missing})
		return
	}

	delete(s.sessions, token)
	name, _ := sess.attributes["displayName"].(string)
	s.users[sess.username] = &User{
		Username:   sess.username,
		Password:   sess.password,
		Name:       name,
		OID:        uuid.NewString(),
		Attributes: sess.attributes,
	}
	slt := s.newToken()
	s.slts[slt] = sess.username
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"signin_slt": slt, "expires_in": 600})
}

// invalidAttributes rejects blank string values.
func invalidAttributes(attrs map[string]any) []map[string]string {
	var out []map[string]string
	for name, v := range attrs {
		if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
			out = append(out, map[string]string{"name": name})
		}
	}
	return out
}

// ============================================================================
// Sign in
// ============================================================================

func (s *Server) signInInitiate(w http.ResponseWriter, r *http.Request) {
	username := r.PostForm.Get(wire.ParamUsername)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.UserNotFound, "no account found for this username", nil)
		return
	}
	if s.opts.SignInChallenge == "redirect" {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"challenge_type": "redirect"})
		return
	}

	token := s.newToken()
	s.sessions[token] = &session{username: username}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"credential_token": token})
}

func (s *Server) signInChallenge(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamCredentialToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the credential token has expired", nil)
		return
	}

	switch {
	case s.opts.SignInChallenge == "redirect":
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"challenge_type": "redirect"})
	case s.opts.SignInChallenge == "password" && !sess.verified:
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"challenge_type": "password", "credential_token": token})
	default:
		if err := s.sendCode(sess); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.codeChallenge(w, sess, "credential_token", token)
	}
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm

	s.mu.Lock()
	defer s.mu.Unlock()

	var username string
	switch form.Get(wire.ParamGrantType) {
	case "password":
		if token := form.Get(wire.ParamCredentialToken); token != "" {
			sess, ok := s.sessions[token]
			if !ok {
				s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the credential token has expired", nil)
				return
			}
			username = sess.username
		} else {
			username = form.Get(wire.ParamUsername)
		}
		user, ok := s.users[username]
		if !ok {
			s.fail(w, r, http.StatusBadRequest, errcode.UserNotFound, "no account found for this username", nil)
			return
		}
		if user.Password == "" || user.Password != form.Get(wire.ParamPassword) {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidGrant, "the password is incorrect", nil)
			return
		}
		if s.opts.CodeAfterPassword {
			token := form.Get(wire.ParamCredentialToken)
			if token == "" {
				token = s.newToken()
			}
			s.sessions[token] = &session{username: username, verified: true}
			s.fail(w, r, http.StatusBadRequest, errcode.CredentialRequired, "a second factor is required",
				map[string]any{"credential_token": token})
			return
		}
	case "oob":
		token := form.Get(wire.ParamCredentialToken)
		sess, ok := s.sessions[token]
		if !ok {
			s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the credential token has expired", nil)
			return
		}
		if !totp.Validate(form.Get(wire.ParamOOB), sess.secret) {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidOOBValue, "the code is incorrect", nil)
			return
		}
		delete(s.sessions, token)
		username = sess.username
	case "urn:microsoft:params:oauth:grant-type:slt":
		slt := form.Get(wire.ParamSignInSLT)
		owner, ok := s.slts[slt]
		if !ok {
			s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the sign in token has expired", nil)
			return
		}
		delete(s.slts, slt)
		username = owner
	case "refresh_token":
		rt := form.Get(wire.ParamRefreshToken)
		owner, ok := s.refreshTokens[rt]
		if !ok {
			s.fail(w, r, http.StatusBadRequest, errcode.InvalidGrant, "the refresh token has expired", nil)
			return
		}
		delete(s.refreshTokens, rt)
		username = owner
	default:
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidRequest, "unsupported grant type", nil)
		return
	}

	user, ok := s.users[username]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.UserNotFound, "no account found for this username", nil)
		return
	}
	body, err := s.issue(user, form.Get(wire.ParamScope))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

// issue mints tokens for user. The caller holds s.mu.
func (s *Server) issue(user *User, scope string) (map[string]any, error) {
	now := time.Now()
	claims := jwtx.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.URL + "/" + s.opts.TenantID + "/v2.0",
			Subject:   user.OID,
			Audience:  jwt.ClaimStrings{s.opts.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		OID:               user.OID,
		TID:               s.opts.TenantID,
		PreferredUsername: user.Username,
		Name:              user.Name,
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, err
	}

	rt := s.newToken()
	s.refreshTokens[rt] = user.Username

	return map[string]any{
		"token_type":     "Bearer",
		"scope":          scope,
		"expires_in":     int(s.opts.AccessTokenLifetime.Seconds()),
		"ext_expires_in": int(s.opts.AccessTokenLifetime.Seconds()),
		"access_token":   s.newToken(),
		"refresh_token":  rt,
		"id_token":       idToken,
		"client_info":    jwtx.EncodeClientInfo(jwtx.ClientInfo{UID: user.OID, UTID: s.opts.TenantID}),
	}, nil
}

// ============================================================================
// Reset password
// ============================================================================

func (s *Server) resetPasswordStart(w http.ResponseWriter, r *http.Request) {
	username := r.PostForm.Get(wire.ParamUsername)

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.UserNotFound, "no account found for this username", nil)
		return
	}
	if user.Password == "" {
		s.fail(w, r, http.StatusBadRequest, errcode.UserDoesNotHavePassword, "the account has no password", nil)
		return
	}

	token := s.newToken()
	s.sessions[token] = &session{username: username}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"password_reset_token": token})
}

func (s *Server) resetPasswordChallenge(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamPasswordResetToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the password reset token has expired", nil)
		return
	}
	if err := s.sendCode(sess); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.codeChallenge(w, sess, "password_reset_token", token)
}

func (s *Server) resetPasswordContinue(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamPasswordResetToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the password reset token has expired", nil)
		return
	}
	if !totp.Validate(r.PostForm.Get(wire.ParamOOB), sess.secret) {
		s.fail(w, r, http.StatusBadRequest, errcode.InvalidOOBValue, "the code is incorrect", nil)
		return
	}

	delete(s.sessions, token)
	submit := s.newToken()
	sess.verified = true
	s.sessions[submit] = sess
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"password_submit_token": submit, "expires_in": 600})
}

func (s *Server) resetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamPasswordSubmitToken)
	password := r.PostForm.Get(wire.ParamNewPassword)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || !sess.verified {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the password submit token has expired", nil)
		return
	}
	if len(password) < minPasswordLength {
		s.fail(w, r, http.StatusBadRequest, errcode.PasswordTooWeak, "password is too weak", nil)
		return
	}

	delete(s.sessions, token)
	poll := s.newToken()
	sess.submitted = password
	s.sessions[poll] = sess
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"password_reset_token": poll, "poll_interval": s.opts.PollInterval})
}

func (s *Server) resetPasswordPoll(w http.ResponseWriter, r *http.Request) {
	token := r.PostForm.Get(wire.ParamPasswordResetToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || sess.submitted == "" {
		s.fail(w, r, http.StatusBadRequest, errcode.ExpiredToken, "the password reset token has expired", nil)
		return
	}

	sess.polls++
	if sess.polls <= s.opts.PollsBeforeCompletion {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "in_progress"})
		return
	}

	delete(s.sessions, token)
	if user, ok := s.users[sess.username]; ok {
		user.Password = sess.submitted
	}
	slt := s.newToken()
	s.slts[slt] = sess.username
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "succeeded", "signin_slt": slt, "expires_in": 600})
}
