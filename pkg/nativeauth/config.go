package nativeauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
)

// Defaults applied by New for zero valued Config fields.
const (
	DefaultRetryCount       = 1
	DefaultRetryInterval    = time.Second
	DefaultExpirationBuffer = 5 * time.Minute
	DefaultPollMaxAttempts  = 30
	DefaultHTTPTimeout      = 30 * time.Second
)

// ChallengeType is an authentication method the application can handle
// natively. Redirect is always advertised in addition to these.
type ChallengeType string

const (
	ChallengeTypeOOB      ChallengeType = "oob"
	ChallengeTypePassword ChallengeType = "password"
)

// HTTPDoer sends one HTTP request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// DeviceAuthHandler answers a device authentication challenge with the
// Authorization header value to resend the request with.
type DeviceAuthHandler interface {
	Handle(ctx context.Context, challenge string, requestURL *url.URL) (string, error)
}

// Cache stores accounts and tokens. *tokencache.Cache satisfies it.
type Cache interface {
	AllAccounts(ctx context.Context) ([]tokencache.Account, error)
	Tokens(ctx context.Context, account tokencache.Account, scopes []string) (*tokencache.Tokens, error)
	IDToken(ctx context.Context, account tokencache.Account) (*tokencache.IDToken, error)
	Persist(ctx context.Context, p tokencache.PersistParams) (tokencache.Account, error)
	RemoveAccount(ctx context.Context, account tokencache.Account) error
}

// Config configures a Client. Only ClientID and Authority are required.
type Config struct {
	// ClientID is the application (client) id registered with the tenant.
	ClientID string

	// Authority is the tenant base URL, e.g. https://contoso.ciamlogin.com/contoso.onmicrosoft.com
	Authority string

	// ChallengeTypes the application supports. Defaults to oob and password.
	ChallengeTypes []ChallengeType

	// RetryCount is how many times a request is resent after a 5xx response.
	// Zero uses DefaultRetryCount; negative disables retries.
	RetryCount    int
	RetryInterval time.Duration

	// ExpirationBuffer treats cached access tokens as expired this long
	// before they actually expire.
	ExpirationBuffer time.Duration

	// PollMaxAttempts bounds password reset completion polling.
	PollMaxAttempts int

	// PollInterval overrides the server's poll_interval when positive.
	PollInterval time.Duration

	// FlowTimeout bounds every public call, including retries and polling.
	// Zero means no limit beyond the caller's context.
	FlowTimeout time.Duration

	// HTTPClient defaults to an *http.Client with request logging and the
	// httpx.OutboundLimit rate limit.
	HTTPClient HTTPDoer

	// OutboundLimit configures the default HTTP client's rate limit.
	OutboundLimit *httpx.RateLimitConfig

	// Cache defaults to an in-memory cache.
	Cache Cache

	// DeviceAuth answers PKeyAuth challenges. Nil makes them fail.
	DeviceAuth DeviceAuthHandler

	// Telemetry defaults to logging through Logger.
	Telemetry telemetry.Telemetry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Dispatcher delivers Future callbacks. New creates one when nil and
	// Client.Close stops it.
	Dispatcher *Dispatcher
}

// ErrInvalidConfig is returned by New for an unusable Config.
var ErrInvalidConfig = errors.New("nativeauth: invalid config")

func (cfg Config) withDefaults() (Config, error) {
	if cfg.ClientID == "" {
		return cfg, fmt.Errorf("%w: client id is required", ErrInvalidConfig)
	}
	if cfg.Authority == "" {
		return cfg, fmt.Errorf("%w: authority is required", ErrInvalidConfig)
	}

	for _, t := range cfg.ChallengeTypes {
		if t != ChallengeTypeOOB && t != ChallengeTypePassword {
			return cfg, fmt.Errorf("%w: unsupported challenge type %q", ErrInvalidConfig, t)
		}
	}

	switch {
	case cfg.RetryCount == 0:
		cfg.RetryCount = DefaultRetryCount
	case cfg.RetryCount < 0:
		cfg.RetryCount = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.ExpirationBuffer <= 0 {
		cfg.ExpirationBuffer = DefaultExpirationBuffer
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = DefaultPollMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		limit := httpx.OutboundLimit
		if cfg.OutboundLimit != nil {
			limit = *cfg.OutboundLimit
		}
		cfg.HTTPClient = &http.Client{
			Timeout:   DefaultHTTPTimeout,
			Transport: slogx.NewTransport(httpx.NewLimitTransport(http.DefaultTransport, limit), cfg.Logger),
		}
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.NewLogger(cfg.Logger)
	}
	return cfg, nil
}

func (cfg Config) domainChallengeTypes() []domain.ChallengeType {
	out := make([]domain.ChallengeType, 0, len(cfg.ChallengeTypes))
	for _, t := range cfg.ChallengeTypes {
		out = append(out, domain.ChallengeType(t))
	}
	return out
}
