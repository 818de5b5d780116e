package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Limit converts the window based configuration to a token bucket rate.
func (c RateLimitConfig) Limit() rate.Limit {
	if c.RequestsPerWindow <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// OutboundLimit is the default pacing for requests sent to the identity
// service. Override with RATELIMIT_OUTBOUND_REQUESTS,
// RATELIMIT_OUTBOUND_WINDOW_SEC and RATELIMIT_OUTBOUND_BURST.
var OutboundLimit = RateLimitConfig{
	RequestsPerWindow: 20,
	Window:            time.Second,
	Burst:             20,
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST over
// defaultConfig. Invalid or non-positive values are ignored.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// LimitTransport delays outbound requests so a client never exceeds the
// configured rate. Waiting honours the request context.
type LimitTransport struct {
	Base    http.RoundTripper
	limiter *rate.Limiter
}

// NewLimitTransport wraps base, falling back to http.DefaultTransport.
func NewLimitTransport(base http.RoundTripper, config RateLimitConfig) *LimitTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LimitTransport{
		Base:    base,
		limiter: rate.NewLimiter(config.Limit(), max(config.Burst, 1)),
	}
}

func (t *LimitTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.Base.RoundTrip(r)
}

// KeyExtractor returns the key a request is rate limited under.
type KeyExtractor func(*http.Request) string

// FormFieldKeyExtractor extracts a key from a form field, such as the
// username of a sign-in attempt.
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err == nil {
			return r.FormValue(fieldName)
		}
		return ""
	}
}

// RateLimitMiddleware rejects requests over the per-key limit with an
// OAuth2 style 429. Requests without a key pass through.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) func(http.Handler) http.Handler {
	var limiters sync.Map // map[string]*rate.Limiter

	limiterFor := func(key string) *rate.Limiter {
		if l, ok := limiters.Load(key); ok {
			return l.(*rate.Limiter)
		}
		l, _ := limiters.LoadOrStore(key, rate.NewLimiter(config.Limit(), config.Burst))
		return l.(*rate.Limiter)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := limiterFor(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteOAuthError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many requests. Please try again later.", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
