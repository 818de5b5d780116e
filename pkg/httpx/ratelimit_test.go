package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFormFieldKeyExtractor(t *testing.T) {
	t.Run("extracts from POST form", func(t *testing.T) {
		form := url.Values{}
		form.Set("username", "bob")

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		require.Equal(t, "bob", httpx.FormFieldKeyExtractor("username")(req))
	})

	t.Run("returns empty for missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Equal(t, "", httpx.FormFieldKeyExtractor("username")(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	handler := httpx.RateLimitMiddleware(config, httpx.FormFieldKeyExtractor("username"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(username string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/?username="+username, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send("alice").Code)
	require.Equal(t, http.StatusOK, send("alice").Code)

	blocked := send("alice")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.NotEmpty(t, blocked.Header().Get("Retry-After"))
	require.Contains(t, blocked.Body.String(), "rate_limit_exceeded")

	// Other keys are tracked separately, and keyless requests pass.
	require.Equal(t, http.StatusOK, send("bob").Code)
	require.Equal(t, http.StatusOK, send("").Code)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "7")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "3")
	t.Setenv("RATELIMIT_TEST_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("TEST", httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Second, Burst: 4})
	require.Equal(t, 7, got.RequestsPerWindow)
	require.Equal(t, 3*time.Second, got.Window)
	require.Equal(t, 4, got.Burst)
}

func TestRateLimitConfigLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, rate.Inf, httpx.RateLimitConfig{}.Limit())
	require.InDelta(t, 2.0, float64(httpx.RateLimitConfig{RequestsPerWindow: 120, Window: time.Minute}.Limit()), 0.0001)
}

func TestLimitTransportHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	// One request per hour with a burst of one: the second request must wait.
	client := &http.Client{Transport: httpx.NewLimitTransport(nil, httpx.RateLimitConfig{
		RequestsPerWindow: 1, Window: time.Hour, Burst: 1,
	})}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
}

func TestScopeFields(t *testing.T) {
	t.Parallel()

	require.Nil(t, httpx.ParseSpaceDelimitedFields("   "))
	require.Equal(t, []string{"openid", "profile"}, httpx.ParseSpaceDelimitedFields(" openid  profile "))
	require.Equal(t, "openid profile", httpx.JoinSpaceDelimited([]string{"openid", " ", "profile"}))
}
