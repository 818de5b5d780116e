package nativeauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth/nativeauthtest"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/memory"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_FromCache(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)

	first, err := account.AccessToken(t.Context(), nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, first.AccessToken)
	require.True(t, first.ExpiresOn.After(time.Now()))

	second, err := account.AccessToken(t.Context(), []string{"openid"}, false)
	require.NoError(t, err)
	require.Equal(t, first.AccessToken, second.AccessToken)
	require.Equal(t, 1, h.srv.Requests(nativeauthtest.Token), "only the sign in hit the token endpoint")
}

func TestAccessToken_ForceRefresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)

	cached, err := account.AccessToken(t.Context(), nil, false)
	require.NoError(t, err)

	refreshed, err := account.AccessToken(t.Context(), nil, true)
	require.NoError(t, err)
	require.NotEqual(t, cached.AccessToken, refreshed.AccessToken)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.Token))

	// The refreshed token replaces the cached one.
	again, err := account.AccessToken(t.Context(), nil, false)
	require.NoError(t, err)
	require.Equal(t, refreshed.AccessToken, again.AccessToken)

	var refreshes int
	for _, e := range h.rec.Starts() {
		if e.API == telemetry.APIRefreshToken {
			refreshes++
			require.Equal(t, account.HomeAccountID, e.Account())
		}
	}
	require.Equal(t, 1, refreshes)
}

func TestAccessToken_RefreshesInsideExpirationBuffer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{AccessTokenLifetime: 2 * time.Minute})
	h.addUser(t)
	account := h.signIn(t)

	_, err := account.AccessToken(t.Context(), nil, false)
	require.NoError(t, err)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.Token))
}

func TestAccessToken_WithScopes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)

	res, err := account.AccessToken(t.Context(), []string{"api://contoso/Orders.Read"}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"api://contoso/Orders.Read"}, res.Scopes, "caller scopes are sent as given")
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.Token))

	again, err := account.AccessToken(t.Context(), []string{"api://contoso/Orders.Read"}, false)
	require.NoError(t, err)
	require.Equal(t, res.AccessToken, again.AccessToken)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.Token))
}

func TestAccessToken_RefreshTokenExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)
	h.srv.RevokeRefreshTokens()

	_, err := account.AccessToken(t.Context(), nil, true)
	var tokenErr *nativeauth.RetrieveAccessTokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, nativeauth.RetrieveAccessTokenRefreshTokenExpired, tokenErr.Type)
	require.NotEmpty(t, tokenErr.CorrelationID)
}

// accessOnlyCache holds an account and nothing else.
type accessOnlyCache struct {
	account tokencache.Account
}

func (c *accessOnlyCache) AllAccounts(context.Context) ([]tokencache.Account, error) {
	return []tokencache.Account{c.account}, nil
}

func (c *accessOnlyCache) Tokens(context.Context, tokencache.Account, []string) (*tokencache.Tokens, error) {
	return nil, tokencache.ErrNotFound
}

func (c *accessOnlyCache) IDToken(context.Context, tokencache.Account) (*tokencache.IDToken, error) {
	return &tokencache.IDToken{Raw: "not.a.jwt"}, nil
}

func (c *accessOnlyCache) Persist(context.Context, tokencache.PersistParams) (tokencache.Account, error) {
	return tokencache.Account{}, errors.New("read only")
}

func (c *accessOnlyCache) RemoveAccount(context.Context, tokencache.Account) error { return nil }

func TestAccessToken_NoRefreshToken(t *testing.T) {
	t.Parallel()

	cache := &accessOnlyCache{account: tokencache.Account{HomeAccountID: "uid.utid", Username: testUsername}}
	h := newHarness(t, nativeauthtest.Options{}, func(cfg *nativeauth.Config) {
		cfg.Cache = cache
	})

	account, err := h.client.CurrentAccount(t.Context())
	require.NoError(t, err)
	require.NotNil(t, account)
	require.Equal(t, testUsername, account.Username)
	require.Nil(t, account.Claims)

	_, err = account.AccessToken(t.Context(), nil, false)
	var tokenErr *nativeauth.RetrieveAccessTokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, nativeauth.RetrieveAccessTokenGeneralError, tokenErr.Type)
	require.Equal(t, "error retrieving refresh token from cache", tokenErr.Message)
	require.ErrorIs(t, err, tokencache.ErrNotFound)
	require.Zero(t, h.srv.TotalRequests())
}

func TestAccessToken_CachedAccessTokenWithoutRefreshToken(t *testing.T) {
	t.Parallel()

	const clientID = "rt-missing-client"
	store := memory.New(0)
	h := newHarness(t, nativeauthtest.Options{ClientID: clientID}, func(cfg *nativeauth.Config) {
		cfg.Cache = tokencache.New(store, clientID)
	})
	h.addUser(t)
	account := h.signIn(t)

	require.NoError(t, store.Delete(t.Context(), "rt:"+clientID+":"+account.HomeAccountID))
	before := h.srv.TotalRequests()

	for _, force := range []bool{false, true} {
		res, err := account.AccessToken(t.Context(), nil, force)
		require.Nil(t, res)

		var tokenErr *nativeauth.RetrieveAccessTokenError
		require.ErrorAs(t, err, &tokenErr)
		require.Equal(t, nativeauth.RetrieveAccessTokenGeneralError, tokenErr.Type)
		require.Equal(t, "error retrieving refresh token from cache", tokenErr.Message)
		require.ErrorIs(t, err, tokencache.ErrNotFound)
	}
	require.Equal(t, before, h.srv.TotalRequests(), "the service is not contacted")
}

func TestAccessTokenAsync(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)

	res, err := account.AccessTokenAsync(t.Context(), nil, true).Wait(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
}

func TestCurrentAccount(t *testing.T) {
	t.Parallel()

	t.Run("nobody signed in", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nativeauthtest.Options{})
		account, err := h.client.CurrentAccount(t.Context())
		require.NoError(t, err)
		require.Nil(t, account)
	})

	t.Run("several accounts picks the first", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nativeauthtest.Options{})
		h.addUser(t)
		h.srv.AddUser(nativeauthtest.User{Username: "bob@example.com", Password: testPassword, Name: "Bob"})

		alice := h.signIn(t)
		res, err := h.client.SignIn(t.Context(), nativeauth.SignInParameters{Username: "bob@example.com", Password: testPassword})
		require.NoError(t, err)
		bob := requireAs[*nativeauth.SignInCompleted](t, res).Account

		want := min(alice.HomeAccountID, bob.HomeAccountID)
		for range 3 {
			account, err := h.client.CurrentAccount(t.Context())
			require.NoError(t, err)
			require.Equal(t, want, account.HomeAccountID)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nativeauthtest.Options{})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := h.client.CurrentAccount(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)
	account := h.signIn(t)

	require.NoError(t, account.SignOut(t.Context()))

	current, err := h.client.CurrentAccount(t.Context())
	require.NoError(t, err)
	require.Nil(t, current)

	_, err = account.AccessToken(t.Context(), nil, false)
	var tokenErr *nativeauth.RetrieveAccessTokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, "error retrieving refresh token from cache", tokenErr.Message)
}
