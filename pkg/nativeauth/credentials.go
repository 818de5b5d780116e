package nativeauth

import (
	"context"
	"errors"
	"slices"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/jwtx"
	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
)

const msgNoRefreshToken = "error retrieving refresh token from cache"

// UserAccount is a signed-in account. Obtain one from SignInCompleted or
// Client.CurrentAccount.
type UserAccount struct {
	Username      string
	Name          string
	HomeAccountID string
	// IDToken is the raw ID token. Its signature is not verified.
	IDToken string
	// Claims are the decoded ID token claims, nil when it could not be read.
	Claims *jwtx.IDTokenClaims

	account tokencache.Account
	client  *Client
}

func (c *Client) userAccount(account tokencache.Account, idToken string) *UserAccount {
	ua := &UserAccount{
		Username:      account.Username,
		Name:          account.Name,
		HomeAccountID: account.HomeAccountID,
		IDToken:       idToken,
		account:       account,
		client:        c,
	}
	if claims, err := jwtx.ParseIDToken(idToken); err == nil {
		ua.Claims = claims
		if ua.Username == "" {
			ua.Username = claims.Username()
		}
		if ua.Name == "" {
			ua.Name = claims.Name
		}
	}
	return ua
}

// CurrentAccount returns the cached account, or nil when nobody is signed
// in. Cache failures are logged and reported as nobody signed in; the only
// error is ctx's.
func (c *Client) CurrentAccount(ctx context.Context) (*UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := slogx.FromContext(slogx.WithContext(ctx, c.log))

	accounts, err := c.cache.AllAccounts(ctx)
	if err != nil {
		log.Warn("failed to read accounts from cache", "error", err)
		return nil, nil
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	if len(accounts) > 1 {
		log.Warn("more than one account cached, using the first", "count", len(accounts))
	}

	account := accounts[0]
	idToken, err := c.cache.IDToken(ctx, account)
	if err != nil {
		if !errors.Is(err, tokencache.ErrNotFound) {
			log.Warn("failed to read id token from cache", "error", err)
		}
		return nil, nil
	}
	return c.userAccount(account, idToken.Raw), nil
}

// AccessToken returns a cached access token covering scopes, refreshing
// it when it is missing, about to expire or forceRefresh is set. An
// account without a cached refresh token fails without contacting the
// service, even if a live access token is cached. Scopes are sent on a
// refresh as given; nil requests offline_access openid profile.
func (a *UserAccount) AccessToken(ctx context.Context, scopes []string, forceRefresh bool) (*TokenResult, error) {
	c := a.client
	log := slogx.FromContext(slogx.WithContext(ctx, c.log))

	tokens, err := c.cache.Tokens(ctx, a.account, scopes)
	if err != nil && !errors.Is(err, tokencache.ErrNotFound) {
		log.Warn("failed to read tokens from cache", "error", err)
	}
	if tokens == nil {
		tokens = &tokencache.Tokens{}
	}

	if tokens.RefreshToken == nil {
		return nil, &RetrieveAccessTokenError{
			Type:      RetrieveAccessTokenGeneralError,
			errorInfo: errorInfo{Message: msgNoRefreshToken, Err: tokencache.ErrNotFound},
		}
	}

	if at := tokens.AccessToken; !forceRefresh && at != nil && !at.ExpiresWithin(c.now(), c.cfg.ExpirationBuffer) {
		return &TokenResult{AccessToken: at.Secret, Scopes: slices.Clone(at.Scopes), ExpiresOn: at.ExpiresOn}, nil
	}
	return a.refresh(ctx, scopes, tokens.RefreshToken.Secret)
}

// AccessTokenAsync is AccessToken on a background goroutine.
func (a *UserAccount) AccessTokenAsync(ctx context.Context, scopes []string, forceRefresh bool) *Future[*TokenResult] {
	return async(a.client.dispatcher, func() (*TokenResult, error) {
		return a.AccessToken(ctx, scopes, forceRefresh)
	})
}

func (a *UserAccount) refresh(ctx context.Context, scopes []string, refreshToken string) (res *TokenResult, err error) {
	c := a.client
	ctx, op := c.begin(ctx, telemetry.APIRefreshToken, "")
	defer func() { op.end(err) }()
	op.event.SetAccount(a.HomeAccountID)

	requested := domain.RefreshScopes
	if len(scopes) > 0 {
		requested = slices.Clone(scopes)
	}

	req, err := c.builder.Token(op.correlationID, wire.TokenParams{
		GrantType:    domain.GrantTypeRefreshToken,
		Scopes:       requested,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, &RetrieveAccessTokenError{Type: RetrieveAccessTokenGeneralError, errorInfo: infoFromCause(err, op.correlationID)}
	}

	body, err := wire.Send[wire.TokenResponse](ctx, c.exec, req, c.policy(), errcode.Token)
	switch out := validator.Refresh(body, err, op.correlationID).(type) {
	case validator.TokenIssued:
		if _, err := c.persist(ctx, out, requested, &a.account); err != nil {
			return nil, &RetrieveAccessTokenError{Type: RetrieveAccessTokenGeneralError, errorInfo: infoFromCause(err, op.correlationID)}
		}
		granted := out.Scopes
		if len(granted) == 0 {
			granted = slices.Clone(requested)
		}
		return &TokenResult{
			AccessToken: out.AccessToken,
			Scopes:      granted,
			ExpiresOn:   c.now().Add(seconds(out.ExpiresIn)),
		}, nil
	case validator.Failed:
		t := RetrieveAccessTokenGeneralError
		if out.Err.Kind == validator.KindExpiredToken || out.Err.Kind == validator.KindInvalidGrant {
			t = RetrieveAccessTokenRefreshTokenExpired
		}
		return nil, &RetrieveAccessTokenError{Type: t, errorInfo: infoFromDomain(out.Err)}
	case validator.InvalidCode:
		return nil, &RetrieveAccessTokenError{Type: RetrieveAccessTokenGeneralError, errorInfo: infoFromDomain(out.Err)}
	case validator.Unexpected:
		return nil, &RetrieveAccessTokenError{Type: RetrieveAccessTokenGeneralError, errorInfo: infoFromCause(unexpectedCause(out), op.correlationID)}
	default:
		return nil, &RetrieveAccessTokenError{
			Type:      RetrieveAccessTokenGeneralError,
			errorInfo: errorInfo{Message: "unexpected response to refresh", CorrelationID: op.correlationID},
		}
	}
}

// SignOut removes the account and its tokens from the cache. The service
// is not contacted.
func (a *UserAccount) SignOut(ctx context.Context) (err error) {
	c := a.client
	ctx, op := c.begin(ctx, telemetry.APISignOut, "")
	defer func() { op.end(err) }()
	op.event.SetAccount(a.HomeAccountID)

	return c.cache.RemoveAccount(ctx, a.account)
}
