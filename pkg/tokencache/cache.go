package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/pkg/jwtx"
)

// Cache reads and writes the records of one client id.
type Cache struct {
	store    Store
	clientID string
	now      func() time.Time

	// Serializes read-modify-write sequences. Reads do not take it.
	mu sync.Mutex
}

func New(store Store, clientID string) *Cache {
	return &Cache{store: store, clientID: clientID, now: time.Now}
}

func (c *Cache) accountKey(home string) string { return "account:" + c.clientID + ":" + home }
func (c *Cache) accessPrefix(home string) string {
	return "at:" + c.clientID + ":" + home + ":"
}
func (c *Cache) refreshKey(home string) string { return "rt:" + c.clientID + ":" + home }
func (c *Cache) idTokenKey(home string) string { return "idt:" + c.clientID + ":" + home }

// scopeSet drops OIDC scopes and returns the rest sorted and deduplicated.
func scopeSet(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || domain.IsOIDCScope(s) {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func scopeKey(scopes []string) string { return strings.Join(scopeSet(scopes), " ") }

func (c *Cache) getJSON(ctx context.Context, key string, v any) error {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("tokencache: decode %s: %w", key, err)
	}
	return nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data, ttl)
}

// AllAccounts returns every cached account, ordered by home account id.
func (c *Cache) AllAccounts(ctx context.Context) ([]Account, error) {
	keys, err := c.store.Keys(ctx, "account:"+c.clientID+":")
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)

	accounts := make([]Account, 0, len(keys))
	for _, key := range keys {
		var a Account
		if err := c.getJSON(ctx, key, &a); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// AccessToken returns a cached access token whose scopes cover scopes, or
// ErrNotFound. Expiry is the caller's decision.
func (c *Cache) AccessToken(ctx context.Context, account Account, scopes []string) (*AccessToken, error) {
	prefix := c.accessPrefix(account.HomeAccountID)
	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	want := scopeSet(scopes)
	for _, key := range keys {
		have := strings.Fields(strings.TrimPrefix(key, prefix))
		if !containsAll(have, want) {
			continue
		}
		var at AccessToken
		if err := c.getJSON(ctx, key, &at); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		return at.clone(), nil
	}
	return nil, ErrNotFound
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func (c *Cache) RefreshToken(ctx context.Context, account Account) (*RefreshToken, error) {
	var rt RefreshToken
	if err := c.getJSON(ctx, c.refreshKey(account.HomeAccountID), &rt); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (c *Cache) IDToken(ctx context.Context, account Account) (*IDToken, error) {
	var idt IDToken
	if err := c.getJSON(ctx, c.idTokenKey(account.HomeAccountID), &idt); err != nil {
		return nil, err
	}
	return &idt, nil
}

// Tokens gathers what is cached for account. Only a missing refresh token
// and ID token together count as ErrNotFound.
func (c *Cache) Tokens(ctx context.Context, account Account, scopes []string) (*Tokens, error) {
	out := &Tokens{Account: account}

	at, err := c.AccessToken(ctx, account, scopes)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	out.AccessToken = at

	rt, err := c.RefreshToken(ctx, account)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	out.RefreshToken = rt

	idt, err := c.IDToken(ctx, account)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	out.IDToken = idt

	if out.RefreshToken == nil && out.IDToken == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

// Persist stores a token response and returns the account it belongs to.
// Access tokens whose scopes overlap the new ones are replaced.
func (c *Cache) Persist(ctx context.Context, p PersistParams) (Account, error) {
	var account Account
	if p.Account != nil {
		account = *p.Account
	} else {
		derived, err := DeriveAccount(p.ClientInfo, p.IDToken)
		if err != nil {
			return Account{}, err
		}
		account = derived
		account.Environment = p.Environment
	}
	if account.HomeAccountID == "" {
		return Account{}, ErrNoAccount
	}
	if err := c.checkAudience(p.IDToken); err != nil {
		return Account{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	home := account.HomeAccountID

	if err := c.setJSON(ctx, c.accountKey(home), account, 0); err != nil {
		return Account{}, fmt.Errorf("tokencache: persist account: %w", err)
	}

	if p.AccessToken != "" {
		if err := c.removeOverlapping(ctx, home, p.Scopes); err != nil {
			return Account{}, err
		}
		at := AccessToken{
			Secret:    p.AccessToken,
			Scopes:    slices.Clone(p.Scopes),
			ExpiresOn: now.Add(time.Duration(p.ExpiresIn) * time.Second),
			CachedAt:  now,
		}
		ttl := time.Duration(p.ExpiresIn) * time.Second
		if err := c.setJSON(ctx, c.accessPrefix(home)+scopeKey(p.Scopes), at, ttl); err != nil {
			return Account{}, fmt.Errorf("tokencache: persist access token: %w", err)
		}
	}

	if p.RefreshToken != "" {
		if err := c.setJSON(ctx, c.refreshKey(home), RefreshToken{Secret: p.RefreshToken, CachedAt: now}, 0); err != nil {
			return Account{}, fmt.Errorf("tokencache: persist refresh token: %w", err)
		}
	}

	if p.IDToken != "" {
		if err := c.setJSON(ctx, c.idTokenKey(home), IDToken{Raw: p.IDToken, CachedAt: now}, 0); err != nil {
			return Account{}, fmt.Errorf("tokencache: persist id token: %w", err)
		}
	}

	return account, nil
}

func (c *Cache) removeOverlapping(ctx context.Context, home string, scopes []string) error {
	prefix := c.accessPrefix(home)
	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		return err
	}

	next := scopeSet(scopes)
	for _, key := range keys {
		have := strings.Fields(strings.TrimPrefix(key, prefix))
		overlaps := len(next) == 0 && len(have) == 0
		for _, s := range have {
			if slices.Contains(next, s) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// RemoveAccount deletes the account and every token cached for it.
func (c *Cache) RemoveAccount(ctx context.Context, account Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	home := account.HomeAccountID
	keys, err := c.store.Keys(ctx, c.accessPrefix(home))
	if err != nil {
		return err
	}
	keys = append(keys, c.refreshKey(home), c.idTokenKey(home), c.accountKey(home))

	var errs []error
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkAudience refuses an ID token addressed to another client. Tokens
// without an aud claim pass.
func (c *Cache) checkAudience(idToken string) error {
	if idToken == "" {
		return nil
	}
	claims, err := jwtx.ParseIDToken(idToken)
	if err != nil || len(claims.Audience) == 0 {
		return nil
	}
	if err := claims.ValidateAudience(c.clientID); err != nil {
		return fmt.Errorf("tokencache: persist id token: %w", err)
	}
	return nil
}

// DeriveAccount builds the account from client_info, falling back to the
// ID token's oid (or sub) and tid.
func DeriveAccount(clientInfo, idToken string) (Account, error) {
	var account Account

	var claims *jwtx.IDTokenClaims
	if idToken != "" {
		parsed, err := jwtx.ParseIDToken(idToken)
		if err == nil {
			claims = parsed
			account.LocalAccountID = claims.LocalAccountID()
			account.Realm = claims.TID
			account.Username = claims.Username()
			account.Name = claims.Name
		}
	}

	if clientInfo != "" {
		if ci, err := jwtx.DecodeClientInfo(clientInfo); err == nil && ci.UID != "" {
			account.HomeAccountID = ci.HomeAccountID()
		}
	}

	if account.HomeAccountID == "" && claims != nil {
		id := claims.LocalAccountID()
		if claims.TID != "" {
			id += "." + claims.TID
		}
		account.HomeAccountID = id
	}

	if account.HomeAccountID == "" {
		return Account{}, ErrNoAccount
	}
	return account, nil
}
