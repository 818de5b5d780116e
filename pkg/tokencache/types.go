package tokencache

import (
	"slices"
	"time"
)

// Account identifies a signed-in user.
type Account struct {
	HomeAccountID  string `json:"home_account_id"`
	Environment    string `json:"environment,omitempty"`
	Realm          string `json:"realm,omitempty"`
	LocalAccountID string `json:"local_account_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Name           string `json:"name,omitempty"`
}

type AccessToken struct {
	Secret    string    `json:"secret"`
	Scopes    []string  `json:"scopes"`
	ExpiresOn time.Time `json:"expires_on"`
	CachedAt  time.Time `json:"cached_at"`
}

// ExpiresWithin reports whether the token expires before now+buffer.
func (t AccessToken) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(t.ExpiresOn)
}

func (t AccessToken) clone() *AccessToken {
	t.Scopes = slices.Clone(t.Scopes)
	return &t
}

type RefreshToken struct {
	Secret   string    `json:"secret"`
	CachedAt time.Time `json:"cached_at"`
}

type IDToken struct {
	Raw      string    `json:"raw"`
	CachedAt time.Time `json:"cached_at"`
}

// Tokens is everything cached for one account. AccessToken is nil when no
// cached access token covers the requested scopes.
type Tokens struct {
	Account      Account
	AccessToken  *AccessToken
	RefreshToken *RefreshToken
	IDToken      *IDToken
}

// PersistParams is a successful token response. Account, when set, is
// used as is; otherwise it is derived from ClientInfo and IDToken.
type PersistParams struct {
	Account      *Account
	Environment  string
	AccessToken  string
	RefreshToken string
	IDToken      string
	ClientInfo   string
	Scopes       []string
	ExpiresIn    int
}
