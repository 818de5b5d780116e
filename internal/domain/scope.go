package domain

import "slices"

// OIDCScopes are added to every sign-in so the service returns an ID token
// and a refresh token.
var OIDCScopes = []string{"openid", "profile", "offline_access"}

// RefreshScopes are used when a refresh is requested without scopes.
var RefreshScopes = []string{"offline_access", "openid", "profile"}

// JoinScopes returns the caller's scopes followed by OIDCScopes, keeping
// first occurrence order and dropping duplicates and blanks.
func JoinScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes)+len(OIDCScopes))
	for _, s := range slices.Concat(scopes, OIDCScopes) {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// IsOIDCScope reports whether s is one of the reserved OpenID scopes. The
// service never echoes these back on an access token.
func IsOIDCScope(s string) bool {
	return slices.Contains(OIDCScopes, s)
}
