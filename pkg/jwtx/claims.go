package jwtx

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// IDTokenClaims are the OpenID Connect claims the client reads from an ID
// token to describe the signed-in account.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	// Object id of the user in the tenant.
	OID string `json:"oid,omitempty"`

	// Tenant id.
	TID string `json:"tid,omitempty"`

	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	Nonce             string `json:"nonce,omitempty"`
}

// LocalAccountID is the tenant scoped user id, preferring oid over sub.
func (c *IDTokenClaims) LocalAccountID() string {
	if c.OID != "" {
		return c.OID
	}
	return c.Subject
}

// Username picks the best human readable login identifier.
func (c *IDTokenClaims) Username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Email
}

// ValidateIssuer checks the issuer matches expected. Empty expected passes.
func (c *IDTokenClaims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience checks the token was issued to clientID.
func (c *IDTokenClaims) ValidateAudience(clientID string) error {
	if clientID == "" || slices.Contains(c.Audience, clientID) {
		return nil
	}
	return ErrAudience
}

// ValidateExpiryWithLeeway checks exp and nbf against now, allowing leeway
// for clock skew.
func (c *IDTokenClaims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
