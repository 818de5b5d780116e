package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ParseIDToken decodes the claims of an ID token without verifying its
// signature. The token arrives over TLS straight from the token endpoint and
// is only read for display and cache keying, never to make an
// authorization decision.
func ParseIDToken(raw string) (*IDTokenClaims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrMalformed
	}

	claims := &IDTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if claims.Subject == "" && claims.OID == "" {
		return nil, ErrInvalidClaim
	}
	return claims, nil
}

// ClientInfo is the base64url JSON blob returned when client_info=true is
// requested. UID and UTID form the home account id.
type ClientInfo struct {
	UID  string `json:"uid"`
	UTID string `json:"utid"`
}

// HomeAccountID returns "uid.utid".
func (c ClientInfo) HomeAccountID() string {
	return c.UID + "." + c.UTID
}

// DecodeClientInfo parses a client_info value. Padding is optional.
func DecodeClientInfo(raw string) (ClientInfo, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return ClientInfo{}, fmt.Errorf("%w: client_info: %w", ErrMalformed, err)
	}

	var ci ClientInfo
	if err := json.Unmarshal(data, &ci); err != nil {
		return ClientInfo{}, fmt.Errorf("%w: client_info: %w", ErrMalformed, err)
	}
	if ci.UID == "" || ci.UTID == "" {
		return ClientInfo{}, ErrInvalidClaim
	}
	return ci, nil
}

// EncodeClientInfo is the inverse of DecodeClientInfo.
func EncodeClientInfo(ci ClientInfo) string {
	data, _ := json.Marshal(ci)
	return base64.RawURLEncoding.EncodeToString(data)
}
