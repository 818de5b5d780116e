// Package deviceauth answers PKeyAuth device authentication challenges.
//
// A challenge arrives in a WWW-Authenticate header:
//
//	PKeyAuth Context="...", Version="1.0", nonce="...", SubmitUrl="...", CertAuthorities="..."
//
// A device without a registered certificate answers with the context and
// version only. A registered device signs an AuthToken JWT with its device
// key and embeds the certificate in the x5c header.
package deviceauth

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Scheme = "PKeyAuth"

var (
	ErrNotPKeyAuth    = errors.New("deviceauth: not a PKeyAuth challenge")
	ErrMissingContext = errors.New("deviceauth: challenge has no Context")
	ErrUnsupportedKey = errors.New("deviceauth: device key must be RSA")
)

// Challenge is a parsed PKeyAuth challenge. Parameter names are matched
// case-insensitively.
type Challenge struct {
	Context         string
	Version         string
	Nonce           string
	SubmitURL       string
	CertAuthorities string
	CertThumbprint  string
}

// ParseChallenge parses a WWW-Authenticate value.
func ParseChallenge(header string) (Challenge, error) {
	header = strings.TrimSpace(header)
	if len(header) < len(Scheme) || !strings.EqualFold(header[:len(Scheme)], Scheme) {
		return Challenge{}, ErrNotPKeyAuth
	}

	params := parseParams(header[len(Scheme):])
	c := Challenge{
		Context:         params["context"],
		Version:         params["version"],
		Nonce:           params["nonce"],
		SubmitURL:       params["submiturl"],
		CertAuthorities: params["certauthorities"],
		CertThumbprint:  params["certthumbprint"],
	}
	if c.Context == "" {
		return Challenge{}, ErrMissingContext
	}
	if c.Version == "" {
		c.Version = "1.0"
	}
	return c, nil
}

// parseParams reads comma separated key="value" pairs. Values may contain
// commas inside quotes.
func parseParams(s string) map[string]string {
	out := map[string]string{}
	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(strings.TrimLeft(s[:eq], ", ")))
		s = strings.TrimSpace(s[eq+1:])

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				value, s = s[1:], ""
			} else {
				value, s = s[1:end+1], s[end+2:]
			}
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				value, s = s, ""
			} else {
				value, s = s[:end], s[end:]
			}
		}
		out[key] = strings.TrimSpace(value)
		s = strings.TrimLeft(s, ", ")
	}
	return out
}

// Identity is a registered device: its certificate and RSA key.
type Identity struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// LoadIdentity parses a PEM certificate and private key pair.
func LoadIdentity(certPEM, keyPEM []byte) (*Identity, error) {
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("deviceauth: load identity: %w", err)
	}
	key, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("deviceauth: parse certificate: %w", err)
	}
	return &Identity{Certificate: cert, Key: key}, nil
}

// Handler answers challenges. With no identity it answers as an
// unregistered device.
type Handler struct {
	identity *Identity
	now      func() time.Time
}

func NewHandler(identity *Identity) *Handler {
	return &Handler{identity: identity, now: time.Now}
}

// Handle returns the Authorization header value for challenge, sent to
// requestURL.
func (h *Handler) Handle(_ context.Context, challenge string, requestURL *url.URL) (string, error) {
	c, err := ParseChallenge(challenge)
	if err != nil {
		return "", err
	}

	if h.identity == nil || !h.accepts(c) {
		return fmt.Sprintf(`%s Context="%s", Version="%s"`, Scheme, c.Context, c.Version), nil
	}

	audience := c.SubmitURL
	if audience == "" && requestURL != nil {
		audience = requestURL.String()
	}
	token, err := h.authToken(c.Nonce, audience)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`%s AuthToken="%s", Context="%s", Version="%s"`, Scheme, token, c.Context, c.Version), nil
}

// accepts reports whether the challenge asks for a certificate this
// device holds. An empty CertAuthorities list accepts any issuer.
func (h *Handler) accepts(c Challenge) bool {
	if c.CertAuthorities == "" {
		return true
	}
	issuer := h.identity.Certificate.Issuer.String()
	for _, ca := range strings.Split(c.CertAuthorities, ";") {
		if strings.EqualFold(strings.TrimSpace(ca), issuer) {
			return true
		}
	}
	return false
}

func (h *Handler) authToken(nonce, audience string) (string, error) {
	claims := jwt.MapClaims{
		"aud":   audience,
		"nonce": nonce,
		"iat":   h.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["x5c"] = []string{base64.StdEncoding.EncodeToString(h.identity.Certificate.Raw)}

	signed, err := token.SignedString(h.identity.Key)
	if err != nil {
		return "", fmt.Errorf("deviceauth: sign auth token: %w", err)
	}
	return signed, nil
}
