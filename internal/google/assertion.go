package google

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionLifetime is the validity window of a signed assertion in seconds.
// Google rejects assertions that live longer than one hour.
const AssertionLifetime int64 = 3600

// TokenClaims is the claim set of a JWT-bearer assertion.
type TokenClaims struct {
	Issuer    string
	Scope     string
	Audience  string
	IssuedAt  int64
	ExpiresAt int64
}

// NewTokenClaims anchors a fresh claim set at now (epoch seconds).
func NewTokenClaims(issuer, scope, audience string, now int64) TokenClaims {
	return TokenClaims{
		Issuer:    issuer,
		Scope:     scope,
		Audience:  audience,
		IssuedAt:  now,
		ExpiresAt: now + AssertionLifetime,
	}
}

// mapClaims keeps aud a plain string; jwt.RegisteredClaims would encode it
// as a one-element array.
func (c TokenClaims) mapClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   c.Issuer,
		"scope": c.Scope,
		"aud":   c.Audience,
		"iat":   c.IssuedAt,
		"exp":   c.ExpiresAt,
	}
}

// Signer produces RS256-signed assertions for one service account.
type Signer struct {
	issuer   string
	scope    string
	audience string
	keyID    string
	key      *rsa.PrivateKey
}

// NewSigner parses the credential's private key once and returns a Signer for
// the given scope. The audience is the credential's token endpoint.
func NewSigner(cred *ServiceCredential, scope string) (*Signer, error) {
	if cred == nil {
		return nil, fmt.Errorf("%w: credential cannot be nil", ErrSigning)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %w", ErrSigning, err)
	}

	if scope == "" {
		scope = CalendarReadonlyScope
	}

	return &Signer{
		issuer:   cred.ClientEmail,
		scope:    scope,
		audience: cred.TokenURL(),
		keyID:    cred.PrivateKeyID,
		key:      key,
	}, nil
}

// Claims returns the claim set Sign would use at now.
func (s *Signer) Claims(now int64) TokenClaims {
	return NewTokenClaims(s.issuer, s.scope, s.audience, now)
}

// Sign returns a compact JWS over a one-hour claim set anchored at now.
func (s *Signer) Sign(now int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, s.Claims(now).mapClaims())
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return signed, nil
}

// Audience returns the token endpoint the assertions are addressed to.
func (s *Signer) Audience() string {
	return s.audience
}
