package authgate

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the gateway's claims payload. Timestamps are absolute
// epoch milliseconds on the wire; roles keep the insertion order of the
// principal's role set.
type TokenClaims struct {
	Sub   string   `json:"sub"`
	Roles []string `json:"roles,omitempty"`
	Iat   int64    `json:"iat"`
	Exp   int64    `json:"exp"`
}

// Verify interface compliance
var _ jwt.Claims = (*TokenClaims)(nil)

// GetExpirationTime implements jwt.Claims over the millisecond exp claim.
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.Exp == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.Exp)), nil
}

// GetIssuedAt implements jwt.Claims over the millisecond iat claim.
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.Iat == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.Iat)), nil
}

// GetNotBefore implements jwt.Claims; the gateway does not use nbf.
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims; the gateway does not set an issuer.
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject returns the subject claim.
func (c *TokenClaims) GetSubject() (string, error) {
	return c.Sub, nil
}

// GetAudience implements jwt.Claims; the gateway does not set an audience.
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// Subject returns the username the token was issued for.
func (c *TokenClaims) Subject() string {
	return c.Sub
}

// HasRole checks the roles claim for an exact role name.
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ExpiresAt returns the expiry as a time.Time.
func (c *TokenClaims) ExpiresAt() time.Time {
	return time.UnixMilli(c.Exp)
}

// IssuedAt returns the issue instant as a time.Time.
func (c *TokenClaims) IssuedAt() time.Time {
	return time.UnixMilli(c.Iat)
}
