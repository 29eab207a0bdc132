package authgate

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService issues and validates compact HS512 tokens. Operations are
// pure functions of (claims, current time, resolved key), so a single
// instance is safely shared across request workers with no coordination.
type TokenService struct {
	keys         *KeyManager
	expirationMs int64
	logger       Logger
}

// Verify interface compliance
var (
	_ TokenIssuer   = (*TokenService)(nil)
	_ TokenVerifier = (*TokenService)(nil)
)

// DefaultExpirationMs is the default token lifetime: 24 hours.
const DefaultExpirationMs int64 = 86_400_000

// NewTokenService creates a TokenService backed by the given key manager.
// A non-positive expirationMs selects the 24h default.
func NewTokenService(keys *KeyManager, expirationMs int64, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if expirationMs <= 0 {
		expirationMs = DefaultExpirationMs
	}
	return &TokenService{
		keys:         keys,
		expirationMs: expirationMs,
		logger:       logger,
	}
}

// Generate mints a token for the principal: sub is the username, roles
// keep the insertion order of the principal's role set, iat/exp are epoch
// milliseconds. Key resolution is lazy and memoized in the KeyManager.
func (ts *TokenService) Generate(principal Principal) (string, error) {
	key, err := ts.keys.Resolve()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &TokenClaims{
		Sub:   principal.Username(),
		Roles: principal.RoleNames(),
		Iat:   now.UnixMilli(),
		Exp:   now.UnixMilli() + ts.expirationMs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(key.Bytes)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}
	return signed, nil
}

// Validate reports whether the token is valid for the given principal.
// It fails closed: subject mismatch, expiry at or before now, and any
// parse or signature failure all report false. Expiry is compared against
// a single wall-clock read taken inside this call.
func (ts *TokenService) Validate(token string, principal Principal) bool {
	claims, err := ts.Parse(token)
	if err != nil {
		if IsWeakKey(err) {
			ts.logger.Error("token validation unavailable: %s", err)
		} else {
			ts.logger.Warn("rejected invalid token: %s", err)
		}
		return false
	}

	if principal == nil || claims.Sub != principal.Username() {
		return false
	}

	now := time.Now()
	return now.Before(claims.ExpiresAt())
}

// Parse decodes the token and verifies its signature under the current
// process key without evaluating expiry. Failures are classified as
// ErrTokenMalformed or ErrTokenSignature; raw token contents are never
// logged.
func (ts *TokenService) Parse(token string) (*TokenClaims, error) {
	key, err := ts.keys.Resolve()
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignature
		}
		return key.Bytes, nil
	},
		jwt.WithValidMethods([]string{SigningAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenSignature
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ExtractSubject returns the sub claim of a verified token.
func (ts *TokenService) ExtractSubject(token string) (string, error) {
	return ExtractClaim(ts, token, (*TokenClaims).Subject)
}

// ExtractClaim projects a single claim out of a verified token. The
// projector only runs when the token parses and its signature verifies
// under the current key.
func ExtractClaim[T any](ts *TokenService, token string, projector func(*TokenClaims) T) (T, error) {
	var zero T
	claims, err := ts.Parse(token)
	if err != nil {
		return zero, err
	}
	return projector(claims), nil
}
