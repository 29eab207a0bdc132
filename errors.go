package authgate

import (
	"github.com/goliatone/go-errors"
)

// Text codes surfaced on gateway errors so HTTP handlers and clients can
// branch without string matching on messages.
const (
	TextCodeWeakKey        = "WEAK_KEY"
	TextCodeTokenExpired   = "TOKEN_EXPIRED"
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	TextCodeTokenSignature = "TOKEN_INVALID_SIGNATURE"
	TextCodeBadCredentials = "BAD_CREDENTIALS"
	TextCodeAccessDenied   = "ACCESS_DENIED"
)

// ErrWeakKey is fatal: a configured signing secret below the HS512 minimum
// must prevent any token from being minted or accepted.
var ErrWeakKey = errors.New(
	"signing secret must be at least 64 bytes for HS512",
	errors.CategoryInternal,
).WithTextCode(TextCodeWeakKey).WithCode(errors.CodeInternal)

// ErrTokenExpired marks a token whose exp claim is in the past.
var ErrTokenExpired = errors.New(
	"authentication token expired",
	errors.CategoryAuth,
).WithTextCode(TextCodeTokenExpired).WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed marks a token that cannot be parsed into claims.
var ErrTokenMalformed = errors.New(
	"authentication token malformed",
	errors.CategoryAuth,
).WithTextCode(TextCodeTokenMalformed).WithCode(errors.CodeUnauthorized)

// ErrTokenSignature marks a token whose signature does not verify under
// the current process key.
var ErrTokenSignature = errors.New(
	"authentication token signature invalid",
	errors.CategoryAuth,
).WithTextCode(TextCodeTokenSignature).WithCode(errors.CodeUnauthorized)

// ErrBadCredentials is deliberately generic; it covers unknown usernames,
// wrong passwords, and disabled accounts so responses carry no
// enumeration signal.
var ErrBadCredentials = errors.New(
	"invalid credentials",
	errors.CategoryAuth,
).WithTextCode(TextCodeBadCredentials).WithCode(errors.CodeUnauthorized)

// ErrAccessDenied is returned by every failed authorization predicate,
// path rule, and the implicit default chain.
var ErrAccessDenied = errors.New(
	"access denied",
	errors.CategoryAuthz,
).WithTextCode(TextCodeAccessDenied).WithCode(errors.CodeForbidden)

// IsBadCredentials reports whether err is a credential failure.
func IsBadCredentials(err error) bool {
	return errors.Is(err, ErrBadCredentials)
}

// IsAccessDenied reports whether err is an authorization denial.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsWeakKey reports whether err is the fatal weak-key condition.
func IsWeakKey(err error) bool {
	return errors.Is(err, ErrWeakKey)
}

// IsTokenInvalid reports whether err is any routine token failure
// (expired, malformed, or bad signature). Callers treat all three as
// unauthenticated.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenSignature)
}
