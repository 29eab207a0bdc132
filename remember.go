package authgate

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RememberMe mints and verifies the long-lived signed cookie the web
// chain uses to re-establish a session without a password. The cookie is
// an opaque signed token with its own server-held secret, deliberately
// distinct from the token signing key, and its own expiry window.
type RememberMe struct {
	key      []byte
	validity time.Duration
	cookie   string
	logger   Logger
}

// NewRememberMe builds the remember-me codec. A blank key selects a
// random per-process key: previously issued cookies stop verifying after
// a restart, which is the safe failure direction.
func NewRememberMe(key string, validitySec int, cookieName string, logger Logger) *RememberMe {
	if logger == nil {
		logger = defLogger{}
	}
	if validitySec <= 0 {
		validitySec = DefaultRememberMeValiditySec
	}
	if cookieName == "" {
		cookieName = "remember-me-cookie"
	}

	material := []byte(key)
	if len(material) == 0 {
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			panic("authgate: cannot read crypto/rand for remember-me key: " + err.Error())
		}
		logger.Warn("remember-me key is empty, using a random per-process key; cookies will not survive a restart")
	}

	return &RememberMe{
		key:      material,
		validity: time.Duration(validitySec) * time.Second,
		cookie:   cookieName,
		logger:   logger,
	}
}

// CookieName returns the configured cookie name.
func (r *RememberMe) CookieName() string {
	return r.cookie
}

// Validity returns the configured validity window.
func (r *RememberMe) Validity() time.Duration {
	return r.validity
}

// Mint produces the cookie value for a username, valid from now for the
// configured window. Format: base64url(username):expiryMillis:signature.
func (r *RememberMe) Mint(username string, now time.Time) string {
	exp := now.Add(r.validity).UnixMilli()
	payload := fmt.Sprintf("%s:%d",
		base64.RawURLEncoding.EncodeToString([]byte(username)), exp)
	return payload + ":" + r.sign(payload)
}

// Verify checks a cookie value and returns the username it vouches for.
// Tampered, malformed, and expired values all report ok=false; expiry is
// compared against the supplied now so callers use one clock read.
func (r *RememberMe) Verify(value string, now time.Time) (string, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return "", false
	}

	payload := parts[0] + ":" + parts[1]
	if subtle.ConstantTimeCompare([]byte(r.sign(payload)), []byte(parts[2])) != 1 {
		r.logger.Warn("rejected remember-me cookie with invalid signature")
		return "", false
	}

	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || !now.Before(time.UnixMilli(exp)) {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (r *RememberMe) sign(payload string) string {
	mac := hmac.New(sha256.New, r.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
