package authgate

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the gateway components use.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is an authenticated identity as seen by the gateway.
type Principal interface {
	Username() string
	RoleNames() []string
	IsEnabled() bool
}

// TokenIssuer mints compact signed tokens for a principal.
type TokenIssuer interface {
	Generate(principal Principal) (string, error)
}

// TokenVerifier checks a compact token against a principal. It fails
// closed: routine invalidity (expiry, subject mismatch) reports false
// rather than an error.
type TokenVerifier interface {
	Validate(token string, principal Principal) bool
}

// Authenticator exchanges credentials for a signed token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// PrincipalResolver looks up a principal by username. Both the bearer
// filter and the basic-auth filter resolve through this so chains never
// touch the persistence layer directly.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, username string) (Principal, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHGATE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
