package authgate

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther authenticates credentials against the account store and mints
// tokens. Every failure mode collapses to ErrBadCredentials so callers
// produce one generic response for unknown usernames, wrong passwords,
// and disabled accounts alike.
type Auther struct {
	store  AccountStore
	tokens *TokenService
	logger Logger
}

// Verify interface compliance
var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns an Auther over the given store and token service.
func NewAuthenticator(store AccountStore, tokens *TokenService) *Auther {
	return &Auther{
		store:  store,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Login verifies the password against the stored hash and returns a
// freshly signed token. The weak-key condition is the one failure that is
// not masked: it must surface so the process stops issuing tokens.
func (a *Auther) Login(ctx context.Context, username, password string) (string, error) {
	user, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.logger.Warn("login rejected for unknown username")
			return "", ErrBadCredentials
		}
		return "", err
	}

	if !user.Enabled {
		a.logger.Warn("login rejected for disabled principal %q", user.Username)
		return "", ErrBadCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if IsBadCredentials(err) {
			a.logger.Warn("login rejected for principal %q", user.Username)
			return "", ErrBadCredentials
		}
		return "", err
	}

	token, err := a.tokens.Generate(NewPrincipal(user))
	if err != nil {
		return "", err
	}
	return token, nil
}

// VerifyPassword checks credentials without minting a token. The basic
// auth filter on the operational chain uses it.
func (a *Auther) VerifyPassword(ctx context.Context, username, password string) (Principal, error) {
	user, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if !user.Enabled {
		return nil, ErrBadCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if IsBadCredentials(err) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	return NewPrincipal(user), nil
}
