package authgate

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserService exposes the account operations behind explicit
// authorization guards. Each guard is ordinary code that runs at the top
// of the operation (pre-condition) or over its result (post-condition),
// so the fail-closed behavior is auditable in one place. Every predicate
// fails when no actor is present in the context.
type UserService struct {
	store  AccountStore
	logger Logger
}

// NewUserService wraps an AccountStore with operation-level guards.
func NewUserService(store AccountStore) *UserService {
	return &UserService{
		store:  store,
		logger: defLogger{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// ListAll returns every principal. Pre-condition: caller holds ADMIN.
func (s *UserService) ListAll(ctx context.Context) ([]*User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.HasRole(RoleAdmin) {
		return nil, ErrAccessDenied
	}
	return s.store.ListUsers(ctx)
}

// GetByUsername returns a principal by username. Pre-condition: caller
// holds ADMIN or is asking about their own record.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrAccessDenied
	}
	if !actor.HasRole(RoleAdmin) && actor.Username != username {
		return nil, ErrAccessDenied
	}
	return s.store.GetByUsername(ctx, username)
}

// Update persists changes to a principal. Pre-condition: the caller's
// username equals the username embedded in the record; the mutation never
// runs when the predicate fails.
func (s *UserService) Update(ctx context.Context, user *User) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || user == nil || actor.Username != user.Username {
		return ErrAccessDenied
	}
	return s.store.UpdateUser(ctx, user)
}

// FindByID looks a principal up by surrogate id. The lookup itself is
// unconditional; the result is filtered afterwards so a caller probing
// foreign ids receives a denial instead of the fetched record. A missing
// record is also a denial, which keeps the response shape identical for
// absent and foreign ids.
func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrAccessDenied
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	if user == nil || user.Username != actor.Username {
		s.logger.Warn("post-operation guard denied id lookup by %q", actor.Username)
		return nil, ErrAccessDenied
	}
	return user, nil
}
