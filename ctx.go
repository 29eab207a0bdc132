package authgate

import (
	"context"
)

var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// Actor is the caller identity the operation-level guards evaluate. It is
// a read-only snapshot placed in the context by the chain that
// authenticated the request.
type Actor struct {
	Username string
	Roles    []string
}

// HasRole checks the actor's role set by exact name.
func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ActorFromPrincipal snapshots a principal into an Actor.
func ActorFromPrincipal(p Principal) *Actor {
	if p == nil {
		return nil
	}
	return &Actor{
		Username: p.Username(),
		Roles:    p.RoleNames(),
	}
}

// WithActor sets the Actor in the given context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor in the context. Guards treat a missing
// actor as failing every predicate.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey).(*Actor)
	if !ok || actor == nil {
		return nil, false
	}
	return actor, true
}
