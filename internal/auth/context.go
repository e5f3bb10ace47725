// Package auth provides the acting-identity context helpers.
//
// The engine does not authenticate anyone. A trusted upstream collaborator
// asserts who is calling and the middleware stores that identity here, so
// both middleware and handler packages can read it without import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// actorContextKey is the key used to store the acting identity in context.
	actorContextKey contextKey = "actor"
)

// Actor is the identity a request is made on behalf of.
type Actor struct {
	AccountID uuid.UUID
	Tier      string
}

// IsAdmin returns true if the actor holds the super-tier.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Tier == domain.SuperTierID
}

// CanRead returns true if the actor may read the given account's data.
// Accounts may read their own data; admins may read anyone's.
func (a *Actor) CanRead(accountID uuid.UUID) bool {
	if a == nil {
		return false
	}
	return a.AccountID == accountID || a.IsAdmin()
}

// GetActor retrieves the acting identity from the context.
//
// Returns nil if the request carried no identity.
func GetActor(ctx context.Context) *Actor {
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// GetActorFromRequest is a convenience wrapper around GetActor.
func GetActorFromRequest(r *http.Request) *Actor {
	return GetActor(r.Context())
}

// SetActor stores the acting identity in the context.
func SetActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}
