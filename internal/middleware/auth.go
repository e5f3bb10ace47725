// Package middleware contains HTTP middleware for the credit engine.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/auth"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/handler"
)

// =============================================================================
// Identity Headers
// =============================================================================

const (
	// AccountIDHeader carries the acting account, asserted by the trusted
	// upstream identity collaborator.
	AccountIDHeader = "X-Account-ID"

	// AccountTierHeader optionally carries the acting account's tier. When it
	// is absent the tier is read from the account itself.
	AccountTierHeader = "X-Account-Tier"
)

// AccountLookup loads an account by ID.
type AccountLookup interface {
	Account(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
}

// =============================================================================
// Identity Middleware Configuration
// =============================================================================

// IdentityMiddleware resolves the acting identity of API requests.
type IdentityMiddleware struct {
	accounts AccountLookup
	logger   *slog.Logger
}

// NewIdentityMiddleware creates a new IdentityMiddleware instance.
func NewIdentityMiddleware(accounts AccountLookup, logger *slog.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{
		accounts: accounts,
		logger:   logger,
	}
}

// =============================================================================
// WithActor Middleware
// =============================================================================

// WithActor reads the identity headers and stores the actor in the request
// context. Requests without identity headers continue anonymously; requests
// with a malformed or unknown identity are rejected with 401.
//
// The actor can be retrieved in handlers using:
//
//	actor := auth.GetActorFromRequest(r)
func (m *IdentityMiddleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(AccountIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		accountID, err := uuid.Parse(raw)
		if err != nil {
			m.logger.Info("malformed identity header", "value", raw, "path", r.URL.Path)
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		tier := strings.TrimSpace(r.Header.Get(AccountTierHeader))
		if tier == "" {
			acct, err := m.accounts.Account(r.Context(), accountID)
			if err != nil {
				if domain.ErrorCode(err) == domain.ENOTFOUND {
					handler.UnauthorizedResponse(w, r, m.logger)
					return
				}
				handler.ErrorResponse(w, r, m.logger, err)
				return
			}
			tier = acct.Tier
		}

		ctx := auth.SetActor(r.Context(), &auth.Actor{AccountID: accountID, Tier: tier})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// RequireActor / RequireAdmin Middleware
// =============================================================================

// RequireActor requires an identity in the context.
//
// IMPORTANT: This middleware must be used AFTER WithActor in the chain.
func (m *IdentityMiddleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetActorFromRequest(r) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin requires the actor to hold the super-tier.
//
// IMPORTANT: This middleware must be used AFTER WithActor in the chain.
func (m *IdentityMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := auth.GetActorFromRequest(r)
		if actor == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !actor.IsAdmin() {
			m.logger.Warn("admin route denied",
				"account_id", actor.AccountID,
				"tier", actor.Tier,
				"path", r.URL.Path,
			)
			handler.ForbiddenResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(identity.WithActor, identity.RequireAdmin)
//	mux.Handle("POST /api/admin/accounts", stack(openHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// =============================================================================
// Compile-time checks
// =============================================================================

var (
	_ func(http.Handler) http.Handler = (&IdentityMiddleware{}).WithActor
	_ func(http.Handler) http.Handler = (&IdentityMiddleware{}).RequireActor
	_ func(http.Handler) http.Handler = (&IdentityMiddleware{}).RequireAdmin
)
