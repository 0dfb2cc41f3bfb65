package middleware

import (
	"context"
	"net/http"

	"github.com/lexweave/depoflow/internal/domain/user"
)

type actorCtxKey struct{}

// Actor is the resolved request actor: the stored user record and its firm.
// FirmID is empty for users who have not provisioned or joined a firm yet.
type Actor struct {
	UserID string
	FirmID string
	Role   user.Role
}

// UserResolver maps an authenticated principal to a stored user record,
// creating it on first access.
type UserResolver interface {
	ResolveUser(ctx context.Context, subject, email, name string) (*user.User, error)
}

// ResolveActor returns middleware that upserts the principal's user record
// and stores the resulting Actor in the request context. It must run after
// Auth.
func ResolveActor(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthenticated(w, "no principal")
				return
			}

			u, err := resolver.ResolveUser(r.Context(), p.Subject, p.Email, p.Name)
			if err != nil {
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			actor := Actor{UserID: u.ID, FirmID: u.FirmID, Role: u.Role}
			ctx := context.WithValue(r.Context(), actorCtxKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFirm rejects requests whose actor has no firm association. All
// tenant-scoped routes sit behind it; firm provisioning does not.
func RequireFirm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || actor.FirmID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"user does not belong to a firm"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext returns the resolved actor stored in ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(Actor)
	return a, ok
}

// FirmIDFromContext returns the actor's firm ID, or "" when unresolved.
// All tenant-scoped queries must use this to enforce isolation.
func FirmIDFromContext(ctx context.Context) string {
	a, _ := ctx.Value(actorCtxKey{}).(Actor)
	return a.FirmID
}

// UserIDFromContext returns the actor's user ID, or "" when unresolved.
func UserIDFromContext(ctx context.Context) string {
	a, _ := ctx.Value(actorCtxKey{}).(Actor)
	return a.UserID
}

// WithActor returns ctx with the given actor attached. Used by subscribers
// and tests that act outside an HTTP request.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}
