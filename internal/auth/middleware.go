package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// only THIS package can create a key of type contextKey, so no other
// package can read or shadow the user stored under it.
type contextKey string

const userKey contextKey = "user"

// CurrentUser reports who is signed in to this process right now, or nil.
//
// The bridge serves exactly one local user, so identity is not carried by
// the request: it is whatever the session state machine says it is.
type CurrentUser interface {
	CurrentUser() *model.User
}

// RequireUser is a middleware that enforces an authenticated session.
//
// It asks the session state machine for the current user and stores a
// copy in the request context. With nobody signed in it returns 401 and
// stops the chain.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireUser(current CurrentUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := current.CurrentUser()
			if user == nil {
				reject(w, http.StatusUnauthorized, apperror.Unauthorized("Authentication required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *user)))
		})
	}
}

// RequireAdmin is RequireUser plus a role check: non-admins get 403.
func RequireAdmin(current CurrentUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireUser(current)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if !user.IsAdmin() {
				reject(w, http.StatusForbidden, apperror.Forbidden("Administrator access required"))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (zero, false) outside RequireUser/RequireAdmin.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok && user.ID != ""
}

func reject(w http.ResponseWriter, status int, err *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]apperror.Payload{"error": err.Payload()})
}
