package middleware

import (
	"context"
	"net/http"

	"github.com/tobyn/chatline/internal/auth"
	"github.com/tobyn/chatline/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the identity RequireLogin stored on the request
// context.
func IdentityFrom(ctx context.Context) (session.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(session.Identity)
	return identity, ok
}

// RequireLogin resolves the session cookie on every request and rejects
// anything without a live session. Resolution happens per request, never
// cached, so a destroyed session locks out the next request immediately.
func RequireLogin(signer *auth.Signer, sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := signer.TokenFromRequest(r)
			if err != nil {
				unauthorized(w)
				return
			}

			identity, ok := sessions.Resolve(token)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"You are not logged in"}`))
}
