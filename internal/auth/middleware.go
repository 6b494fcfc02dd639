package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/session"
)

type contextKey string

// AuthContextKey is the context key under which the resolved AuthContext is
// stored for downstream handlers.
const AuthContextKey contextKey = "auth_context"

// RequireAuth resolves the request's credential evidence through the
// authenticator and rejects the request with 401 before any other component
// runs when neither path proves an identity.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := ExtractEvidence(r)

		authCtx, err := a.Authenticate(r.Context(), ev)
		if err != nil {
			log.Printf("Auth: resolution failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !authCtx.Authenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AuthContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext returns the AuthContext stored by RequireAuth.
func GetAuthContext(ctx context.Context) (models.AuthContext, bool) {
	authCtx, ok := ctx.Value(AuthContextKey).(models.AuthContext)
	return authCtx, ok
}

// ExtractEvidence pulls the bearer token and session cookie out of a request
// without judging either.
func ExtractEvidence(r *http.Request) Evidence {
	var ev Evidence

	// Parse Authorization header: "Bearer <token>" (RFC 7235). The scheme
	// is case-insensitive and strings.Fields tolerates repeated spaces.
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		fields := strings.Fields(authHeader)
		if len(fields) >= 2 && strings.EqualFold(fields[0], "Bearer") {
			ev.BearerToken = strings.TrimSpace(strings.Join(fields[1:], " "))
		}
	}

	if cookie, err := r.Cookie(session.CookieName); err == nil {
		ev.SessionID = cookie.Value
	}

	return ev
}
