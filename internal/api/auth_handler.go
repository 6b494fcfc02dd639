package api

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mailmind/backend/internal/auth"
	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/session"
	"github.com/mailmind/backend/internal/store"
)

// stateCookieName carries the OAuth CSRF state between the consent redirect
// and the callback.
const stateCookieName = "mailmind_oauth_state"

const stateCookieTTL = 10 * time.Minute

// AuthHandler drives the OAuth login flow and the session endpoints. A
// successful callback both creates a server-side session and hands the
// frontend a bearer token, so either credential path works afterwards.
type AuthHandler struct {
	flow        *auth.OAuthFlow
	identities  store.Store
	sessions    session.Store
	jwtSecret   string
	frontendURL string
	sessionTTL  time.Duration
	secure      bool
}

func NewAuthHandler(flow *auth.OAuthFlow, identities store.Store, sessions session.Store, jwtSecret, frontendURL string, sessionTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		flow:        flow,
		identities:  identities,
		sessions:    sessions,
		jwtSecret:   jwtSecret,
		frontendURL: frontendURL,
		sessionTTL:  sessionTTL,
		secure:      secure,
	}
}

// Login redirects to the provider's consent screen with a fresh state value.
func (h *AuthHandler) Login(kind models.ProviderKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()

		consentURL, err := h.flow.AuthCodeURL(kind, state)
		if err != nil {
			log.Printf("AuthHandler: Failed to build consent URL for %s: %v", kind, err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			Expires:  time.Now().Add(stateCookieTTL),
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, consentURL, http.StatusTemporaryRedirect)
	}
}

// Callback finishes the flow: it validates the state, exchanges the code,
// upserts the identity, opens a session and redirects back to the frontend
// with a bearer token in the fragment query.
func (h *AuthHandler) Callback(kind models.ProviderKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.validState(r) {
			log.Printf("AuthHandler: %s callback with missing or mismatched state", kind)
			h.redirectToLogin(w, r)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			log.Printf("AuthHandler: %s callback without code: %s", kind, r.URL.Query().Get("error"))
			h.redirectToLogin(w, r)
			return
		}

		login, err := h.flow.Exchange(r.Context(), kind, code)
		if err != nil {
			log.Printf("AuthHandler: %s code exchange failed: %v", kind, err)
			h.redirectToLogin(w, r)
			return
		}

		identity, err := h.identities.UpsertFromProviderLogin(r.Context(), login)
		if err != nil {
			log.Printf("AuthHandler: Failed to upsert identity for %s: %v", login.Email, err)
			h.redirectToLogin(w, r)
			return
		}

		sess := session.New(identity.ID, h.sessionTTL)
		if err := h.sessions.Create(r.Context(), sess); err != nil {
			log.Printf("AuthHandler: Failed to create session for %s: %v", identity.ID, err)
			h.redirectToLogin(w, r)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    sess.ID,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
		h.clearStateCookie(w)

		token, err := auth.IssueToken(identity, h.jwtSecret, time.Now())
		if err != nil {
			log.Printf("AuthHandler: Failed to issue token for %s: %v", identity.ID, err)
			h.redirectToLogin(w, r)
			return
		}

		log.Printf("AuthHandler: %s login for %s", kind, identity.PrimaryEmail)
		http.Redirect(w, r, h.frontendURL+"/auth-callback?token="+url.QueryEscape(token), http.StatusTemporaryRedirect)
	}
}

// Me describes the authenticated identity and which mechanism proved it.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := identityFromContext(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.MeResponse{
		Success: true,
		ID:      authCtx.Identity.ID,
		Name:    authCtx.Identity.DisplayName,
		Email:   authCtx.Identity.PrimaryEmail,
		Method:  string(authCtx.Method),
	})
}

// Logout revokes the server-side session, if any, and expires the cookie.
// Bearer tokens are stateless and simply age out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			log.Printf("AuthHandler: Failed to delete session: %v", err)
			writeError(w, http.StatusInternalServerError, "Logout failed")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) validState(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(stateCookieName)
	return err == nil && cookie.Value == state
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login", http.StatusTemporaryRedirect)
}
