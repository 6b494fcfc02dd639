package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mailmind/backend/internal/auth"
	"github.com/mailmind/backend/internal/models"
)

// writeJSON encodes payload with the given status. Encoding failures are
// logged but not recoverable once the header is out.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
	}
}

// writeError writes the uniform error payload every endpoint returns.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Message: message})
}

// identityFromContext extracts the authenticated identity stored by the auth
// middleware and writes a 401 when it is absent. Returns (ctx, true) on
// success. Shared across handlers so the unauthenticated path stays uniform.
func identityFromContext(w http.ResponseWriter, r *http.Request) (models.AuthContext, bool) {
	authCtx, ok := auth.GetAuthContext(r.Context())
	if !ok || !authCtx.Authenticated() {
		log.Println("API: No authenticated identity in context")
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return models.AuthContext{}, false
	}
	return authCtx, true
}
