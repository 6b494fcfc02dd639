package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/mailmind/backend/internal/auth"
	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
)

// testIdentity builds an identity with credentials linked for the given
// providers.
func testIdentity(kinds ...models.ProviderKind) *models.Identity {
	identity := &models.Identity{
		ID:              "identity-1",
		DisplayName:     "Ada Lovelace",
		PrimaryEmail:    "ada@x.com",
		LinkedProviders: map[models.ProviderKind]models.ProviderCredential{},
	}
	for _, kind := range kinds {
		identity.LinkedProviders[kind] = models.ProviderCredential{
			Kind:        kind,
			AccessToken: "token-" + string(kind),
		}
	}
	return identity
}

// authedRequest builds a request whose context already carries a resolved
// identity, as the auth middleware would leave it.
func authedRequest(method, target string, body io.Reader, identity *models.Identity) *http.Request {
	r := httptest.NewRequest(method, target, body)
	authCtx := models.AuthContext{Identity: identity, Method: models.AuthMethodBearer}
	return r.WithContext(context.WithValue(r.Context(), auth.AuthContextKey, authCtx))
}

// stubAdapter replays a canned batch for one provider.
type stubAdapter struct {
	kind     models.ProviderKind
	messages []provider.RawMessage
	err      error
}

func (s *stubAdapter) Kind() models.ProviderKind { return s.kind }

func (s *stubAdapter) ListRecentMessages(context.Context, models.ProviderCredential, time.Time) ([]provider.RawMessage, error) {
	return s.messages, s.err
}
