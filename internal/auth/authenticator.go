package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/session"
	"github.com/mailmind/backend/internal/store"
)

// ErrUnauthenticated is returned when neither credential path proves an
// identity. It maps to HTTP 401 and is never retried.
var ErrUnauthenticated = errors.New("not authenticated")

// Evidence is the raw credential material extracted from one request.
// Either field may be empty.
type Evidence struct {
	BearerToken string
	SessionID   string
}

// Authenticator resolves request evidence to an AuthContext. Bearer tokens
// take precedence over sessions so that API clients can override a stale
// session; a failed bearer verification degrades to the session check rather
// than rejecting outright, because the OAuth redirect dance only has session
// state to offer while the SPA uses stateless tokens.
//
// The authenticator is read-only with respect to the credential store.
type Authenticator struct {
	identities store.Store
	sessions   session.Store
	jwtSecret  string
}

func NewAuthenticator(identities store.Store, sessions session.Store, jwtSecret string) *Authenticator {
	return &Authenticator{
		identities: identities,
		sessions:   sessions,
		jwtSecret:  jwtSecret,
	}
}

// verifier attempts one credential path. A (nil, nil) result means
// "not proven, continue"; an error aborts the whole resolution.
type verifier func(ctx context.Context, ev Evidence) (*models.Identity, error)

// Authenticate runs the verifiers in order; the first proven identity wins.
// When both paths are exhausted the context carries AuthMethodNone and the
// caller must reject the request.
func (a *Authenticator) Authenticate(ctx context.Context, ev Evidence) (models.AuthContext, error) {
	paths := []struct {
		method models.AuthMethod
		verify verifier
	}{
		{models.AuthMethodBearer, a.verifyBearer},
		{models.AuthMethodSession, a.verifySession},
	}

	for _, path := range paths {
		identity, err := path.verify(ctx, ev)
		if err != nil {
			return models.AuthContext{Method: models.AuthMethodNone}, err
		}
		if identity != nil {
			return models.AuthContext{Identity: identity, Method: path.method}, nil
		}
	}

	return models.AuthContext{Method: models.AuthMethodNone}, nil
}

// verifyBearer proves the identity from a signed token. A bad signature, an
// expired token or a token referencing a deleted identity all degrade to the
// next path; only store unavailability is an error.
func (a *Authenticator) verifyBearer(ctx context.Context, ev Evidence) (*models.Identity, error) {
	if ev.BearerToken == "" {
		return nil, nil
	}

	claims, err := VerifyToken(ev.BearerToken, a.jwtSecret)
	if err != nil {
		log.Printf("Auth: bearer token rejected, falling back to session: %v", err)
		return nil, nil
	}

	// The token is not trusted as a substitute for stored state: the
	// identity is always reloaded so revoked or re-linked providers are
	// reflected immediately.
	identity, err := a.identities.FindByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrIdentityNotFound) {
		log.Printf("Auth: bearer token references missing identity %s", claims.Subject)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return identity, nil
}

// verifySession proves the identity from server-side session state.
func (a *Authenticator) verifySession(ctx context.Context, ev Evidence) (*models.Identity, error) {
	if ev.SessionID == "" {
		return nil, nil
	}

	sess, err := a.sessions.Get(ctx, ev.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(time.Now()) {
		return nil, nil
	}

	identity, err := a.identities.FindByID(ctx, sess.IdentityID)
	if errors.Is(err, store.ErrIdentityNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return identity, nil
}
