// Package session holds server-side login state keyed by a cookie identifier.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie that carries the session id.
const CookieName = "mailmind_session"

// Session references an authenticated identity. Only the id travels to the
// client; the mapping lives server-side.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store persists sessions. Get returns (nil, nil) when the session does not
// exist; storage-level failures are returned as errors.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// New creates a session for the identity with a fresh random id.
func New(identityID string, ttl time.Duration) Session {
	return Session{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		ExpiresAt:  time.Now().Add(ttl),
	}
}
