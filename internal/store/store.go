// Package store persists identities and their linked provider credentials.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mailmind/backend/internal/models"
)

// ErrIdentityNotFound is returned when no identity matches the lookup key.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
// It is always surfaced to the caller: silently continuing would risk serving
// stale identity data.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ProviderLogin carries the result of one successful provider authentication.
type ProviderLogin struct {
	Kind           models.ProviderKind
	ProviderUserID string
	Email          string
	DisplayName    string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      *time.Time
}

// Store is the credential store contract. All writes are durable before the
// call returns.
type Store interface {
	// FindByEmail returns the identity whose primary email matches, or
	// ErrIdentityNotFound.
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)

	// FindByID returns the identity with the given id, or ErrIdentityNotFound.
	FindByID(ctx context.Context, id string) (*models.Identity, error)

	// UpsertFromProviderLogin creates an identity on first login for an
	// unknown email, or overwrites only the credential for login.Kind on an
	// existing identity, leaving other linked providers untouched.
	UpsertFromProviderLogin(ctx context.Context, login ProviderLogin) (*models.Identity, error)
}

// sanitizeExpiry drops an expiry that is not in the future. A past expiry at
// write time would break the invariant that a stored ExpiresAt is always
// ahead of the write; absence is the conservative "assume valid" signal.
func sanitizeExpiry(expiresAt *time.Time, now time.Time) *time.Time {
	if expiresAt == nil || !expiresAt.After(now) {
		return nil
	}
	return expiresAt
}
