package models

import "time"

// ProviderKind identifies an external mailbox provider.
type ProviderKind string

const (
	ProviderGoogle    ProviderKind = "google"
	ProviderMicrosoft ProviderKind = "microsoft"
)

// Valid reports whether the kind is one of the supported providers.
func (k ProviderKind) Valid() bool {
	return k == ProviderGoogle || k == ProviderMicrosoft
}

// Identity is the application's representation of one end user, independent
// of which provider they log in through. PrimaryEmail is globally unique.
type Identity struct {
	ID              string                              `json:"id"`
	DisplayName     string                              `json:"display_name"`
	PrimaryEmail    string                              `json:"primary_email"`
	LinkedProviders map[ProviderKind]ProviderCredential `json:"linked_providers"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
}

// Provider returns the credential linked for the given kind, if any.
func (i *Identity) Provider(kind ProviderKind) (ProviderCredential, bool) {
	cred, ok := i.LinkedProviders[kind]
	return cred, ok
}

// HasProvider reports whether a credential is linked for the given kind.
func (i *Identity) HasProvider(kind ProviderKind) bool {
	_, ok := i.LinkedProviders[kind]
	return ok
}

// ProviderCredential links an Identity to one external mailbox provider.
// Access and refresh tokens are stored verbatim; they are never embedded in
// bearer tokens or API responses.
type ProviderCredential struct {
	Kind           ProviderKind `json:"kind"`
	ProviderUserID string       `json:"provider_user_id"`
	AccessToken    string       `json:"-"`
	RefreshToken   string       `json:"-"`
	// ExpiresAt is nil when the provider did not report an expiry. A nil
	// value means "assume valid, let the provider reject if stale".
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the credential is known to be past its expiry.
// An unknown expiry is never considered expired.
func (c ProviderCredential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// AuthMethod names the credential mechanism that proved a request's identity.
type AuthMethod string

const (
	AuthMethodSession AuthMethod = "session"
	AuthMethodBearer  AuthMethod = "bearer_token"
	AuthMethodNone    AuthMethod = "none"
)

// AuthContext is the per-request result of authentication. It is never
// persisted. When Method is AuthMethodNone, Identity is nil and the request
// must be rejected before reaching any identity-reading component.
type AuthContext struct {
	Identity *Identity
	Method   AuthMethod
}

// Authenticated reports whether the context carries a proven identity.
func (a AuthContext) Authenticated() bool {
	return a.Method != AuthMethodNone && a.Identity != nil
}
