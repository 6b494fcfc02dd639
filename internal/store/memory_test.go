package store

import (
	"context"
	"testing"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleLogin(email string) ProviderLogin {
	return ProviderLogin{
		Kind:           models.ProviderGoogle,
		ProviderUserID: "google-123",
		Email:          email,
		DisplayName:    "Ada Lovelace",
		AccessToken:    "ya29.access",
		RefreshToken:   "1//refresh",
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("creates identity with exactly one linked provider", func(t *testing.T) {
		s := NewMemoryStore()

		identity, err := s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		require.NoError(t, err)

		assert.NotEmpty(t, identity.ID)
		assert.Equal(t, "a@x.com", identity.PrimaryEmail)
		assert.Len(t, identity.LinkedProviders, 1)
		assert.True(t, identity.HasProvider(models.ProviderGoogle))
	})

	t.Run("second provider links to the same identity", func(t *testing.T) {
		s := NewMemoryStore()

		first, err := s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		require.NoError(t, err)

		second, err := s.UpsertFromProviderLogin(ctx, ProviderLogin{
			Kind:           models.ProviderMicrosoft,
			ProviderUserID: "ms-456",
			Email:          "a@x.com",
			AccessToken:    "EwB.access",
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "a@x.com", second.PrimaryEmail)
		assert.Len(t, second.LinkedProviders, 2)
	})

	t.Run("is idempotent per kind and email", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		require.NoError(t, err)

		updated := googleLogin("a@x.com")
		updated.AccessToken = "ya29.newer"
		identity, err := s.UpsertFromProviderLogin(ctx, updated)
		require.NoError(t, err)

		assert.Len(t, identity.LinkedProviders, 1)
		cred, _ := identity.Provider(models.ProviderGoogle)
		assert.Equal(t, "ya29.newer", cred.AccessToken)

		// The other lookup paths agree.
		byEmail, err := s.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, identity.ID, byEmail.ID)
	})

	t.Run("refreshing one provider leaves the other untouched", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		require.NoError(t, err)
		_, err = s.UpsertFromProviderLogin(ctx, ProviderLogin{
			Kind:           models.ProviderMicrosoft,
			ProviderUserID: "ms-456",
			Email:          "a@x.com",
			AccessToken:    "EwB.original",
		})
		require.NoError(t, err)

		refreshed := googleLogin("a@x.com")
		refreshed.AccessToken = "ya29.refreshed"
		identity, err := s.UpsertFromProviderLogin(ctx, refreshed)
		require.NoError(t, err)

		msCred, ok := identity.Provider(models.ProviderMicrosoft)
		require.True(t, ok)
		assert.Equal(t, "EwB.original", msCred.AccessToken)
	})

	t.Run("drops an expiry that is not in the future", func(t *testing.T) {
		s := NewMemoryStore()

		past := time.Now().Add(-time.Hour)
		login := googleLogin("a@x.com")
		login.ExpiresAt = &past

		identity, err := s.UpsertFromProviderLogin(ctx, login)
		require.NoError(t, err)

		cred, _ := identity.Provider(models.ProviderGoogle)
		assert.Nil(t, cred.ExpiresAt)
	})
}

func TestMemoryStoreFind(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ErrIdentityNotFound for unknown keys", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrIdentityNotFound)

		_, err = s.FindByID(ctx, "missing-id")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("returned identity is a copy", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		require.NoError(t, err)

		first, err := s.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		first.DisplayName = "mutated"
		delete(first.LinkedProviders, models.ProviderGoogle)

		second, err := s.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", second.DisplayName)
		assert.Len(t, second.LinkedProviders, 1)
	})

	t.Run("surfaces store unavailability", func(t *testing.T) {
		s := NewMemoryStore()
		s.SetUnavailable(true)

		_, err := s.FindByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		_, err = s.UpsertFromProviderLogin(ctx, googleLogin("a@x.com"))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}
