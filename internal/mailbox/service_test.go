package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter replays a canned batch and records the window it was asked for.
type fakeAdapter struct {
	kind     models.ProviderKind
	messages []provider.RawMessage
	err      error

	gotCred  models.ProviderCredential
	gotSince time.Time
}

func (f *fakeAdapter) Kind() models.ProviderKind { return f.kind }

func (f *fakeAdapter) ListRecentMessages(_ context.Context, cred models.ProviderCredential, since time.Time) ([]provider.RawMessage, error) {
	f.gotCred = cred
	f.gotSince = since
	return f.messages, f.err
}

func linkedIdentity(kinds ...models.ProviderKind) *models.Identity {
	identity := &models.Identity{
		ID:              "identity-1",
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

func TestGetNormalizedEmails(t *testing.T) {
	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns normalized records", func(t *testing.T) {
		adapter := &fakeAdapter{
			kind: models.ProviderGoogle,
			messages: []provider.RawMessage{
				{ID: "g-1", Date: sent, Subject: "Hello", Body: "body"},
				{ID: "g-2", Date: sent, Err: errors.New("fetch failed")},
			},
		}
		svc := NewService(adapter)

		emails, err := svc.GetNormalizedEmails(context.Background(), linkedIdentity(models.ProviderGoogle), models.ProviderGoogle)
		require.NoError(t, err)
		require.Len(t, emails, 2)
		assert.Equal(t, "Hello", emails[0].Subject)
		assert.True(t, emails[1].IsSentinel())

		assert.Equal(t, "token-google", adapter.gotCred.AccessToken)
	})

	t.Run("lists from the default lookback window", func(t *testing.T) {
		adapter := &fakeAdapter{kind: models.ProviderGoogle}
		svc := NewService(adapter)

		before := provider.DefaultLookback(time.Now())
		_, err := svc.GetNormalizedEmails(context.Background(), linkedIdentity(models.ProviderGoogle), models.ProviderGoogle)
		after := provider.DefaultLookback(time.Now())
		require.NoError(t, err)

		assert.False(t, adapter.gotSince.Before(before))
		assert.False(t, adapter.gotSince.After(after))
	})

	t.Run("missing credential", func(t *testing.T) {
		svc := NewService(&fakeAdapter{kind: models.ProviderMicrosoft})

		_, err := svc.GetNormalizedEmails(context.Background(), linkedIdentity(models.ProviderGoogle), models.ProviderMicrosoft)
		assert.ErrorIs(t, err, ErrCredentialMissing)
	})

	t.Run("unregistered adapter", func(t *testing.T) {
		svc := NewService()

		_, err := svc.GetNormalizedEmails(context.Background(), linkedIdentity(models.ProviderGoogle), models.ProviderGoogle)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCredentialMissing)
	})

	t.Run("provider outage propagates", func(t *testing.T) {
		adapter := &fakeAdapter{
			kind: models.ProviderMicrosoft,
			err:  provider.ErrProviderUnavailable,
		}
		svc := NewService(adapter)

		_, err := svc.GetNormalizedEmails(context.Background(), linkedIdentity(models.ProviderMicrosoft), models.ProviderMicrosoft)
		assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	})
}
