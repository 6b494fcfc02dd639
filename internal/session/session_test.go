package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	before := time.Now()
	sess := New("identity-1", time.Hour)
	after := time.Now()

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "identity-1", sess.IdentityID)
	assert.False(t, sess.ExpiresAt.Before(before.Add(time.Hour)))
	assert.False(t, sess.ExpiresAt.After(after.Add(time.Hour)))

	assert.NotEqual(t, sess.ID, New("identity-1", time.Hour).ID)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a session", func(t *testing.T) {
		s := NewMemoryStore()
		sess := New("identity-1", time.Hour)
		require.NoError(t, s.Create(ctx, sess))

		got, err := s.Get(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sess.IdentityID, got.IdentityID)
	})

	t.Run("unknown id is absent, not an error", func(t *testing.T) {
		s := NewMemoryStore()
		got, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired session is absent", func(t *testing.T) {
		s := NewMemoryStore()
		sess := New("identity-1", -time.Minute)
		require.NoError(t, s.Create(ctx, sess))

		got, err := s.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		s := NewMemoryStore()
		sess := New("identity-1", time.Hour)
		require.NoError(t, s.Create(ctx, sess))
		require.NoError(t, s.Delete(ctx, sess.ID))

		got, err := s.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
