package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("maps a complete message", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{{
			ID:       "msg-1",
			ThreadID: "thread-1",
			Date:     sent,
			From:     "Ada Lovelace <ada@x.com>",
			To:       "bob@y.com",
			Subject:  "Hello",
			Snippet:  "preview",
			Body:     "the body",
		}})

		require.Len(t, emails, 1)
		assert.Equal(t, models.CanonicalEmail{
			ID:         "msg-1",
			ThreadID:   "thread-1",
			OccurredAt: sent,
			From:       "Ada Lovelace <ada@x.com>",
			To:         "bob@y.com",
			Subject:    "Hello",
			Snippet:    "preview",
			Body:       "the body",
		}, emails[0])
	})

	t.Run("one output per input across batches", func(t *testing.T) {
		gmail := []provider.RawMessage{{ID: "g-1", Date: sent}, {ID: "g-2", Date: sent}}
		graph := []provider.RawMessage{{ID: "m-1", Date: sent}}

		emails := Normalize(gmail, graph)
		require.Len(t, emails, 3)
		assert.Equal(t, "g-1", emails[0].ID)
		assert.Equal(t, "g-2", emails[1].ID)
		assert.Equal(t, "m-1", emails[2].ID)
	})

	t.Run("failed message becomes a sentinel in place", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{
			{ID: "g-1", Date: sent, Subject: "fine"},
			{ID: "g-2", Date: sent, Err: errors.New("fetch timed out")},
			{ID: "g-3", Date: sent, Subject: "also fine"},
		})

		require.Len(t, emails, 3)
		assert.False(t, emails[0].IsSentinel())
		assert.False(t, emails[2].IsSentinel())

		bad := emails[1]
		assert.True(t, bad.IsSentinel())
		assert.Equal(t, "g-2", bad.ID)
		assert.Equal(t, models.ErrorPlaceholder, bad.Subject)
		assert.Equal(t, models.ErrorPlaceholder, bad.Snippet)
		assert.Empty(t, bad.From)
		assert.Empty(t, bad.To)
		assert.Empty(t, bad.Body)
		assert.True(t, bad.OccurredAt.Equal(sent))
	})

	t.Run("sentinel without a date gets a current timestamp", func(t *testing.T) {
		before := time.Now()
		emails := Normalize([]provider.RawMessage{{ID: "g-1", Err: errors.New("boom")}})
		after := time.Now()

		require.Len(t, emails, 1)
		assert.False(t, emails[0].OccurredAt.Before(before))
		assert.False(t, emails[0].OccurredAt.After(after))
	})

	t.Run("empty subject becomes the default", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{{ID: "g-1", Date: sent}})
		require.Len(t, emails, 1)
		assert.Equal(t, models.DefaultSubject, emails[0].Subject)
	})

	t.Run("missing thread id falls back to the message id", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{{ID: "g-1", Date: sent}})
		require.Len(t, emails, 1)
		assert.Equal(t, "g-1", emails[0].ThreadID)
	})

	t.Run("body is capped", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{{ID: "g-1", Date: sent, Body: strings.Repeat("x", 5000)}})
		require.Len(t, emails, 1)
		assert.Len(t, emails[0].Body, models.MaxBodyLength)
	})

	t.Run("no batches yields an empty slice", func(t *testing.T) {
		emails := Normalize()
		assert.NotNil(t, emails)
		assert.Empty(t, emails)
	})

	t.Run("empty batch yields an empty slice", func(t *testing.T) {
		emails := Normalize([]provider.RawMessage{})
		assert.NotNil(t, emails)
		assert.Empty(t, emails)
	})
}
