package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphTestCredential() models.ProviderCredential {
	return models.ProviderCredential{
		Kind:        models.ProviderMicrosoft,
		AccessToken: "graph-access-token",
	}
}

func TestGraphListRecentMessages(t *testing.T) {
	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("lists and converts messages", func(t *testing.T) {
		var gotPath, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.RequestURI()
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{
					{
						"id":               "graph-1",
						"conversationId":   "conv-1",
						"subject":          "Quarterly report",
						"bodyPreview":      "Please find attached",
						"receivedDateTime": "2025-06-01T12:00:00Z",
						"from": map[string]any{
							"emailAddress": map[string]any{"name": "Ada Lovelace", "address": "ada@x.com"},
						},
						"toRecipients": []map[string]any{
							{"emailAddress": map[string]any{"address": "bob@y.com"}},
							{"emailAddress": map[string]any{"address": "carol@z.com"}},
						},
						"body": map[string]any{"contentType": "html", "content": "<p>full body</p>"},
					},
				},
			})
		}))
		defer srv.Close()

		adapter := NewGraphAdapterWithBaseURL(srv.URL)
		messages, err := adapter.ListRecentMessages(context.Background(), graphTestCredential(), since)
		require.NoError(t, err)
		require.Len(t, messages, 1)

		assert.Equal(t, "Bearer graph-access-token", gotAuth)
		assert.Contains(t, gotPath, "$top=100")
		assert.Contains(t, gotPath, "receivedDateTime+ge+2025-05-01T00%3A00%3A00Z")

		msg := messages[0]
		assert.NoError(t, msg.Err)
		assert.Equal(t, "graph-1", msg.ID)
		assert.Equal(t, "conv-1", msg.ThreadID)
		assert.Equal(t, "Quarterly report", msg.Subject)
		assert.Equal(t, "Please find attached", msg.Snippet)
		assert.Equal(t, "Ada Lovelace <ada@x.com>", msg.From)
		assert.Equal(t, "bob@y.com, carol@z.com", msg.To)
		assert.Equal(t, "<p>full body</p>", msg.Body)
		assert.True(t, msg.Date.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("follows the next link across pages", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.RawQuery, "page=2") {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"value": []map[string]any{{"id": "graph-2"}},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value":           []map[string]any{{"id": "graph-1"}},
				"@odata.nextLink": srv.URL + "/me/messages?page=2",
			})
		}))
		defer srv.Close()

		adapter := NewGraphAdapterWithBaseURL(srv.URL)
		messages, err := adapter.ListRecentMessages(context.Background(), graphTestCredential(), since)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "graph-1", messages[0].ID)
		assert.Equal(t, "graph-2", messages[1].ID)
	})

	t.Run("caps the batch at the page size", func(t *testing.T) {
		page := make([]map[string]any, 0, 60)
		for i := 0; i < 60; i++ {
			page = append(page, map[string]any{"id": fmt.Sprintf("graph-%d", i)})
		}

		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"value":           page,
				"@odata.nextLink": srv.URL + "/me/messages?page=next",
			})
		}))
		defer srv.Close()

		adapter := NewGraphAdapterWithBaseURL(srv.URL)
		messages, err := adapter.ListRecentMessages(context.Background(), graphTestCredential(), since)
		require.NoError(t, err)
		assert.Len(t, messages, graphMaxMessages)
	})

	t.Run("unsuccessful response fails the whole batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "token expired", http.StatusUnauthorized)
		}))
		defer srv.Close()

		adapter := NewGraphAdapterWithBaseURL(srv.URL)
		messages, err := adapter.ListRecentMessages(context.Background(), graphTestCredential(), since)
		assert.Nil(t, messages)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("unreachable endpoint fails the whole batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		adapter := NewGraphAdapterWithBaseURL(srv.URL)
		_, err := adapter.ListRecentMessages(context.Background(), graphTestCredential(), since)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestConvertGraphMessage(t *testing.T) {
	t.Run("thread id falls back to the message id", func(t *testing.T) {
		raw := convertGraphMessage(graphMessage{ID: "graph-1"})
		assert.Equal(t, "graph-1", raw.ThreadID)
	})

	t.Run("preview stands in for a missing body", func(t *testing.T) {
		raw := convertGraphMessage(graphMessage{ID: "graph-1", BodyPreview: "preview only"})
		assert.Equal(t, "preview only", raw.Body)
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		raw := convertGraphMessage(graphMessage{
			ID:   "graph-1",
			Body: &graphBody{ContentType: "text", Content: strings.Repeat("x", 5000)},
		})
		assert.Len(t, raw.Body, 2000)
	})
}
