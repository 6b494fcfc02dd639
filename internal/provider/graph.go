package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mailmind/backend/internal/models"
)

const (
	// DefaultGraphBaseURL is the production Microsoft Graph endpoint.
	DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

	// graphMaxMessages caps how many messages one batch returns.
	graphMaxMessages = 100

	graphRequestTimeout = 30 * time.Second

	graphSelectFields = "id,conversationId,subject,bodyPreview,receivedDateTime,from,toRecipients,body"
)

// GraphAdapter lists messages through the Microsoft Graph API. Server-side
// filtering and field projection deliver body, sender and recipients inline,
// so no per-message fetch is needed — which is also why an unsuccessful
// response fails the whole batch rather than a single message.
type GraphAdapter struct {
	client  *http.Client
	baseURL string
}

func NewGraphAdapter() *GraphAdapter {
	return &GraphAdapter{
		client:  &http.Client{Timeout: graphRequestTimeout},
		baseURL: DefaultGraphBaseURL,
	}
}

// NewGraphAdapterWithBaseURL points the adapter at a different endpoint.
// Used by tests to target a local fake.
func NewGraphAdapterWithBaseURL(baseURL string) *GraphAdapter {
	a := NewGraphAdapter()
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

func (a *GraphAdapter) Kind() models.ProviderKind {
	return models.ProviderMicrosoft
}

// graphMessage mirrors the projected fields of a Graph mail message.
type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	BodyPreview      string           `json:"bodyPreview"`
	ReceivedDateTime string           `json:"receivedDateTime"`
	From             *graphRecipient  `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	Body             *graphBody       `json:"body"`
}

type graphRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphListResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// ListRecentMessages issues the filtered, projected listing call and maps
// each inline message. Any unsuccessful upstream response is a hard failure
// of the whole batch.
func (a *GraphAdapter) ListRecentMessages(ctx context.Context, cred models.ProviderCredential, since time.Time) ([]RawMessage, error) {
	endpoint := fmt.Sprintf(
		"%s/me/messages?$filter=%s&$top=%d&$select=%s",
		a.baseURL,
		url.QueryEscape(fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339))),
		graphMaxMessages,
		graphSelectFields,
	)

	messages := make([]RawMessage, 0, graphMaxMessages)
	for endpoint != "" && len(messages) < graphMaxMessages {
		page, err := a.fetchPage(ctx, endpoint, cred.AccessToken)
		if err != nil {
			return nil, err
		}

		for _, msg := range page.Value {
			messages = append(messages, convertGraphMessage(msg))
			if len(messages) >= graphMaxMessages {
				break
			}
		}

		endpoint = page.NextLink
	}

	return messages, nil
}

func (a *GraphAdapter) fetchPage(ctx context.Context, endpoint, accessToken string) (*graphListResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: graph request failed: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: graph returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var page graphListResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: failed to decode graph response: %v", ErrProviderUnavailable, err)
	}

	return &page, nil
}

func convertGraphMessage(msg graphMessage) RawMessage {
	raw := RawMessage{
		ID:       msg.ID,
		ThreadID: msg.ConversationID,
		Subject:  msg.Subject,
		Snippet:  msg.BodyPreview,
	}

	if raw.ThreadID == "" {
		raw.ThreadID = msg.ID
	}

	if msg.ReceivedDateTime != "" {
		if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
			raw.Date = t
		}
	}

	if msg.From != nil {
		raw.From = FormatAddress(msg.From.EmailAddress.Name, msg.From.EmailAddress.Address)
	}

	recipients := make([]string, 0, len(msg.ToRecipients))
	for _, r := range msg.ToRecipients {
		if addr := r.EmailAddress.Address; addr != "" {
			recipients = append(recipients, addr)
		}
	}
	raw.To = strings.Join(recipients, ", ")

	// Prefer the full (usually HTML) content, fall back to the preview.
	body := msg.BodyPreview
	if msg.Body != nil && msg.Body.Content != "" {
		body = msg.Body.Content
	}
	raw.Body = TruncateBody(body)

	return raw
}
