package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mailmind/backend/internal/models"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// gmailMaxMessages caps how many message ids one batch lists.
	gmailMaxMessages = 150

	gmailMaxConcurrency    = 10
	gmailPerMessageTimeout = 15 * time.Second
	gmailListTimeout       = 30 * time.Second
)

// GmailAdapter lists and fetches messages through the Gmail REST API.
type GmailAdapter struct {
	oauth *oauth2.Config
}

// NewGmailAdapter wires the adapter to the Google OAuth2 client
// configuration so stored refresh tokens keep working across access token
// expiry.
func NewGmailAdapter(oauth *oauth2.Config) *GmailAdapter {
	return &GmailAdapter{oauth: oauth}
}

func (a *GmailAdapter) Kind() models.ProviderKind {
	return models.ProviderGoogle
}

// ListRecentMessages lists message ids after since (paginated, capped at
// gmailMaxMessages) and then fetches each message's full payload
// concurrently. A failed or undecodable message occupies its original slot
// with Err set; only the id listing itself failing aborts the batch.
func (a *GmailAdapter) ListRecentMessages(ctx context.Context, cred models.ProviderCredential, since time.Time) ([]RawMessage, error) {
	svc, err := a.service(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build gmail client: %v", ErrProviderUnavailable, err)
	}

	ids, err := a.listMessageIDs(ctx, svc, since)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []RawMessage{}, nil
	}

	return a.fetchMessages(ctx, svc, ids), nil
}

func (a *GmailAdapter) service(ctx context.Context, cred models.ProviderCredential) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if cred.ExpiresAt != nil {
		token.Expiry = *cred.ExpiresAt
	}

	return gmail.NewService(ctx, option.WithTokenSource(a.oauth.TokenSource(ctx, token)))
}

func (a *GmailAdapter) listMessageIDs(ctx context.Context, svc *gmail.Service, since time.Time) ([]string, error) {
	listCtx, cancel := context.WithTimeout(ctx, gmailListTimeout)
	defer cancel()

	query := fmt.Sprintf("after:%s", since.Format("2006/01/02"))

	var ids []string
	pageToken := ""
	for {
		req := svc.Users.Messages.List("me").Q(query).MaxResults(gmailMaxMessages)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Context(listCtx).Do()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list messages: %v", ErrProviderUnavailable, err)
		}

		for _, ref := range resp.Messages {
			ids = append(ids, ref.Id)
			if len(ids) >= gmailMaxMessages {
				return ids, nil
			}
		}

		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// fetchMessages fetches each message concurrently with a bounded semaphore
// and a per-message timeout. The final order is reconstructed from the
// original id list, not from completion order.
func (a *GmailAdapter) fetchMessages(ctx context.Context, svc *gmail.Service, ids []string) []RawMessage {
	type result struct {
		index int
		msg   RawMessage
	}

	results := make(chan result, len(ids))
	sem := make(chan struct{}, gmailMaxConcurrency)

	for i, id := range ids {
		go func(idx int, id string) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{idx, RawMessage{ID: id, Err: ctx.Err()}}
				return
			}

			msgCtx, cancel := context.WithTimeout(ctx, gmailPerMessageTimeout)
			defer cancel()

			full, err := svc.Users.Messages.Get("me", id).Format("full").Context(msgCtx).Do()
			if err != nil {
				results <- result{idx, RawMessage{ID: id, Err: fmt.Errorf("failed to fetch message: %w", err)}}
				return
			}
			results <- result{idx, convertGmailMessage(full)}
		}(i, id)
	}

	messages := make([]RawMessage, len(ids))
	for range ids {
		r := <-results
		messages[r.index] = r.msg
	}

	return messages
}

func convertGmailMessage(msg *gmail.Message) RawMessage {
	raw := RawMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}

	if msg.InternalDate > 0 {
		raw.Date = time.Unix(0, msg.InternalDate*int64(time.Millisecond))
	}

	if msg.Payload == nil {
		raw.Err = fmt.Errorf("message %s carries no payload", msg.Id)
		return raw
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			raw.From = formatHeaderAddress(h.Value)
		case "To":
			raw.To = formatHeaderAddressList(h.Value)
		case "Subject":
			raw.Subject = h.Value
		case "Date":
			if raw.Date.IsZero() {
				if t, err := mail.ParseDate(h.Value); err == nil {
					raw.Date = t
				}
			}
		}
	}

	body, err := extractGmailBody(msg.Payload)
	if err != nil {
		raw.Err = err
		return raw
	}

	raw.Body = TruncateBody(body)
	return raw
}

// extractGmailBody walks the payload preferring text/plain over text/html
// at each level. Nested multipart children are searched only when the top
// level carries neither; first match wins and anything deeper than one
// level of nesting is not searched.
func extractGmailBody(payload *gmail.MessagePart) (string, error) {
	if body, ok, err := partBody(payload); ok {
		return body, err
	}

	if body, ok, err := textPart(payload.Parts); ok {
		return body, err
	}

	for _, part := range payload.Parts {
		if len(part.Parts) == 0 {
			continue
		}
		if body, ok, err := textPart(part.Parts); ok {
			return body, err
		}
	}

	// No text segment anywhere: an empty body, not an error.
	return "", nil
}

// textPart returns the first text/plain part, or failing that the first
// text/html part, of one level of parts.
func textPart(parts []*gmail.MessagePart) (string, bool, error) {
	for _, mimeType := range []string{"text/plain", "text/html"} {
		for _, part := range parts {
			if part.MimeType != mimeType {
				continue
			}
			if body, ok, err := partBody(part); ok {
				return body, true, err
			}
		}
	}
	return "", false, nil
}

// partBody decodes a single part's transport encoding. ok reports whether
// the part carried body data at all.
func partBody(part *gmail.MessagePart) (string, bool, error) {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return "", false, nil
	}
	if !strings.HasPrefix(part.MimeType, "text/") && part.MimeType != "" {
		return "", false, nil
	}

	decoded, err := decodeBase64URL(part.Body.Data)
	if err != nil {
		return "", true, fmt.Errorf("failed to decode message body: %w", err)
	}
	return decoded, true, nil
}

// decodeBase64URL handles Gmail's URL-safe base64, padded or not.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func formatHeaderAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return value
	}
	return FormatAddress(addr.Name, addr.Address)
}

func formatHeaderAddressList(value string) string {
	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		return value
	}

	formatted := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		formatted = append(formatted, FormatAddress(addr.Name, addr.Address))
	}
	return strings.Join(formatted, ", ")
}
