// Package normalize converts provider-shaped messages into canonical email
// records.
package normalize

import (
	"log"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
)

// Normalize flattens the given batches into canonical records, one output
// per input. A message that failed retrieval becomes a sentinel record in
// the same position instead of dropping out, so callers can always account
// for every message a provider listed.
func Normalize(batches ...[]provider.RawMessage) []models.CanonicalEmail {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	emails := make([]models.CanonicalEmail, 0, total)
	for _, batch := range batches {
		for _, msg := range batch {
			emails = append(emails, normalizeOne(msg))
		}
	}
	return emails
}

func normalizeOne(msg provider.RawMessage) models.CanonicalEmail {
	if msg.Err != nil {
		log.Printf("Failed to retrieve message %s: %v", msg.ID, msg.Err)
		return sentinel(msg)
	}

	email := models.CanonicalEmail{
		ID:         msg.ID,
		ThreadID:   msg.ThreadID,
		OccurredAt: msg.Date,
		From:       msg.From,
		To:         msg.To,
		Subject:    msg.Subject,
		Snippet:    msg.Snippet,
		Body:       provider.TruncateBody(msg.Body),
	}

	if email.Subject == "" {
		email.Subject = models.DefaultSubject
	}
	if email.ThreadID == "" {
		email.ThreadID = email.ID
	}
	if email.OccurredAt.IsZero() {
		email.OccurredAt = time.Now()
	}

	return email
}

// sentinel keeps the failed message's identity and timestamp where known so
// the record still sorts and deduplicates sensibly downstream.
func sentinel(msg provider.RawMessage) models.CanonicalEmail {
	occurredAt := msg.Date
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return models.CanonicalEmail{
		ID:         msg.ID,
		ThreadID:   msg.ID,
		OccurredAt: occurredAt,
		Subject:    models.ErrorPlaceholder,
		Snippet:    models.ErrorPlaceholder,
	}
}
