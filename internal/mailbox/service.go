// Package mailbox ties provider adapters and normalization into one
// read path over a linked mailbox.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/normalize"
	"github.com/mailmind/backend/internal/provider"
)

// ErrCredentialMissing is returned when the identity has no stored
// credential for the requested provider.
var ErrCredentialMissing = errors.New("no linked credential for provider")

// Service fetches and normalizes recent mail for one identity at a time.
type Service struct {
	adapters map[models.ProviderKind]provider.Adapter
}

func NewService(adapters ...provider.Adapter) *Service {
	byKind := make(map[models.ProviderKind]provider.Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Service{adapters: byKind}
}

// GetNormalizedEmails lists the identity's recent messages from one
// provider and returns them as canonical records. Per-message retrieval
// failures come back as sentinel records; a batch-level provider failure
// is returned as an error wrapping provider.ErrProviderUnavailable.
func (s *Service) GetNormalizedEmails(ctx context.Context, identity *models.Identity, kind models.ProviderKind) ([]models.CanonicalEmail, error) {
	adapter, ok := s.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", kind)
	}

	cred, ok := identity.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCredentialMissing, kind)
	}

	now := time.Now()
	if cred.Expired(now) {
		// The adapter may still refresh; worth a trace when it cannot.
		log.Printf("Stored %s access token for identity %s expired at %v", kind, identity.ID, cred.ExpiresAt)
	}

	raw, err := adapter.ListRecentMessages(ctx, cred, provider.DefaultLookback(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s messages: %w", kind, err)
	}

	return normalize.Normalize(raw), nil
}
