package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mailmind/backend/internal/models"
)

// MemoryStore is an in-process Store used in tests and in the session-only
// development mode. Writes to the same identity serialize on the mutex; last
// write wins.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*models.Identity
	idByEmail map[string]string
	failing   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*models.Identity),
		idByEmail: make(map[string]string),
	}
}

// SetUnavailable makes every subsequent call fail with ErrStoreUnavailable.
// Test hook for exercising the surfacing contract.
func (s *MemoryStore) SetUnavailable(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return nil, ErrStoreUnavailable
	}

	id, ok := s.idByEmail[email]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return cloneIdentity(s.byID[id]), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return nil, ErrStoreUnavailable
	}

	identity, ok := s.byID[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return cloneIdentity(identity), nil
}

func (s *MemoryStore) UpsertFromProviderLogin(ctx context.Context, login ProviderLogin) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return nil, ErrStoreUnavailable
	}

	now := time.Now()

	var identity *models.Identity
	if id, ok := s.idByEmail[login.Email]; ok {
		identity = s.byID[id]
		if login.DisplayName != "" {
			identity.DisplayName = login.DisplayName
		}
		identity.UpdatedAt = now
	} else {
		identity = &models.Identity{
			ID:              uuid.NewString(),
			DisplayName:     login.DisplayName,
			PrimaryEmail:    login.Email,
			LinkedProviders: make(map[models.ProviderKind]models.ProviderCredential),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		s.byID[identity.ID] = identity
		s.idByEmail[identity.PrimaryEmail] = identity.ID
	}

	identity.LinkedProviders[login.Kind] = models.ProviderCredential{
		Kind:           login.Kind,
		ProviderUserID: login.ProviderUserID,
		AccessToken:    login.AccessToken,
		RefreshToken:   login.RefreshToken,
		ExpiresAt:      sanitizeExpiry(login.ExpiresAt, now),
	}

	return cloneIdentity(identity), nil
}

// cloneIdentity copies the record so callers cannot mutate stored state.
func cloneIdentity(identity *models.Identity) *models.Identity {
	clone := *identity
	clone.LinkedProviders = make(map[models.ProviderKind]models.ProviderCredential, len(identity.LinkedProviders))
	for kind, cred := range identity.LinkedProviders {
		clone.LinkedProviders[kind] = cred
	}
	return &clone
}
