package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenRecord // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenRecord),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a validated token. Returns ErrDuplicateKey if mint exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.Mint] = copyToken(t)
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// FindByName returns tokens whose name matches case-insensitively, ordered by created_at.
func (s *TokenStore) FindByName(_ context.Context, name string) ([]*domain.TokenRecord, error) {
	if name == "" {
		return nil, nil
	}
	return s.filter(func(t *domain.TokenRecord) bool {
		return strings.EqualFold(t.Name, name)
	}), nil
}

// FindByCreator returns tokens launched by creator, ordered by created_at.
func (s *TokenStore) FindByCreator(_ context.Context, creator string) ([]*domain.TokenRecord, error) {
	if creator == "" {
		return nil, nil
	}
	return s.filter(func(t *domain.TokenRecord) bool {
		return t.Creator == creator
	}), nil
}

func (s *TokenStore) filter(match func(*domain.TokenRecord) bool) []*domain.TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, t := range s.data {
		if match(t) {
			result = append(result, copyToken(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Mint < result[j].Mint
	})
	return result
}

func copyToken(t *domain.TokenRecord) *domain.TokenRecord {
	c := *t
	c.Violations = append([]string(nil), t.Violations...)
	return &c
}
