package memory

import (
	"context"
	"sync"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

type holdingKey struct {
	wallet string
	mint   string
}

// HoldingStore is an in-memory implementation of storage.HoldingStore.
type HoldingStore struct {
	mu   sync.RWMutex
	data map[holdingKey]*domain.HoldingRecord
}

// NewHoldingStore creates a new in-memory holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		data: make(map[holdingKey]*domain.HoldingRecord),
	}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

// Insert records a position, increasing an existing one for the same wallet and mint.
func (s *HoldingStore) Insert(_ context.Context, h *domain.HoldingRecord) error {
	if h == nil || h.Wallet == "" || h.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{wallet: h.Wallet, mint: h.Mint}
	c := *h
	if prev, exists := s.data[key]; exists {
		c.Amount += prev.Amount
		c.SolPaid += prev.SolPaid
	}
	s.data[key] = &c
	return nil
}

// Get retrieves the position of wallet in mint. Returns ErrNotFound if not exists.
func (s *HoldingStore) Get(_ context.Context, wallet, mint string) (*domain.HoldingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[holdingKey{wallet: wallet, mint: mint}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	c := *h
	return &c, nil
}

// Delete removes the position. Returns ErrNotFound if not exists.
func (s *HoldingStore) Delete(_ context.Context, wallet, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{wallet: wallet, mint: mint}
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// Reduce subtracts sold tokens from the position under the store lock.
func (s *HoldingStore) Reduce(_ context.Context, wallet, mint string, sold uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{wallet: wallet, mint: mint}
	h, exists := s.data[key]
	if !exists {
		return storage.ErrNotFound
	}
	rest, ok := h.Reduce(sold)
	if !ok {
		delete(s.data, key)
		return nil
	}
	s.data[key] = &rest
	return nil
}
