package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu          sync.RWMutex
	data        map[string]*domain.TransactionRecord // keyed by trade_id
	bySignature map[string]string                    // signature -> trade_id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data:        make(map[string]*domain.TransactionRecord),
		bySignature: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a confirmed swap. Returns ErrDuplicateKey if trade_id or signature exists.
func (s *TransactionStore) Insert(_ context.Context, t *domain.TransactionRecord) error {
	if t == nil || t.TradeID == "" || t.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySignature[t.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TradeID] = copyTransaction(t)
	s.bySignature[t.Signature] = t.TradeID
	return nil
}

// GetBySignature retrieves a swap by signature. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySignature[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyTransaction(s.data[id]), nil
}

// ListByMint returns swaps of mint ordered by confirmed_at ASC.
func (s *TransactionStore) ListByMint(_ context.Context, mint string) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, t := range s.data {
		if t.Mint == mint {
			result = append(result, copyTransaction(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ConfirmedAt != result[j].ConfirmedAt {
			return result[i].ConfirmedAt < result[j].ConfirmedAt
		}
		return result[i].TradeID < result[j].TradeID
	})
	return result, nil
}

func copyTransaction(t *domain.TransactionRecord) *domain.TransactionRecord {
	c := *t
	c.Venues = append([]string(nil), t.Venues...)
	return &c
}
