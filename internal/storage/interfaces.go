package storage

import (
	"context"

	"solana-token-trader/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a validated token. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, t *domain.TokenRecord) error

	// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error)

	// FindByName returns tokens whose name matches case-insensitively.
	FindByName(ctx context.Context, name string) ([]*domain.TokenRecord, error)

	// FindByCreator returns tokens launched by creator.
	FindByCreator(ctx context.Context, creator string) ([]*domain.TokenRecord, error)
}

// HoldingStore provides access to holdings storage.
type HoldingStore interface {
	// Insert records a position. An existing position for the same wallet and
	// mint is increased by the new amounts and takes the latest signature.
	Insert(ctx context.Context, h *domain.HoldingRecord) error

	// Get retrieves the position of wallet in mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet, mint string) (*domain.HoldingRecord, error)

	// Delete removes the position. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, wallet, mint string) error

	// Reduce atomically subtracts sold raw tokens from the position, scaling
	// sol_paid to what remains. The position is removed when nothing remains.
	// Returns ErrNotFound if not exists; a failed call leaves the position unchanged.
	Reduce(ctx context.Context, wallet, mint string, sold uint64) error
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// Insert adds a confirmed swap. Returns ErrDuplicateKey if trade_id or signature exists.
	Insert(ctx context.Context, t *domain.TransactionRecord) error

	// GetBySignature retrieves a swap by signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TransactionRecord, error)

	// ListByMint returns swaps of mint ordered by confirmed_at ASC.
	ListByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error)
}
