package postgres

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

func TestHoldingStore_UpsertGetDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	_, err := store.Get(ctx, "W1", "M1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.HoldingRecord{
		Wallet: "W1", Mint: "M1", Amount: 1_000, SolPaid: 100, Signature: "s1", FeeBudget: 5, AcquiredAt: 10,
	}))
	require.NoError(t, store.Insert(ctx, &domain.HoldingRecord{
		Wallet: "W1", Mint: "M1", Amount: 500, SolPaid: 40, Signature: "s2", FeeBudget: 6, AcquiredAt: 20,
	}))

	got, err := store.Get(ctx, "W1", "M1")
	require.NoError(t, err)
	assert.Equal(t, &domain.HoldingRecord{
		Wallet: "W1", Mint: "M1", Amount: 1_500, SolPaid: 140, Signature: "s2", FeeBudget: 6, AcquiredAt: 20,
	}, got)

	require.NoError(t, store.Delete(ctx, "W1", "M1"))
	assert.ErrorIs(t, store.Delete(ctx, "W1", "M1"), storage.ErrNotFound)
}

func TestHoldingStore_FullRangeAmounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.HoldingRecord{
		Wallet: "W", Mint: "M", Amount: math.MaxUint64, SolPaid: 1, Signature: "s", AcquiredAt: 1,
	}))

	got, err := store.Get(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got.Amount)
}

func TestHoldingStore_Reduce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(pool)

	assert.ErrorIs(t, store.Reduce(ctx, "W1", "M1", 1), storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.HoldingRecord{
		Wallet: "W1", Mint: "M1", Amount: 8_000_000, SolPaid: 400_000_000, Signature: "s1", FeeBudget: 5, AcquiredAt: 10,
	}))

	require.NoError(t, store.Reduce(ctx, "W1", "M1", 5_000_000))
	got, err := store.Get(ctx, "W1", "M1")
	require.NoError(t, err)
	assert.Equal(t, &domain.HoldingRecord{
		Wallet: "W1", Mint: "M1", Amount: 3_000_000, SolPaid: 150_000_000, Signature: "s1", FeeBudget: 5, AcquiredAt: 10,
	}, got)

	require.NoError(t, store.Reduce(ctx, "W1", "M1", 3_000_000))
	_, err = store.Get(ctx, "W1", "M1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
