package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

func TestTransactionStore_InsertAndQuery(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	later := &domain.TransactionRecord{
		TradeID: "t2", Signature: "sig2", Wallet: "W", Mint: "M", Side: domain.SideSell,
		InputMint: "M", OutputMint: domain.WSOLMint, InAmount: 5, OutAmount: 9,
		Venues: []string{"Raydium"}, ConfirmedAt: 200,
	}
	earlier := &domain.TransactionRecord{
		TradeID: "t1", Signature: "sig1", Wallet: "W", Mint: "M", Side: domain.SideBuy,
		InputMint: domain.WSOLMint, OutputMint: "M", InAmount: 10, OutAmount: 5,
		Venues: []string{"Orca", "Raydium"}, ConfirmedAt: 100,
	}
	require.NoError(t, store.Insert(ctx, later))
	require.NoError(t, store.Insert(ctx, earlier))
	require.NoError(t, store.Insert(ctx, &domain.TransactionRecord{TradeID: "t3", Signature: "sig3", Mint: "Other"}))

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, earlier, got)

	list, err := store.ListByMint(ctx, "M")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].TradeID)
	assert.Equal(t, "t2", list[1].TradeID)

	_, err = store.GetBySignature(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStore_Duplicates(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.TransactionRecord{TradeID: "t1", Signature: "sig1"}))
	assert.ErrorIs(t, store.Insert(ctx, &domain.TransactionRecord{TradeID: "t1", Signature: "sig9"}), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.TransactionRecord{TradeID: "t9", Signature: "sig1"}), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.TransactionRecord{TradeID: "t9"}), storage.ErrInvalidInput)
}
