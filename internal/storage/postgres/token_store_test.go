package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

func TestTokenStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	rec := &domain.TokenRecord{
		Mint:       "MintPG1",
		Name:       "Dog Coin",
		Symbol:     "DOG",
		Creator:    "CreatorPG",
		Passed:     false,
		Violations: []string{"mint_authority", "top_holder_concentration"},
		CreatedAt:  1700000000000,
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByMint(ctx, "MintPG1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	assert.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)

	_, err = store.GetByMint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_NilViolationsStoredEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{Mint: "MintClean", Passed: true, CreatedAt: 1}))
	got, err := store.GetByMint(ctx, "MintClean")
	require.NoError(t, err)
	assert.True(t, got.Passed)
	assert.Empty(t, got.Violations)
}

func TestTokenStore_FindByNameAndCreator(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{Mint: "M2", Name: "dog coin", Creator: "C1", CreatedAt: 2}))
	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{Mint: "M1", Name: "Dog Coin", Creator: "C2", CreatedAt: 1}))
	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{Mint: "M3", Name: "Cat", Creator: "C1", CreatedAt: 3}))

	byName, err := store.FindByName(ctx, "DOG COIN")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "M1", byName[0].Mint)
	assert.Equal(t, "M2", byName[1].Mint)

	byCreator, err := store.FindByCreator(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, byCreator, 2)
	assert.Equal(t, "M2", byCreator[0].Mint)
	assert.Equal(t, "M3", byCreator[1].Mint)

	none, err := store.FindByCreator(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
