package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// HoldingStore implements storage.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *Pool
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(pool *Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

// Insert records a position, increasing an existing one for the same wallet and mint.
func (s *HoldingStore) Insert(ctx context.Context, h *domain.HoldingRecord) (err error) {
	if h == nil || h.Wallet == "" || h.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("holdings.insert", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO holdings (wallet, mint, amount, sol_paid, signature, fee_budget, acquired_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::numeric, $7)
		ON CONFLICT (wallet, mint) DO UPDATE SET
			amount      = holdings.amount + EXCLUDED.amount,
			sol_paid    = holdings.sol_paid + EXCLUDED.sol_paid,
			signature   = EXCLUDED.signature,
			fee_budget  = EXCLUDED.fee_budget,
			acquired_at = EXCLUDED.acquired_at
	`, h.Wallet, h.Mint, u64(h.Amount), u64(h.SolPaid), h.Signature, u64(h.FeeBudget), h.AcquiredAt)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

// Get retrieves the position of wallet in mint. Returns ErrNotFound if not exists.
func (s *HoldingStore) Get(ctx context.Context, wallet, mint string) (_ *domain.HoldingRecord, err error) {
	defer func(start time.Time) { observe("holdings.get", start, err) }(time.Now())

	var (
		h                          domain.HoldingRecord
		amount, solPaid, feeBudget string
	)
	err = s.pool.QueryRow(ctx, `
		SELECT wallet, mint, amount::text, sol_paid::text, signature, fee_budget::text, acquired_at
		FROM holdings WHERE wallet = $1 AND mint = $2
	`, wallet, mint).Scan(&h.Wallet, &h.Mint, &amount, &solPaid, &h.Signature, &feeBudget, &h.AcquiredAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holding: %w", err)
	}

	if h.Amount, err = parseU64(amount); err != nil {
		return nil, err
	}
	if h.SolPaid, err = parseU64(solPaid); err != nil {
		return nil, err
	}
	if h.FeeBudget, err = parseU64(feeBudget); err != nil {
		return nil, err
	}
	return &h, nil
}

// Delete removes the position. Returns ErrNotFound if not exists.
func (s *HoldingStore) Delete(ctx context.Context, wallet, mint string) (err error) {
	defer func(start time.Time) { observe("holdings.delete", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM holdings WHERE wallet = $1 AND mint = $2`, wallet, mint)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Reduce subtracts sold tokens from the position in one transaction. The row
// is locked while the remainder is computed, then updated or deleted.
func (s *HoldingStore) Reduce(ctx context.Context, wallet, mint string, sold uint64) (err error) {
	defer func(start time.Time) { observe("holdings.reduce", start, err) }(time.Now())

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var amount, solPaid string
		err := tx.QueryRow(ctx, `
			SELECT amount::text, sol_paid::text
			FROM holdings WHERE wallet = $1 AND mint = $2
			FOR UPDATE
		`, wallet, mint).Scan(&amount, &solPaid)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lock holding: %w", err)
		}

		h := domain.HoldingRecord{Wallet: wallet, Mint: mint}
		if h.Amount, err = parseU64(amount); err != nil {
			return err
		}
		if h.SolPaid, err = parseU64(solPaid); err != nil {
			return err
		}

		rest, ok := h.Reduce(sold)
		if !ok {
			if _, err := tx.Exec(ctx, `DELETE FROM holdings WHERE wallet = $1 AND mint = $2`, wallet, mint); err != nil {
				return fmt.Errorf("delete holding: %w", err)
			}
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE holdings SET amount = $3::numeric, sol_paid = $4::numeric
			WHERE wallet = $1 AND mint = $2
		`, wallet, mint, u64(rest.Amount), u64(rest.SolPaid)); err != nil {
			return fmt.Errorf("update holding: %w", err)
		}
		return nil
	})
}

// u64 formats raw u64 amounts for NUMERIC columns; int8 cannot hold them.
func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return v, nil
}
