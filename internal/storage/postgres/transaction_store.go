package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `trade_id, signature, wallet, mint, side, input_mint, output_mint,
	in_amount::text, out_amount::text, venues, confirmed_at`

// Insert adds a confirmed swap. Returns ErrDuplicateKey if trade_id or signature exists.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.TransactionRecord) (err error) {
	if t == nil || t.TradeID == "" || t.Signature == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("transactions.insert", start, err) }(time.Now())

	venues := t.Venues
	if venues == nil {
		venues = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (
			trade_id, signature, wallet, mint, side, input_mint, output_mint,
			in_amount, out_amount, venues, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11)
	`, t.TradeID, t.Signature, t.Wallet, t.Mint, string(t.Side), t.InputMint, t.OutputMint,
		u64(t.InAmount), u64(t.OutAmount), venues, t.ConfirmedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a swap by signature. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (_ *domain.TransactionRecord, err error) {
	defer func(start time.Time) { observe("transactions.get", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE signature = $1`, signature)
	t, err := scanTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListByMint returns swaps of mint ordered by confirmed_at ASC.
func (s *TransactionStore) ListByMint(ctx context.Context, mint string) (_ []*domain.TransactionRecord, err error) {
	defer func(start time.Time) { observe("transactions.list_by_mint", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE mint = $1
		ORDER BY confirmed_at ASC, trade_id ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransactionRecord
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		t             domain.TransactionRecord
		side          string
		inAmt, outAmt string
	)
	if err := row.Scan(&t.TradeID, &t.Signature, &t.Wallet, &t.Mint, &side, &t.InputMint, &t.OutputMint,
		&inAmt, &outAmt, &t.Venues, &t.ConfirmedAt); err != nil {
		return nil, err
	}
	t.Side = domain.TradeSide(side)

	var err error
	if t.InAmount, err = parseU64(inAmt); err != nil {
		return nil, err
	}
	if t.OutAmount, err = parseU64(outAmt); err != nil {
		return nil, err
	}
	return &t, nil
}
