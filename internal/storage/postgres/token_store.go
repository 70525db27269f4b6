package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `mint, name, symbol, creator, passed, violations, created_at`

// Insert adds a validated token. Returns ErrDuplicateKey if mint exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.TokenRecord) (err error) {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("tokens.insert", start, err) }(time.Now())

	violations := t.Violations
	if violations == nil {
		violations = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.Mint, t.Name, t.Symbol, t.Creator, t.Passed, violations, t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (_ *domain.TokenRecord, err error) {
	defer func(start time.Time) { observe("tokens.get", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE mint = $1`, mint)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// FindByName returns tokens whose name matches case-insensitively, ordered by created_at.
func (s *TokenStore) FindByName(ctx context.Context, name string) ([]*domain.TokenRecord, error) {
	if name == "" {
		return nil, nil
	}
	return s.query(ctx, "tokens.find_by_name", `
		SELECT `+tokenColumns+` FROM tokens
		WHERE lower(name) = lower($1)
		ORDER BY created_at ASC, mint ASC
	`, name)
}

// FindByCreator returns tokens launched by creator, ordered by created_at.
func (s *TokenStore) FindByCreator(ctx context.Context, creator string) ([]*domain.TokenRecord, error) {
	if creator == "" {
		return nil, nil
	}
	return s.query(ctx, "tokens.find_by_creator", `
		SELECT `+tokenColumns+` FROM tokens
		WHERE creator = $1
		ORDER BY created_at ASC, mint ASC
	`, creator)
}

func (s *TokenStore) query(ctx context.Context, op, sql string, args ...any) (_ []*domain.TokenRecord, err error) {
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenRecord
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var t domain.TokenRecord
	if err := row.Scan(&t.Mint, &t.Name, &t.Symbol, &t.Creator, &t.Passed, &t.Violations, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
