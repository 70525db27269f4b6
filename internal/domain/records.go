package domain

import "math/big"

// TokenRecord is a validated token kept for duplicate detection.
// Corresponds to the tokens table in PostgreSQL.
type TokenRecord struct {
	Mint       string   // PRIMARY KEY
	Name       string   // token name (may be empty)
	Symbol     string   // token symbol (may be empty)
	Creator    string   // creator address (may be empty)
	Passed     bool     // validation decision
	Violations []string // violated rule names
	CreatedAt  int64    // record creation timestamp (ms)
}

// HoldingRecord is an open position held by a wallet.
// Corresponds to the holdings table in PostgreSQL.
type HoldingRecord struct {
	Wallet     string // owner public key
	Mint       string // token mint
	Amount     uint64 // raw tokens received
	SolPaid    uint64 // lamports spent
	Signature  string // buy transaction
	FeeBudget  uint64 // priority fee cap used (lamports)
	AcquiredAt int64  // confirmation time (ms)
}

// Reduce returns the position left after selling sold raw tokens. SolPaid is
// scaled to the remaining amount, rounding down. ok is false when nothing remains.
func (h HoldingRecord) Reduce(sold uint64) (rest HoldingRecord, ok bool) {
	if sold >= h.Amount {
		return HoldingRecord{}, false
	}
	rest = h
	rest.Amount = h.Amount - sold
	paid := new(big.Int).SetUint64(h.SolPaid)
	paid.Mul(paid, new(big.Int).SetUint64(rest.Amount))
	paid.Quo(paid, new(big.Int).SetUint64(h.Amount))
	rest.SolPaid = paid.Uint64() // rest.Amount < h.Amount keeps this within uint64
	return rest, true
}

// TransactionRecord is a confirmed swap.
// Corresponds to the transactions table in PostgreSQL.
type TransactionRecord struct {
	TradeID     string    // deterministic hash
	Signature   string    // transaction id
	Wallet      string    // signer public key
	Mint        string    // candidate token
	Side        TradeSide // BUY | SELL
	InputMint   string
	OutputMint  string
	InAmount    uint64
	OutAmount   uint64
	Venues      []string // route labels
	ConfirmedAt int64    // ms
}
