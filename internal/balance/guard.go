// Package balance guards wallet token and fee balances before a trade attempt.
package balance

import (
	"context"
	"fmt"
	"math"
	"math/bits"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/solana"
)

// Default fee reserve values in lamports.
const (
	DefaultBaseFee      = 5_000
	DefaultSafetyBuffer = 1_000_000
)

// Guard reads balances fresh for every check. Balances are never cached
// because the trade itself mutates them.
type Guard struct {
	chain        solana.ChainReader
	baseFee      uint64
	safetyBuffer uint64
}

// Option configures Guard.
type Option func(*Guard)

// WithBaseFee sets the per-signature base fee reserved on top of the fee budget.
func WithBaseFee(lamports uint64) Option {
	return func(g *Guard) {
		g.baseFee = lamports
	}
}

// WithSafetyBuffer sets the extra native reserve kept for rent and account creation.
func WithSafetyBuffer(lamports uint64) Option {
	return func(g *Guard) {
		g.safetyBuffer = lamports
	}
}

// NewGuard creates a new balance guard.
func NewGuard(chain solana.ChainReader, opts ...Option) *Guard {
	g := &Guard{
		chain:        chain,
		baseFee:      DefaultBaseFee,
		safetyBuffer: DefaultSafetyBuffer,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Reserve returns the native balance kept back for fees.
func (g *Guard) Reserve(maxFeeBudget uint64) uint64 {
	return addSat(addSat(maxFeeBudget, g.baseFee), g.safetyBuffer)
}

// addSat adds without wrapping; a sum past uint64 pins at the maximum.
func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// Snapshot reads the wallet's token and native balances.
func (g *Guard) Snapshot(ctx context.Context, wallet, mint string) (domain.WalletBalanceSnapshot, error) {
	var snap domain.WalletBalanceSnapshot

	accounts, err := g.chain.GetTokenAccountsByOwner(ctx, wallet, mint)
	if err != nil {
		return snap, domain.NewTradeError(domain.KindTransientNetwork, "read token balance", err)
	}
	for _, acct := range accounts {
		snap.TokenRaw = addSat(snap.TokenRaw, acct.Amount)
		snap.TokenDecimals = acct.Decimals
	}

	lamports, err := g.chain.GetBalance(ctx, wallet)
	if err != nil {
		return snap, domain.NewTradeError(domain.KindTransientNetwork, "read native balance", err)
	}
	snap.NativeLamports = lamports

	return snap, nil
}

// CheckBalance verifies a sell can be attempted: the wallet holds the token,
// holds at least requiredTokenAmount of it, and can pay the fees.
// A requiredTokenAmount of zero means the whole balance will be sold.
func (g *Guard) CheckBalance(ctx context.Context, wallet, mint string, requiredTokenAmount, maxFeeBudget uint64) (*domain.BalanceCheck, error) {
	snap, err := g.Snapshot(ctx, wallet, mint)
	if err != nil {
		return nil, err
	}

	check := &domain.BalanceCheck{Snapshot: snap}
	switch {
	case snap.TokenRaw == 0:
		check.Reason = domain.ReasonNoTokenBalance
	case snap.TokenRaw < requiredTokenAmount:
		check.Reason = fmt.Sprintf("%s: have %s, need %s", domain.ReasonInsufficientTokenBalance,
			domain.RawToUI(snap.TokenRaw, snap.TokenDecimals), domain.RawToUI(requiredTokenAmount, snap.TokenDecimals))
	case snap.NativeLamports < g.Reserve(maxFeeBudget):
		check.Reason = g.nativeShortfall(snap.NativeLamports, g.Reserve(maxFeeBudget))
	default:
		check.OK = true
	}
	return check, nil
}

// CheckNative verifies a buy can be funded: spend plus the fee reserve.
func (g *Guard) CheckNative(ctx context.Context, wallet string, spendLamports, maxFeeBudget uint64) (*domain.BalanceCheck, error) {
	lamports, err := g.chain.GetBalance(ctx, wallet)
	if err != nil {
		return nil, domain.NewTradeError(domain.KindTransientNetwork, "read native balance", err)
	}

	check := &domain.BalanceCheck{Snapshot: domain.WalletBalanceSnapshot{NativeLamports: lamports}}
	need := addSat(spendLamports, g.Reserve(maxFeeBudget))
	if lamports < need {
		check.Reason = g.nativeShortfall(lamports, need)
		return check, nil
	}
	check.OK = true
	return check, nil
}

func (g *Guard) nativeShortfall(have, need uint64) string {
	return fmt.Sprintf("%s: have %s SOL, need %s SOL", domain.ReasonInsufficientNative,
		domain.LamportsToSOL(have), domain.LamportsToSOL(need))
}
