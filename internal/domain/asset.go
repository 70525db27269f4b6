package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WSOLMint is the wrapped SOL mint used as the native side of every swap.
const WSOLMint = "So11111111111111111111111111111111111111112"

// SOLDecimals is the number of decimals of the native asset.
const SOLDecimals = 9

// TradeSide identifies the direction of a trade relative to the candidate token.
type TradeSide string

// Trade sides.
const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// LamportsToSOL converts lamports to a SOL decimal.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return RawToUI(lamports, SOLDecimals)
}

// SOLToLamports converts a SOL amount to lamports, truncating sub-lamport precision.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	return UIToRaw(sol, SOLDecimals)
}

// RawToUI converts a raw integer token amount to its UI representation.
func RawToUI(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// UIToRaw converts a UI token amount to raw integer units.
func UIToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64", amount)
	}
	return raw.BigInt().Uint64(), nil
}
