// Package idhash derives deterministic identifiers for persisted records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-token-trader/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(wallet|mint|side|signature)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	wallet string,
	mint string,
	side domain.TradeSide,
	signature string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		wallet,
		mint,
		string(side),
		signature,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
