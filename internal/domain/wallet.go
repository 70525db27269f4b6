package domain

// Wallet is a configured trading wallet.
type Wallet struct {
	Label      string // operator-facing name, defaults to a public key prefix
	PublicKey  string // base58
	PrivateKey []byte // 64-byte ed25519 secret key
}

// String returns the label, never key material.
func (w Wallet) String() string {
	if w.Label != "" {
		return w.Label
	}
	return ShortAddress(w.PublicKey)
}

// ShortAddress abbreviates a base58 address for logs and messages.
func ShortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}

// WalletBalanceSnapshot is read immediately before an attempt. Never cached.
type WalletBalanceSnapshot struct {
	TokenRaw       uint64 // raw token units summed across the owner's accounts
	TokenDecimals  uint8
	NativeLamports uint64
}

// BalanceCheck is the result of a balance pre-condition.
type BalanceCheck struct {
	OK       bool
	Reason   string // empty when OK
	Snapshot WalletBalanceSnapshot
}

// Balance check reasons.
const (
	ReasonNoTokenBalance           = "no token balance"
	ReasonInsufficientTokenBalance = "insufficient token balance"
	ReasonInsufficientNative       = "insufficient native balance for fees"
)
