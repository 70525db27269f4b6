package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the trade pipeline.
type RPCClient interface {
	ChainReader
	Broadcaster
	StatusReader
	TransactionFetcher
}

// ChainReader reads wallet balances.
type ChainReader interface {
	// GetBalance returns the native balance of pubkey in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountsByOwner returns the owner's token accounts for mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)
}

// Broadcaster submits signed transactions.
type Broadcaster interface {
	// SendTransaction broadcasts raw wire bytes and returns the signature.
	SendTransaction(ctx context.Context, raw []byte, opts SendOptions) (string, error)
}

// StatusReader polls transaction finality.
type StatusReader interface {
	// GetSignatureStatuses returns one status per signature; nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// TransactionFetcher retrieves full transaction records.
type TransactionFetcher interface {
	// GetTransaction retrieves a transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	InnerInstructions []InnerInstructions
	LoadedAddresses   LoadedAddresses
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction references its program and accounts by account-key index.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// InnerInstructions are the CPI calls made by top-level instruction Index.
type InnerInstructions struct {
	Index        int
	Instructions []CompiledInstruction
}

// LoadedAddresses are accounts resolved from address lookup tables (v0 transactions).
type LoadedAddresses struct {
	Writable []string
	Readonly []string
}

// AccountKeys returns static keys followed by lookup-table keys, in the order
// instruction indexes refer to them.
func (t *Transaction) AccountKeys() []string {
	if t.Message == nil {
		return nil
	}
	keys := append([]string(nil), t.Message.AccountKeys...)
	if t.Meta != nil {
		keys = append(keys, t.Meta.LoadedAddresses.Writable...)
		keys = append(keys, t.Meta.LoadedAddresses.Readonly...)
	}
	return keys
}

// ProgramID resolves the program of a compiled instruction, or "" when out of range.
func (t *Transaction) ProgramID(ix CompiledInstruction) string {
	keys := t.AccountKeys()
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
		return ""
	}
	return keys[ix.ProgramIDIndex]
}
