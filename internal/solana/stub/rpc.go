// Package stub provides a scriptable in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-trader/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
//
// Balances and token accounts are served from maps. Broadcast results and
// status polls are consumed from per-call queues so tests can script
// sequences such as "pending, pending, confirmed".
type RPCClient struct {
	mu sync.Mutex

	Balances      map[string]uint64
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner|mint
	Transactions  map[string]*solana.Transaction
	BalanceErr    error

	// SendResults are consumed in order; when empty a generated signature is returned.
	SendResults []SendResult
	// StatusResults are consumed in order; when empty the status is unknown.
	StatusResults []StatusResult
	// BlockHeight is returned by GetBlockHeight.
	BlockHeight uint64

	Sent        [][]byte
	SendOpts    []solana.SendOptions
	StatusCalls int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// SendResult scripts one SendTransaction call.
type SendResult struct {
	Signature string
	Err       error
}

// StatusResult scripts one GetSignatureStatuses call.
type StatusResult struct {
	Status *solana.SignatureStatus
	Err    error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Transactions:  make(map[string]*solana.Transaction),
	}
}

// GetBalance returns the scripted lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BalanceErr != nil {
		return 0, c.BalanceErr
	}
	return c.Balances[pubkey], nil
}

// GetTokenAccountsByOwner returns the scripted token accounts.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	return c.TokenAccounts[owner+"|"+mint], nil
}

// SendTransaction records raw and returns the next scripted result.
func (c *RPCClient) SendTransaction(_ context.Context, raw []byte, opts solana.SendOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, raw)
	c.SendOpts = append(c.SendOpts, opts)
	if len(c.SendResults) == 0 {
		return "", errors.New("stub: no send result scripted")
	}
	r := c.SendResults[0]
	c.SendResults = c.SendResults[1:]
	return r.Signature, r.Err
}

// GetSignatureStatuses returns the next scripted status for every signature.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StatusCalls++
	out := make([]*solana.SignatureStatus, len(signatures))
	if len(c.StatusResults) == 0 {
		return out, nil
	}
	r := c.StatusResults[0]
	c.StatusResults = c.StatusResults[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	for i := range out {
		out[i] = r.Status
	}
	return out, nil
}

// GetBlockHeight returns BlockHeight.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// SetTokenBalance scripts a single token account for owner and mint.
func (c *RPCClient) SetTokenBalance(owner, mint string, amount uint64, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[owner+"|"+mint] = []solana.TokenAccount{{
		Address:  owner + "-ata",
		Mint:     mint,
		Owner:    owner,
		Amount:   amount,
		Decimals: decimals,
	}}
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// QueueSend appends scripted broadcast results.
func (c *RPCClient) QueueSend(results ...SendResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SendResults = append(c.SendResults, results...)
}

// QueueStatus appends scripted status poll results.
func (c *RPCClient) QueueStatus(results ...StatusResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StatusResults = append(c.StatusResults, results...)
}

// Confirmed is a landed status.
func Confirmed() *solana.SignatureStatus {
	return &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed}
}

// Failed is a status carrying an on-chain error.
func Failed(err interface{}) *solana.SignatureStatus {
	return &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed, Err: err}
}

// Processed is a status that has not reached confirmed commitment.
func Processed() *solana.SignatureStatus {
	return &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentProcessed}
}
