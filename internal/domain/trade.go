package domain

import "errors"

// TradeRequest is one pipeline invocation across all configured wallets.
type TradeRequest struct {
	Mint         string
	Side         TradeSide
	Amount       uint64 // lamports to spend (buy) or raw tokens to sell; 0 sells the full balance
	SlippageBps  int
	FeeBudget    uint64 // max priority fee in lamports
	PriorityTier PriorityTier
}

// InputMint returns the asset given up by the trade.
func (r TradeRequest) InputMint() string {
	if r.Side == SideBuy {
		return WSOLMint
	}
	return r.Mint
}

// OutputMint returns the asset received by the trade.
func (r TradeRequest) OutputMint() string {
	if r.Side == SideBuy {
		return r.Mint
	}
	return WSOLMint
}

// WalletOutcome is the final result of the pipeline for one wallet.
type WalletOutcome struct {
	Wallet    string
	Success   bool
	Signature string    // confirmed signature, or the last submitted one on failure
	Reason    string    // last failure reason; empty on success
	Kind      ErrorKind // classification of the last failure
	Attempts  int       // submission attempts made (0, 1 or 2)
	Excluded  []string  // venues excluded on the retry attempt
	InAmount  uint64
	OutAmount uint64
}

// RunResult aggregates the per-wallet outcomes of one invocation.
type RunResult struct {
	RunID     string
	Mint      string
	Side      TradeSide
	Decision  *ValidationDecision
	Outcomes  []WalletOutcome
	Succeeded int
	Attempted int
}

// Success reports whether at least one wallet confirmed.
func (r *RunResult) Success() bool {
	return r.Succeeded > 0
}

// Err is a VALIDATION_REJECTED error when the token was rejected, nil otherwise.
func (r *RunResult) Err() error {
	if r.Decision == nil || r.Decision.Passed() {
		return nil
	}
	return NewTradeError(KindValidationRejected, "validate", errors.New(r.Decision.Summary()))
}

// Tally reduces the outcomes into success and attempt counts.
func (r *RunResult) Tally() {
	r.Succeeded = 0
	r.Attempted = len(r.Outcomes)
	for _, o := range r.Outcomes {
		if o.Success {
			r.Succeeded++
		}
	}
}
