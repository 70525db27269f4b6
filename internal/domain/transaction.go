package domain

import "fmt"

// PriorityTier is the aggregator priority level used to size the inclusion fee.
type PriorityTier string

// Priority tiers accepted by the aggregator.
const (
	PriorityMedium   PriorityTier = "medium"
	PriorityHigh     PriorityTier = "high"
	PriorityVeryHigh PriorityTier = "veryHigh"
)

// ParsePriorityTier validates a configured tier.
func ParsePriorityTier(s string) (PriorityTier, error) {
	switch t := PriorityTier(s); t {
	case PriorityMedium, PriorityHigh, PriorityVeryHigh:
		return t, nil
	}
	return "", fmt.Errorf("unknown priority tier %q", s)
}

// SignedTransaction is a locally signed, chain-submittable transaction. Single-use.
type SignedTransaction struct {
	Raw                  []byte       // serialized wire bytes
	Signature            string       // fee payer signature (base58), doubles as transaction id
	RecentBlockhash      string       // blockhash the message is bound to
	LastValidBlockHeight uint64       // height after which the blockhash expires
	FeeBudget            uint64       // maximum priority fee in lamports
	PriorityTier         PriorityTier // requested priority level
}

// SubmissionResult describes a successfully broadcast transaction.
// TransactionID is durable and usable for confirmation polling and post-hoc inspection.
type SubmissionResult struct {
	TransactionID        string
	RecentBlockhash      string
	LastValidBlockHeight uint64
	FeeBudget            uint64
	PriorityTier         PriorityTier
}

// ConfirmationState is a state of the confirmation tracker.
type ConfirmationState string

// Confirmation states. Every state except Pending is terminal.
const (
	ConfirmationPending   ConfirmationState = "PENDING"
	ConfirmationConfirmed ConfirmationState = "CONFIRMED"
	ConfirmationFailed    ConfirmationState = "FAILED"
	ConfirmationTimedOut  ConfirmationState = "TIMED_OUT"
)

// Terminal reports whether no further polling may occur.
func (s ConfirmationState) Terminal() bool {
	return s != ConfirmationPending
}

// ConfirmationOutcome is the terminal result of tracking one transaction id.
type ConfirmationOutcome struct {
	TransactionID string
	State         ConfirmationState
	ErrorDetail   string // on-chain error for Failed, reason for TimedOut
	Attempts      int    // polls performed
}

// Confirmed reports whether the transaction landed without error.
func (o ConfirmationOutcome) Confirmed() bool {
	return o.State == ConfirmationConfirmed
}

// Err converts a non-confirmed outcome into a classified error.
func (o ConfirmationOutcome) Err() error {
	switch o.State {
	case ConfirmationConfirmed:
		return nil
	case ConfirmationFailed:
		return NewTradeError(KindConfirmationFailed, "confirm", fmt.Errorf("transaction %s failed: %s", o.TransactionID, o.ErrorDetail))
	case ConfirmationTimedOut:
		return NewTradeError(KindConfirmationTimedOut, "confirm", fmt.Errorf("transaction %s not confirmed: %s", o.TransactionID, o.ErrorDetail))
	default:
		return NewTradeError(KindUnexpected, "confirm", fmt.Errorf("transaction %s left in state %s", o.TransactionID, o.State))
	}
}
