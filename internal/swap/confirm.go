package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/solana"
)

// Confirmation defaults.
const (
	DefaultPollDelay   = 2 * time.Second
	DefaultMaxAttempts = 3
)

// ConfirmationTracker polls a submitted transaction until it reaches a
// terminal state: Confirmed, Failed or TimedOut.
type ConfirmationTracker struct {
	status      solana.StatusReader
	pollDelay   time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      logrus.FieldLogger
}

// TrackerOption configures ConfirmationTracker.
type TrackerOption func(*ConfirmationTracker)

// WithPollDelay sets the fixed delay before each poll.
func WithPollDelay(d time.Duration) TrackerOption {
	return func(t *ConfirmationTracker) {
		t.pollDelay = d
	}
}

// WithMaxAttempts sets the poll budget.
func WithMaxAttempts(n int) TrackerOption {
	return func(t *ConfirmationTracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithTrackerSleeper replaces the poll wait, for tests.
func WithTrackerSleeper(sleep func(ctx context.Context, d time.Duration) error) TrackerOption {
	return func(t *ConfirmationTracker) {
		t.sleep = sleep
	}
}

// WithTrackerLogger sets the logger.
func WithTrackerLogger(l logrus.FieldLogger) TrackerOption {
	return func(t *ConfirmationTracker) {
		t.logger = l
	}
}

// NewConfirmationTracker creates a new ConfirmationTracker.
func NewConfirmationTracker(status solana.StatusReader, opts ...TrackerOption) *ConfirmationTracker {
	t := &ConfirmationTracker{
		status:      status,
		pollDelay:   DefaultPollDelay,
		maxAttempts: DefaultMaxAttempts,
		sleep:       retry.Sleep,
		logger:      discardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Confirm polls until the transaction lands, fails on chain, its blockhash
// expires or the poll budget runs out.
func (t *ConfirmationTracker) Confirm(ctx context.Context, sub *domain.SubmissionResult) domain.ConfirmationOutcome {
	out := t.track(ctx, sub, t.maxAttempts)
	t.report(sub, out)
	return out
}

// Recheck performs a single additional poll for a timed-out transaction.
func (t *ConfirmationTracker) Recheck(ctx context.Context, sub *domain.SubmissionResult) domain.ConfirmationOutcome {
	out := t.track(ctx, sub, 1)
	t.report(sub, out)
	return out
}

func (t *ConfirmationTracker) track(ctx context.Context, sub *domain.SubmissionResult, attempts int) domain.ConfirmationOutcome {
	out := domain.ConfirmationOutcome{TransactionID: sub.TransactionID, State: domain.ConfirmationPending}
	log := t.logger.WithField("signature", sub.TransactionID)

	for out.Attempts < attempts {
		if err := t.sleep(ctx, t.pollDelay); err != nil {
			out.State = domain.ConfirmationTimedOut
			out.ErrorDetail = fmt.Sprintf("polling interrupted: %v", err)
			return out
		}
		out.Attempts++

		statuses, err := t.status.GetSignatureStatuses(ctx, sub.TransactionID)
		if err != nil {
			log.WithError(err).WithField("attempt", out.Attempts).Warn("status poll failed")
			continue
		}

		var st *solana.SignatureStatus
		if len(statuses) > 0 {
			st = statuses[0]
		}
		switch {
		case st != nil && st.Err != nil:
			out.State = domain.ConfirmationFailed
			out.ErrorDetail = errorDetail(st.Err)
			return out
		case st != nil && st.Landed():
			out.State = domain.ConfirmationConfirmed
			return out
		}

		if t.expired(ctx, sub) {
			out.State = domain.ConfirmationTimedOut
			out.ErrorDetail = "blockhash expired"
			return out
		}
		log.WithField("attempt", out.Attempts).Debug("transaction pending")
	}

	out.State = domain.ConfirmationTimedOut
	out.ErrorDetail = fmt.Sprintf("not confirmed after %d polls", out.Attempts)
	return out
}

// expired reports whether the chain has moved past the transaction's last valid height.
func (t *ConfirmationTracker) expired(ctx context.Context, sub *domain.SubmissionResult) bool {
	if sub.LastValidBlockHeight == 0 {
		return false
	}
	height, err := t.status.GetBlockHeight(ctx)
	if err != nil {
		return false
	}
	return height > sub.LastValidBlockHeight
}

func (t *ConfirmationTracker) report(sub *domain.SubmissionResult, out domain.ConfirmationOutcome) {
	observability.RecordConfirmation(string(out.State))

	log := t.logger.WithFields(logrus.Fields{
		"signature": sub.TransactionID,
		"state":     out.State,
		"attempts":  out.Attempts,
	})
	switch out.State {
	case domain.ConfirmationConfirmed:
		log.Info("transaction confirmed")
	case domain.ConfirmationFailed:
		log.WithFields(logrus.Fields{"outcome": "failed", "detail": out.ErrorDetail}).Error("transaction failed on chain")
	case domain.ConfirmationTimedOut:
		log.WithFields(logrus.Fields{"outcome": "timed_out", "detail": out.ErrorDetail}).Warn("transaction not confirmed")
	}
}

func errorDetail(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
