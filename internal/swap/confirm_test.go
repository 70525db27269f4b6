package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/solana/stub"
)

func submission() *domain.SubmissionResult {
	return &domain.SubmissionResult{TransactionID: "sig-1", LastValidBlockHeight: 1_000}
}

func newTracker(rpc *stub.RPCClient, sleeper *recordingSleeper) *ConfirmationTracker {
	return NewConfirmationTracker(rpc, WithTrackerSleeper(sleeper.Sleep))
}

func TestConfirm_ConfirmedAfterPending(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 900
	rpc.QueueStatus(stub.StatusResult{Status: stub.Processed()}, stub.StatusResult{Status: stub.Confirmed()})
	sleeper := &recordingSleeper{}

	out := newTracker(rpc, sleeper).Confirm(context.Background(), submission())

	assert.Equal(t, domain.ConfirmationConfirmed, out.State)
	assert.True(t, out.Confirmed())
	assert.NoError(t, out.Err())
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []time.Duration{DefaultPollDelay, DefaultPollDelay}, sleeper.Delays())
}

func TestConfirm_FailedOnChain(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.QueueStatus(stub.StatusResult{Status: stub.Failed(map[string]interface{}{
		"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6001)}},
	})})

	out := newTracker(rpc, &recordingSleeper{}).Confirm(context.Background(), submission())

	assert.Equal(t, domain.ConfirmationFailed, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Contains(t, out.ErrorDetail, "InstructionError")
	assert.Contains(t, out.ErrorDetail, "6001")
	assert.Equal(t, domain.KindConfirmationFailed, domain.KindOf(out.Err()))
}

func TestConfirm_TimedOutAfterMaxAttempts(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 900

	out := newTracker(rpc, &recordingSleeper{}).Confirm(context.Background(), submission())

	assert.Equal(t, domain.ConfirmationTimedOut, out.State)
	assert.Equal(t, DefaultMaxAttempts, out.Attempts)
	assert.Equal(t, DefaultMaxAttempts, rpc.StatusCalls)
	assert.Equal(t, domain.KindConfirmationTimedOut, domain.KindOf(out.Err()))
}

func TestConfirm_PollErrorCountsAsAttempt(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 900
	rpc.QueueStatus(
		stub.StatusResult{Err: errors.New("node behind")},
		stub.StatusResult{Err: errors.New("node behind")},
		stub.StatusResult{Status: stub.Confirmed()},
	)

	out := newTracker(rpc, &recordingSleeper{}).Confirm(context.Background(), submission())
	assert.Equal(t, domain.ConfirmationConfirmed, out.State)
	assert.Equal(t, 3, out.Attempts)
}

func TestConfirm_PollErrorsExhaustBudget(t *testing.T) {
	rpc := stub.NewRPCClient()
	for i := 0; i < 5; i++ {
		rpc.QueueStatus(stub.StatusResult{Err: errors.New("node behind")})
	}

	out := NewConfirmationTracker(rpc, WithTrackerSleeper((&recordingSleeper{}).Sleep), WithMaxAttempts(2)).
		Confirm(context.Background(), submission())
	assert.Equal(t, domain.ConfirmationTimedOut, out.State)
	assert.Equal(t, 2, out.Attempts)
}

func TestConfirm_BlockhashExpired(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 1_001

	out := newTracker(rpc, &recordingSleeper{}).Confirm(context.Background(), submission())
	assert.Equal(t, domain.ConfirmationTimedOut, out.State)
	assert.Equal(t, "blockhash expired", out.ErrorDetail)
	assert.Equal(t, 1, out.Attempts)
}

func TestConfirm_LandedBeatsExpiry(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 5_000
	rpc.QueueStatus(stub.StatusResult{Status: stub.Confirmed()})

	out := newTracker(rpc, &recordingSleeper{}).Confirm(context.Background(), submission())
	assert.Equal(t, domain.ConfirmationConfirmed, out.State)
}

func TestConfirm_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rpc := stub.NewRPCClient()

	out := newTracker(rpc, &recordingSleeper{}).Confirm(ctx, submission())
	assert.Equal(t, domain.ConfirmationTimedOut, out.State)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, 0, rpc.StatusCalls)
}

func TestRecheck_SinglePoll(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.BlockHeight = 900
	rpc.QueueStatus(stub.StatusResult{Status: stub.Confirmed()})
	tracker := newTracker(rpc, &recordingSleeper{})

	out := tracker.Recheck(context.Background(), submission())
	require.Equal(t, domain.ConfirmationConfirmed, out.State)
	assert.Equal(t, 1, out.Attempts)

	out = tracker.Recheck(context.Background(), submission())
	assert.Equal(t, domain.ConfirmationTimedOut, out.State)
	assert.Equal(t, 2, rpc.StatusCalls)
}
