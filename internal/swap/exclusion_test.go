package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/solana/stub"
)

var venueLabels = map[string]string{
	raydiumAMM:  "Raydium",
	meteoraDLMM: "Meteora DLMM",
	whirlpool:   "Whirlpool",
}

// failedRouteTx is a two-hop route: instruction 0 is a compute budget
// call, instruction 1 the aggregator router which CPIs into Raydium then
// Meteora DLMM.
func failedRouteTx(metaErr interface{}, logs ...string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      1,
		Signature: "sig-failed",
		Meta: &solana.TransactionMeta{
			Err:         metaErr,
			LogMessages: logs,
			InnerInstructions: []solana.InnerInstructions{{
				Index: 1,
				Instructions: []solana.CompiledInstruction{
					{ProgramIDIndex: 3},
					{ProgramIDIndex: 4},
					{ProgramIDIndex: 5},
				},
			}},
			LoadedAddresses: solana.LoadedAddresses{Readonly: []string{meteoraDLMM, tokenProgram}},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{"payer", "ComputeBudget111111111111111111111111111111", jupiterRouter, raydiumAMM},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 1},
				{ProgramIDIndex: 2},
			},
		},
	}
}

func instructionError(idx int) map[string]interface{} {
	return map[string]interface{}{
		"InstructionError": []interface{}{float64(idx), map[string]interface{}{"Custom": float64(6001)}},
	}
}

func newResolver(rpc *stub.RPCClient, agg *fakeAggregator) *ExclusionResolver {
	return NewExclusionResolver(rpc, agg, WithResolverPolicy(testPolicy(&recordingSleeper{})))
}

func TestImplicatedPrograms(t *testing.T) {
	tests := []struct {
		name string
		tx   *solana.Transaction
		want []string
	}{
		{
			name: "instruction error with inner instructions",
			tx:   failedRouteTx(instructionError(1)),
			want: []string{jupiterRouter, raydiumAMM, meteoraDLMM, tokenProgram},
		},
		{
			name: "instruction error plus failing program log",
			tx: failedRouteTx(instructionError(0),
				"Program "+raydiumAMM+" invoke [2]",
				"Program "+meteoraDLMM+" failed: custom program error: 0x1771",
			),
			want: []string{"ComputeBudget111111111111111111111111111111", meteoraDLMM},
		},
		{
			name: "only logs pinpoint the failure",
			tx: failedRouteTx("BlockhashNotFound",
				"Program "+whirlpool+" failed: exceeded slippage",
			),
			want: []string{whirlpool},
		},
		{
			name: "nothing pinpointed falls back to every program",
			tx:   failedRouteTx(map[string]interface{}{"InsufficientFundsForRent": map[string]interface{}{"account_index": float64(0)}}),
			want: []string{"ComputeBudget111111111111111111111111111111", jupiterRouter, raydiumAMM, meteoraDLMM, tokenProgram},
		},
		{
			name: "instruction index out of range",
			tx:   failedRouteTx(instructionError(7)),
			want: []string{"ComputeBudget111111111111111111111111111111", jupiterRouter, raydiumAMM, meteoraDLMM, tokenProgram},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImplicatedPrograms(tt.tx))
		})
	}
}

func TestResolveExclusions_MapsProgramsToVenues(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(failedRouteTx(instructionError(1)))
	agg := &fakeAggregator{labels: venueLabels}

	set := newResolver(rpc, agg).ResolveExclusions(context.Background(), "sig-failed")
	assert.Equal(t, []string{"Meteora DLMM", "Raydium"}, set.List())
}

func TestResolveExclusions_LabelsFetchedOnce(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(failedRouteTx(instructionError(1)))
	agg := &fakeAggregator{labels: venueLabels}
	r := newResolver(rpc, agg)

	r.ResolveExclusions(context.Background(), "sig-failed")
	r.ResolveExclusions(context.Background(), "sig-failed")
	assert.Equal(t, 1, agg.labelCalls)
}

func TestResolveExclusions_MissingTransaction(t *testing.T) {
	rpc := stub.NewRPCClient()
	agg := &fakeAggregator{labels: venueLabels}

	set := newResolver(rpc, agg).ResolveExclusions(context.Background(), "sig-unknown")
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, agg.labelCalls)
}

func TestResolveExclusions_LabelFailure(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{"transport retried", &jupiter.TransportError{Op: "program-id-to-label", StatusCode: 503, Err: errors.New("down")}, DefaultMaxRetries + 1},
		{"malformed not retried", jupiter.ErrMalformedResponse, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := stub.NewRPCClient()
			rpc.AddTransaction(failedRouteTx(instructionError(1)))
			agg := &fakeAggregator{labelsErr: tt.err}

			set := newResolver(rpc, agg).ResolveExclusions(context.Background(), "sig-failed")
			require.NotNil(t, set)
			assert.Equal(t, 0, set.Len())
			assert.Equal(t, tt.calls, agg.labelCalls)
		})
	}
}

func TestResolveExclusions_UnlabelledProgramsIgnored(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(failedRouteTx(instructionError(0)))
	agg := &fakeAggregator{labels: venueLabels}

	set := newResolver(rpc, agg).ResolveExclusions(context.Background(), "sig-failed")
	assert.Equal(t, 0, set.Len())
}
