package orchestrator

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/balance"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/solana/stub"
	"solana-token-trader/internal/swap"
)

const (
	routerProgram  = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	meteoraProgram = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	raydiumProgram = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// aggregatorServer serves quote, swap and program label endpoints. Quotes
// route through Meteora DLMM unless that venue is excluded.
type aggregatorServer struct {
	t        *testing.T
	unsigned []byte

	mu       sync.Mutex
	excluded []string
	swaps    int
}

func (a *aggregatorServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/quote":
		excluded := r.URL.Query().Get("excludeDexes")
		a.mu.Lock()
		a.excluded = append(a.excluded, excluded)
		a.mu.Unlock()

		label, pool := "Meteora DLMM", "dlmm-pool"
		if excluded == "Meteora DLMM" {
			label, pool = "Raydium", "amm-pool"
		}
		fmt.Fprintf(w, `{
			"inputMint": %q, "inAmount": "100000000",
			"outputMint": %q, "outAmount": "5230000",
			"otherAmountThreshold": "5203850", "swapMode": "ExactIn", "slippageBps": 100,
			"routePlan": [{"swapInfo": {"ammKey": %q, "label": %q, "inputMint": %q, "outputMint": %q,
				"inAmount": "100000000", "outAmount": "5230000"}, "percent": 100}]
		}`, domain.WSOLMint, testMint, pool, label, domain.WSOLMint, testMint)
	case "/swap":
		a.mu.Lock()
		a.swaps++
		a.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"swapTransaction":      base64.StdEncoding.EncodeToString(a.unsigned),
			"lastValidBlockHeight": 1_000,
		})
	case "/program-id-to-label":
		json.NewEncoder(w).Encode(map[string]string{
			meteoraProgram: "Meteora DLMM",
			raydiumProgram: "Raydium",
		})
	default:
		a.t.Errorf("unexpected aggregator path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func unsignedSwap(t *testing.T, payer solanago.PublicKey) []byte {
	t.Helper()
	ix := solanago.NewInstruction(
		solanago.MustPublicKeyFromBase58(routerProgram),
		solanago.AccountMetaSlice{solanago.Meta(payer).WRITE().SIGNER()},
		[]byte{0xe5, 0x17, 0xcb, 0x97},
	)
	tx, err := solanago.NewTransaction([]solanago.Instruction{ix}, solanago.Hash{9, 9, 9}, solanago.TransactionPayer(payer))
	require.NoError(t, err)
	tx.Signatures = make([]solanago.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

// meteoraFailure is the fetched form of a swap whose router instruction
// failed inside its Meteora DLMM CPI.
func meteoraFailure(signature string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      42,
		Signature: signature,
		Meta: &solana.TransactionMeta{
			Err: map[string]interface{}{
				"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(6001)}},
			},
			InnerInstructions: []solana.InnerInstructions{{
				Index:        0,
				Instructions: []solana.CompiledInstruction{{ProgramIDIndex: 2}},
			}},
		},
		Message: &solana.TransactionMessage{
			AccountKeys:  []string{"payer", routerProgram, meteoraProgram},
			Instructions: []solana.CompiledInstruction{{ProgramIDIndex: 1}},
		},
	}
}

func TestExecute_OnChainFailureRetriesAroundFailedVenue(t *testing.T) {
	w := solanago.NewWallet()
	wallet := domain.Wallet{Label: "alpha", PublicKey: w.PublicKey().String(), PrivateKey: []byte(w.PrivateKey)}

	agg := &aggregatorServer{t: t, unsigned: unsignedSwap(t, w.PublicKey())}
	server := httptest.NewServer(agg)
	defer server.Close()
	jup := jupiter.NewClient(server.URL)

	rpc := stub.NewRPCClient()
	rpc.Balances[wallet.PublicKey] = 2_000_000_000
	rpc.QueueSend(stub.SendResult{Signature: "sig-1"}, stub.SendResult{Signature: "sig-2"})
	rpc.QueueStatus(
		stub.StatusResult{Status: stub.Failed(map[string]interface{}{
			"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(6001)}},
		})},
		stub.StatusResult{Status: stub.Confirmed()},
	)
	rpc.AddTransaction(meteoraFailure("sig-1"))

	noWait := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	policy := retry.Fixed(swap.DefaultMaxRetries, 0)

	h := newHarness(wallet)
	h.opts.Balance = balance.NewGuard(rpc)
	h.opts.Quotes = swap.NewQuoteResolver(jup, swap.WithQuotePolicy(policy))
	h.opts.Submitter = swap.NewSubmitter(jup, rpc, swap.WithBuildPolicy(policy))
	h.opts.Tracker = swap.NewConfirmationTracker(rpc, swap.WithTrackerSleeper(noWait))
	h.opts.Exclusions = swap.NewExclusionResolver(rpc, jup, swap.WithResolverPolicy(policy))

	result, err := h.orchestrator().Execute(context.Background(), buyRequest())
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	out := result.Outcomes[0]
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "sig-2", out.Signature)
	assert.Equal(t, []string{"Meteora DLMM"}, out.Excluded)

	assert.Equal(t, []string{"", "Meteora DLMM"}, agg.excluded)
	assert.Equal(t, 2, agg.swaps)
	require.Len(t, rpc.Sent, 2)
	assert.Equal(t, 2, rpc.StatusCalls)

	// each broadcast carries the wallet signature
	pub := w.PublicKey()
	for _, raw := range rpc.Sent {
		tx, err := solanago.TransactionFromBytes(raw)
		require.NoError(t, err)
		msg, err := tx.Message.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, tx.Signatures, 1)
		assert.True(t, ed25519.Verify(ed25519.PublicKey(pub[:]), msg, tx.Signatures[0][:]))
	}

	rec, err := h.transactions.GetBySignature(context.Background(), "sig-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Raydium"}, rec.Venues)
}
