package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/retry"
)

const (
	testMint      = "Mint1111111111111111111111111111111111111111"
	raydiumAMM    = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	meteoraDLMM   = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	whirlpool     = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	jupiterRouter = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	tokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// recordingSleeper collects requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func testPolicy(sleeper *recordingSleeper) retry.Policy {
	p := DefaultPolicy()
	p.Sleep = sleeper.Sleep
	return p
}

type quoteResult struct {
	quote *domain.Quote
	err   error
}

type swapResult struct {
	res *jupiter.SwapResult
	err error
}

// fakeAggregator scripts aggregator responses. The last scripted result
// repeats once the queue is drained.
type fakeAggregator struct {
	mu sync.Mutex

	quotes      []quoteResult
	quoteParams []jupiter.QuoteParams

	swaps      []swapResult
	swapParams []jupiter.SwapParams

	labels     map[string]string
	labelsErr  error
	labelCalls int
}

func (f *fakeAggregator) Quote(_ context.Context, p jupiter.QuoteParams) (*domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteParams = append(f.quoteParams, p)
	r := f.quotes[0]
	if len(f.quotes) > 1 {
		f.quotes = f.quotes[1:]
	}
	return r.quote, r.err
}

func (f *fakeAggregator) SwapTransaction(_ context.Context, p jupiter.SwapParams) (*jupiter.SwapResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swapParams = append(f.swapParams, p)
	r := f.swaps[0]
	if len(f.swaps) > 1 {
		f.swaps = f.swaps[1:]
	}
	return r.res, r.err
}

func (f *fakeAggregator) ProgramIDToLabel(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labelCalls++
	if f.labelsErr != nil {
		return nil, f.labelsErr
	}
	return f.labels, nil
}

func routeQuote(venues ...string) *domain.Quote {
	q := &domain.Quote{
		InputMint:   domain.WSOLMint,
		OutputMint:  testMint,
		InAmount:    1_000_000,
		OutAmount:   5_000_000,
		SlippageBps: 100,
		Raw:         []byte(`{"inputMint":"So11111111111111111111111111111111111111112"}`),
	}
	for _, v := range venues {
		q.Route = append(q.Route, domain.RouteHop{AmmKey: v + "-pool", Label: v, Percent: 100})
	}
	return q
}

func newTestWallet(t *testing.T) (domain.Wallet, *solanago.Wallet) {
	t.Helper()
	w := solanago.NewWallet()
	return domain.Wallet{
		Label:      "test",
		PublicKey:  w.PublicKey().String(),
		PrivateKey: []byte(w.PrivateKey),
	}, w
}

// unsignedSwapTx builds a transaction the way the aggregator returns it:
// payer as the only signer with an empty signature slot.
func unsignedSwapTx(t *testing.T, payer solanago.PublicKey) []byte {
	t.Helper()
	ix := solanago.NewInstruction(
		solanago.MustPublicKeyFromBase58(jupiterRouter),
		solanago.AccountMetaSlice{solanago.Meta(payer).WRITE().SIGNER()},
		[]byte{0xe5, 0x17, 0xcb, 0x97},
	)
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{ix},
		solanago.Hash{1, 2, 3, 4},
		solanago.TransactionPayer(payer),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solanago.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}
