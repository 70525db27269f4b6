package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
)

func quoteRequest(exclusions domain.ExclusionSet) QuoteRequest {
	return QuoteRequest{
		InputMint:   domain.WSOLMint,
		OutputMint:  testMint,
		Amount:      1_000_000,
		SlippageBps: 100,
		Exclusions:  exclusions,
	}
}

func TestGetQuote_FirstAttempt(t *testing.T) {
	agg := &fakeAggregator{quotes: []quoteResult{{quote: routeQuote("Raydium")}}}
	sleeper := &recordingSleeper{}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(sleeper)))

	q, err := r.GetQuote(context.Background(), quoteRequest(domain.NewExclusionSet("Meteora DLMM", "Whirlpool")))
	require.NoError(t, err)

	assert.Equal(t, []string{"Raydium"}, q.Venues())
	require.Len(t, agg.quoteParams, 1)
	assert.Equal(t, []string{"Meteora DLMM", "Whirlpool"}, agg.quoteParams[0].ExcludeDexes)
	assert.Equal(t, uint64(1_000_000), agg.quoteParams[0].Amount)
	assert.Equal(t, 100, agg.quoteParams[0].SlippageBps)
	assert.Empty(t, sleeper.Delays())
}

func TestGetQuote_NotTradableExhaustsBudget(t *testing.T) {
	agg := &fakeAggregator{quotes: []quoteResult{{err: jupiter.ErrNotTradable}}}
	sleeper := &recordingSleeper{}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(sleeper)))

	_, err := r.GetQuote(context.Background(), quoteRequest(nil))
	require.Error(t, err)

	assert.ErrorIs(t, err, jupiter.ErrNotTradable)
	assert.Equal(t, domain.KindDomainRejected, domain.KindOf(err))
	assert.Len(t, agg.quoteParams, 3)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeper.Delays())
}

func TestGetQuote_TransportRecovers(t *testing.T) {
	transport := &jupiter.TransportError{Op: "quote", StatusCode: 502, Err: errors.New("bad gateway")}
	agg := &fakeAggregator{quotes: []quoteResult{{err: transport}, {quote: routeQuote("Raydium")}}}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(&recordingSleeper{})))

	q, err := r.GetQuote(context.Background(), quoteRequest(nil))
	require.NoError(t, err)
	assert.NotNil(t, q)
	assert.Len(t, agg.quoteParams, 2)
}

func TestGetQuote_TransportExhaustedIsTransient(t *testing.T) {
	transport := &jupiter.TransportError{Op: "quote", Err: errors.New("connection refused")}
	agg := &fakeAggregator{quotes: []quoteResult{{err: transport}}}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(&recordingSleeper{})))

	_, err := r.GetQuote(context.Background(), quoteRequest(nil))
	require.Error(t, err)
	assert.Equal(t, domain.KindTransientNetwork, domain.KindOf(err))
	assert.True(t, jupiter.IsTransport(err))
}

func TestGetQuote_RouteThroughExcludedVenueRejected(t *testing.T) {
	agg := &fakeAggregator{quotes: []quoteResult{
		{quote: routeQuote("Raydium", "Meteora DLMM")},
		{quote: routeQuote("Raydium", "Whirlpool")},
	}}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(&recordingSleeper{})))

	q, err := r.GetQuote(context.Background(), quoteRequest(domain.NewExclusionSet("Meteora DLMM")))
	require.NoError(t, err)
	assert.Equal(t, []string{"Raydium", "Whirlpool"}, q.Venues())
	assert.Len(t, agg.quoteParams, 2)
}

func TestGetQuote_ExcludedVenueExhausted(t *testing.T) {
	agg := &fakeAggregator{quotes: []quoteResult{{quote: routeQuote("Meteora DLMM")}}}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(&recordingSleeper{})))

	_, err := r.GetQuote(context.Background(), quoteRequest(domain.NewExclusionSet("Meteora DLMM")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExcludedVenue)
	assert.Equal(t, domain.KindDomainRejected, domain.KindOf(err))
}

func TestGetQuote_ZeroAmount(t *testing.T) {
	agg := &fakeAggregator{}
	r := NewQuoteResolver(agg)

	req := quoteRequest(nil)
	req.Amount = 0
	_, err := r.GetQuote(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.KindDomainRejected, domain.KindOf(err))
	assert.Empty(t, agg.quoteParams)
}

func TestGetQuote_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := &jupiter.TransportError{Op: "quote", Err: errors.New("timeout")}
	agg := &fakeAggregator{quotes: []quoteResult{{err: transport}}}
	r := NewQuoteResolver(agg, WithQuotePolicy(testPolicy(&recordingSleeper{})))

	cancel()
	_, err := r.GetQuote(ctx, quoteRequest(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, agg.quoteParams, 1)
}
