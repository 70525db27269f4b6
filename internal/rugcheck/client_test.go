package rugcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
	"mint": "MintX",
	"creator": "CreatorY",
	"mintAuthority": null,
	"freezeAuthority": null,
	"token": {"mintAuthority": null, "freezeAuthority": "FreezeZ", "isInitialized": true},
	"tokenMeta": {"name": "Dog Coin", "symbol": "DOG", "mutable": true},
	"topHolders": [
		{"address": "ata1", "owner": "PoolAuth", "pct": 62.5, "insider": false},
		{"address": "ata2", "owner": "Whale", "pct": 8.1, "insider": true}
	],
	"markets": [
		{"pubkey": "pool1", "marketType": "raydium", "lp": {"lpLockedPct": 99.5, "baseUSD": 1200.5, "quoteUSD": 1300}}
	],
	"totalLPProviders": 3,
	"totalMarketLiquidity": 2500.5,
	"score": 1201,
	"score_normalised": 12,
	"risks": [{"name": "Mutable metadata", "level": "warn", "description": "Token metadata can be changed", "score": 100}],
	"rugged": false,
	"knownAccounts": {"PoolAuth": {"name": "Raydium Authority", "type": "AMM"}}
}`

func TestClient_Report(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tokens/MintX/report", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(sampleReport))
	}))
	defer server.Close()

	report, err := NewClient(server.URL, WithAPIKey("k")).Report(context.Background(), "MintX")
	require.NoError(t, err)

	assert.Equal(t, "MintX", report.Mint)
	assert.Equal(t, "CreatorY", report.Creator)
	assert.Nil(t, report.MintAuthority)
	require.NotNil(t, report.FreezeAuthority)
	assert.Equal(t, "FreezeZ", *report.FreezeAuthority)
	assert.True(t, report.Initialized)
	assert.True(t, report.MutableMetadata)
	assert.Equal(t, "Dog Coin", report.Name)
	assert.Equal(t, "DOG", report.Symbol)

	require.Len(t, report.TopHolders, 2)
	assert.True(t, report.TopHolders[1].Insider)
	assert.True(t, report.IsLiquidityAccount("PoolAuth"))
	assert.False(t, report.IsLiquidityAccount("Whale"))

	require.Len(t, report.Markets, 1)
	assert.InDelta(t, 2500.5, report.Markets[0].LiquidityUSD, 1e-9)
	assert.Equal(t, 3, report.TotalLPProviders)
	assert.Equal(t, 1201, report.Score)
	assert.Equal(t, 12, report.ScoreNormalised)
	require.Len(t, report.Risks, 1)
	assert.Equal(t, "Mutable metadata", report.Risks[0].Name)
}

func TestClient_Report_UnknownToken(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewClient(server.URL).Report(context.Background(), "Nope")
		assert.ErrorIs(t, err, ErrUnknownToken, "status %d", status)
		assert.False(t, IsTransport(err))
		server.Close()
	}
}

func TestClient_Report_TransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Report(context.Background(), "MintX")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "503")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer garbage.Close()

	_, err = NewClient(garbage.URL).Report(context.Background(), "MintX")
	assert.True(t, IsTransport(err))
}

func TestClient_Report_FillsMissingMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokenMeta":{"name":"X"}}`))
	}))
	defer server.Close()

	report, err := NewClient(server.URL).Report(context.Background(), "MintQ")
	require.NoError(t, err)
	assert.Equal(t, "MintQ", report.Mint)
	assert.Nil(t, report.KnownAccounts)
}
