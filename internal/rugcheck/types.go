package rugcheck

import "solana-token-trader/internal/domain"

// reportResponse is the raw /v1/tokens/{mint}/report body.
type reportResponse struct {
	Mint            string  `json:"mint"`
	Creator         string  `json:"creator"`
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	Token           struct {
		MintAuthority   *string `json:"mintAuthority"`
		FreezeAuthority *string `json:"freezeAuthority"`
		IsInitialized   bool    `json:"isInitialized"`
	} `json:"token"`
	TokenMeta struct {
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
		Mutable bool   `json:"mutable"`
	} `json:"tokenMeta"`
	TopHolders []struct {
		Address string  `json:"address"`
		Owner   string  `json:"owner"`
		Pct     float64 `json:"pct"`
		Insider bool    `json:"insider"`
	} `json:"topHolders"`
	Markets []struct {
		PubKey     string `json:"pubkey"`
		MarketType string `json:"marketType"`
		LP         struct {
			LPLockedPct float64 `json:"lpLockedPct"`
			BaseUSD     float64 `json:"baseUSD"`
			QuoteUSD    float64 `json:"quoteUSD"`
		} `json:"lp"`
	} `json:"markets"`
	TotalLPProviders     int     `json:"totalLPProviders"`
	TotalMarketLiquidity float64 `json:"totalMarketLiquidity"`
	Score                int     `json:"score"`
	ScoreNormalised      int     `json:"score_normalised"`
	Risks                []struct {
		Name        string `json:"name"`
		Level       string `json:"level"`
		Description string `json:"description"`
		Score       int    `json:"score"`
	} `json:"risks"`
	Rugged        bool `json:"rugged"`
	KnownAccounts map[string]struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"knownAccounts"`
}

func (r *reportResponse) toDomain() *domain.RiskReport {
	report := &domain.RiskReport{
		Mint:                 r.Mint,
		Creator:              r.Creator,
		MintAuthority:        nonEmpty(r.MintAuthority, r.Token.MintAuthority),
		FreezeAuthority:      nonEmpty(r.FreezeAuthority, r.Token.FreezeAuthority),
		Initialized:          r.Token.IsInitialized,
		MutableMetadata:      r.TokenMeta.Mutable,
		Name:                 r.TokenMeta.Name,
		Symbol:               r.TokenMeta.Symbol,
		TotalLPProviders:     r.TotalLPProviders,
		TotalMarketLiquidity: r.TotalMarketLiquidity,
		Score:                r.Score,
		ScoreNormalised:      r.ScoreNormalised,
		Rugged:               r.Rugged,
	}

	for _, h := range r.TopHolders {
		report.TopHolders = append(report.TopHolders, domain.Holder{
			Address: h.Address,
			Owner:   h.Owner,
			Pct:     h.Pct,
			Insider: h.Insider,
		})
	}
	for _, m := range r.Markets {
		report.Markets = append(report.Markets, domain.Market{
			PubKey:       m.PubKey,
			MarketType:   m.MarketType,
			LPLockedPct:  m.LP.LPLockedPct,
			LiquidityUSD: m.LP.BaseUSD + m.LP.QuoteUSD,
		})
	}
	for _, risk := range r.Risks {
		report.Risks = append(report.Risks, domain.Risk{
			Name:        risk.Name,
			Level:       risk.Level,
			Description: risk.Description,
			Score:       risk.Score,
		})
	}
	if len(r.KnownAccounts) > 0 {
		report.KnownAccounts = make(map[string]domain.KnownAccount, len(r.KnownAccounts))
		for addr, acct := range r.KnownAccounts {
			report.KnownAccounts[addr] = domain.KnownAccount{Name: acct.Name, Type: acct.Type}
		}
	}
	return report
}

// nonEmpty returns the first authority that is set.
func nonEmpty(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			v := *c
			return &v
		}
	}
	return nil
}
