package domain

// RiskReport holds token-level facts from the risk-assessment service.
// Fetched fresh per validation call; never cached across tokens.
type RiskReport struct {
	Mint            string
	Creator         string
	MintAuthority   *string // nil when unset
	FreezeAuthority *string // nil when unset
	Initialized     bool
	MutableMetadata bool
	Name            string
	Symbol          string

	TopHolders           []Holder
	Markets              []Market
	TotalLPProviders     int
	TotalMarketLiquidity float64 // USD

	Score           int
	ScoreNormalised int
	Risks           []Risk
	Rugged          bool

	KnownAccounts map[string]KnownAccount // address -> label
}

// Holder is one entry of the top-holder list.
type Holder struct {
	Address string
	Owner   string
	Pct     float64 // percentage of supply, 0..100
	Insider bool
}

// Market is a liquidity market the token trades on.
type Market struct {
	PubKey       string
	MarketType   string
	LPLockedPct  float64
	LiquidityUSD float64 // base + quote side USD value
}

// Risk is a named risk flag raised by the risk service.
type Risk struct {
	Name        string
	Level       string // "warn", "danger", ...
	Description string
	Score       int
}

// KnownAccount labels an address the risk service recognises.
type KnownAccount struct {
	Name string
	Type string // "AMM", "CREATOR", ...
}

// IsLiquidityAccount reports whether the address is a known AMM/LP account.
func (r *RiskReport) IsLiquidityAccount(address string) bool {
	if r.KnownAccounts == nil {
		return false
	}
	acct, ok := r.KnownAccounts[address]
	return ok && acct.Type == "AMM"
}
