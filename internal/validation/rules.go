package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"solana-token-trader/internal/domain"
)

// Rule names, in evaluation order.
const (
	RuleMintAuthority          = "mint_authority"
	RuleFreezeAuthority        = "freeze_authority"
	RuleInitialized            = "initialized"
	RuleMutableMetadata        = "mutable_metadata"
	RuleRugged                 = "rugged"
	RuleTopHolderConcentration = "top_holder_concentration"
	RuleInsiderHolders         = "insider_holders"
	RuleMinMarkets             = "min_markets"
	RuleMinLPProviders         = "min_lp_providers"
	RuleMinMarketLiquidity     = "min_market_liquidity"
	RuleBlockedSymbol          = "blocked_symbol"
	RuleBlockedName            = "blocked_name"
	RuleReturningName          = "returning_name"
	RuleReturningCreator       = "returning_creator"
	RuleMaxScore               = "max_score"
	RuleLegacyRisks            = "legacy_risks"
)

// Rules toggles each check. The zero value enables every boolean check in
// advisory mode with every numeric and list check disabled.
type Rules struct {
	// Enabled makes violations reject the token. When false the decision is advisory.
	Enabled bool

	AllowMintAuthority   bool
	AllowFreezeAuthority bool
	AllowNotInitialized  bool
	AllowMutableMetadata bool
	AllowRugged          bool
	AllowInsiderHolders  bool

	MaxTopHolderPct         float64 // 0 disables
	ExcludeLPFromTopHolders bool

	MinMarkets            int     // 0 disables
	MinLPProviders        int     // 0 disables
	MinMarketLiquidityUSD float64 // 0 disables

	BlockedSymbols []string
	BlockedNames   []string

	BlockReturningNames    bool
	BlockReturningCreators bool

	MaxScore        int // 0 disables
	DisallowedRisks []string
}

// AllDisabled returns rules under which no check is evaluated.
func AllDisabled() Rules {
	return Rules{
		Enabled:              true,
		AllowMintAuthority:   true,
		AllowFreezeAuthority: true,
		AllowNotInitialized:  true,
		AllowMutableMetadata: true,
		AllowRugged:          true,
		AllowInsiderHolders:  true,
	}
}

// rule evaluates one check. ok=false means the rule is disabled and is not reported.
type rule struct {
	name string
	eval func(ctx context.Context, v *Validator, r *domain.RiskReport) (violated bool, msg string, ok bool)
}

// ruleSet is the fixed evaluation order.
var ruleSet = []rule{
	{RuleMintAuthority, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowMintAuthority {
			return false, "", false
		}
		if r.MintAuthority != nil {
			return true, fmt.Sprintf("mint authority is set (%s)", domain.ShortAddress(*r.MintAuthority)), true
		}
		return false, "mint authority is revoked", true
	}},
	{RuleFreezeAuthority, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowFreezeAuthority {
			return false, "", false
		}
		if r.FreezeAuthority != nil {
			return true, fmt.Sprintf("freeze authority is set (%s)", domain.ShortAddress(*r.FreezeAuthority)), true
		}
		return false, "freeze authority is revoked", true
	}},
	{RuleInitialized, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowNotInitialized {
			return false, "", false
		}
		if !r.Initialized {
			return true, "token mint is not initialized", true
		}
		return false, "token mint is initialized", true
	}},
	{RuleMutableMetadata, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowMutableMetadata {
			return false, "", false
		}
		if r.MutableMetadata {
			return true, "token metadata is mutable", true
		}
		return false, "token metadata is immutable", true
	}},
	{RuleRugged, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowRugged {
			return false, "", false
		}
		if r.Rugged {
			return true, "token is flagged as rugged", true
		}
		return false, "token is not flagged as rugged", true
	}},
	{RuleTopHolderConcentration, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		limit := v.rules.MaxTopHolderPct
		if limit <= 0 {
			return false, "", false
		}
		var top domain.Holder
		for _, h := range r.TopHolders {
			if v.rules.ExcludeLPFromTopHolders && (r.IsLiquidityAccount(h.Address) || r.IsLiquidityAccount(h.Owner)) {
				continue
			}
			if h.Pct > top.Pct {
				top = h
			}
		}
		if top.Pct > limit {
			return true, fmt.Sprintf("top holder %s owns %s%% of supply (max %s%%)",
				domain.ShortAddress(top.Address), pct(top.Pct), pct(limit)), true
		}
		return false, fmt.Sprintf("largest holder owns %s%% of supply (max %s%%)", pct(top.Pct), pct(limit)), true
	}},
	{RuleInsiderHolders, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if v.rules.AllowInsiderHolders {
			return false, "", false
		}
		var insiders []string
		for _, h := range r.TopHolders {
			if h.Insider {
				insiders = append(insiders, domain.ShortAddress(h.Address))
			}
		}
		if len(insiders) > 0 {
			return true, fmt.Sprintf("insiders among top holders: %s", strings.Join(insiders, ", ")), true
		}
		return false, "no insiders among top holders", true
	}},
	{RuleMinMarkets, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		min := v.rules.MinMarkets
		if min <= 0 {
			return false, "", false
		}
		if len(r.Markets) < min {
			return true, fmt.Sprintf("%d markets (min %d)", len(r.Markets), min), true
		}
		return false, fmt.Sprintf("%d markets (min %d)", len(r.Markets), min), true
	}},
	{RuleMinLPProviders, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		min := v.rules.MinLPProviders
		if min <= 0 {
			return false, "", false
		}
		if r.TotalLPProviders < min {
			return true, fmt.Sprintf("%d liquidity providers (min %d)", r.TotalLPProviders, min), true
		}
		return false, fmt.Sprintf("%d liquidity providers (min %d)", r.TotalLPProviders, min), true
	}},
	{RuleMinMarketLiquidity, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		min := v.rules.MinMarketLiquidityUSD
		if min <= 0 {
			return false, "", false
		}
		if r.TotalMarketLiquidity < min {
			return true, fmt.Sprintf("market liquidity $%s (min $%s)", usd(r.TotalMarketLiquidity), usd(min)), true
		}
		return false, fmt.Sprintf("market liquidity $%s (min $%s)", usd(r.TotalMarketLiquidity), usd(min)), true
	}},
	{RuleBlockedSymbol, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if len(v.rules.BlockedSymbols) == 0 {
			return false, "", false
		}
		if matchFold(v.rules.BlockedSymbols, r.Symbol) {
			return true, fmt.Sprintf("symbol %q is blocked", r.Symbol), true
		}
		return false, fmt.Sprintf("symbol %q is not blocked", r.Symbol), true
	}},
	{RuleBlockedName, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if len(v.rules.BlockedNames) == 0 {
			return false, "", false
		}
		if matchFold(v.rules.BlockedNames, r.Name) {
			return true, fmt.Sprintf("name %q is blocked", r.Name), true
		}
		return false, fmt.Sprintf("name %q is not blocked", r.Name), true
	}},
	{RuleReturningName, func(ctx context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if !v.rules.BlockReturningNames || v.tokens == nil || r.Name == "" {
			return false, "", false
		}
		prior, err := v.tokens.FindByName(ctx, r.Name)
		if err != nil {
			v.logger.WithError(err).WithField("mint", r.Mint).Warn("returning name lookup failed")
			return false, fmt.Sprintf("name history unavailable: %v", err), true
		}
		if other := otherMint(prior, r.Mint); other != "" {
			return true, fmt.Sprintf("name %q was already used by %s", r.Name, domain.ShortAddress(other)), true
		}
		return false, fmt.Sprintf("name %q not seen before", r.Name), true
	}},
	{RuleReturningCreator, func(ctx context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if !v.rules.BlockReturningCreators || v.tokens == nil || r.Creator == "" {
			return false, "", false
		}
		prior, err := v.tokens.FindByCreator(ctx, r.Creator)
		if err != nil {
			v.logger.WithError(err).WithField("mint", r.Mint).Warn("returning creator lookup failed")
			return false, fmt.Sprintf("creator history unavailable: %v", err), true
		}
		if other := otherMint(prior, r.Mint); other != "" {
			return true, fmt.Sprintf("creator %s already launched %s", domain.ShortAddress(r.Creator), domain.ShortAddress(other)), true
		}
		return false, fmt.Sprintf("creator %s not seen before", domain.ShortAddress(r.Creator)), true
	}},
	{RuleMaxScore, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		max := v.rules.MaxScore
		if max <= 0 {
			return false, "", false
		}
		if r.Score > max {
			return true, fmt.Sprintf("risk score %d (max %d)", r.Score, max), true
		}
		return false, fmt.Sprintf("risk score %d (max %d)", r.Score, max), true
	}},
	{RuleLegacyRisks, func(_ context.Context, v *Validator, r *domain.RiskReport) (bool, string, bool) {
		if len(v.rules.DisallowedRisks) == 0 {
			return false, "", false
		}
		var hits []string
		for _, risk := range r.Risks {
			if matchFold(v.rules.DisallowedRisks, risk.Name) {
				hits = append(hits, risk.Name)
			}
		}
		if len(hits) > 0 {
			return true, fmt.Sprintf("disallowed risks present: %s", strings.Join(hits, ", ")), true
		}
		return false, "no disallowed risks present", true
	}},
}

func matchFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func otherMint(records []*domain.TokenRecord, mint string) string {
	for _, rec := range records {
		if rec.Mint != mint {
			return rec.Mint
		}
	}
	return ""
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func usd(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(0)
}
