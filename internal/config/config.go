// Package config loads trader configuration from an optional file and
// TRADER_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/validation"
)

// EnvPrefix prefixes every environment override, e.g. TRADER_RPC_URL.
const EnvPrefix = "TRADER"

// Config is the full trader configuration.
type Config struct {
	RPC          RPCConfig          `mapstructure:"rpc"`
	Jupiter      JupiterConfig      `mapstructure:"jupiter"`
	RugCheck     RugCheckConfig     `mapstructure:"rugcheck"`
	Trade        TradeConfig        `mapstructure:"trade"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Validation   ValidationConfig   `mapstructure:"validation"`
	Wallets      WalletsConfig      `mapstructure:"wallets"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
}

// RPCConfig configures the Solana JSON-RPC client.
type RPCConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	RateLimit  int           `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Commitment string        `mapstructure:"commitment"`
}

// JupiterConfig configures the aggregator client.
type JupiterConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// RugCheckConfig configures the risk-report client and its fixed retry.
type RugCheckConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// TradeConfig holds per-trade parameters.
type TradeConfig struct {
	BuyAmountSOL         string `mapstructure:"buy_amount_sol"`
	SlippageBps          int    `mapstructure:"slippage_bps"`
	FeeBudgetLamports    uint64 `mapstructure:"fee_budget_lamports"`
	PriorityTier         string `mapstructure:"priority_tier"`
	SendRetries          uint   `mapstructure:"send_retries"`
	BaseFeeLamports      uint64 `mapstructure:"base_fee_lamports"`
	SafetyBufferLamports uint64 `mapstructure:"safety_buffer_lamports"`
	RecheckTimedOut      bool   `mapstructure:"recheck_timed_out"`
}

// RetryConfig is the exponential policy for aggregator calls.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// ConfirmationConfig bounds confirmation polling.
type ConfirmationConfig struct {
	PollDelay   time.Duration `mapstructure:"poll_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ValidationConfig toggles the pre-trade rules.
type ValidationConfig struct {
	Enabled                 bool     `mapstructure:"enabled"`
	AllowMintAuthority      bool     `mapstructure:"allow_mint_authority"`
	AllowFreezeAuthority    bool     `mapstructure:"allow_freeze_authority"`
	AllowNotInitialized     bool     `mapstructure:"allow_not_initialized"`
	AllowMutableMetadata    bool     `mapstructure:"allow_mutable_metadata"`
	AllowRugged             bool     `mapstructure:"allow_rugged"`
	AllowInsiderHolders     bool     `mapstructure:"allow_insider_holders"`
	MaxTopHolderPct         float64  `mapstructure:"max_top_holder_pct"`
	ExcludeLPFromTopHolders bool     `mapstructure:"exclude_lp_from_top_holders"`
	MinMarkets              int      `mapstructure:"min_markets"`
	MinLPProviders          int      `mapstructure:"min_lp_providers"`
	MinMarketLiquidityUSD   float64  `mapstructure:"min_market_liquidity_usd"`
	BlockedSymbols          []string `mapstructure:"blocked_symbols"`
	BlockedNames            []string `mapstructure:"blocked_names"`
	BlockReturningNames     bool     `mapstructure:"block_returning_names"`
	BlockReturningCreators  bool     `mapstructure:"block_returning_creators"`
	MaxScore                int      `mapstructure:"max_score"`
	DisallowedRisks         []string `mapstructure:"disallowed_risks"`
}

// WalletsConfig lists the trading wallets as base58 secret keys.
type WalletsConfig struct {
	PrivateKeys []string `mapstructure:"private_keys"`
	Labels      []string `mapstructure:"labels"`
}

// PostgresConfig configures persistence. An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// TelegramConfig configures notifications. An empty token disables them.
type TelegramConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	DefaultChat string `mapstructure:"default_chat"`
	TradesChat  string `mapstructure:"trades_chat"`
	AlertsChat  string `mapstructure:"alerts_chat"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.timeout", 30*time.Second)
	v.SetDefault("rpc.max_retries", retry.DefaultMaxRetries)
	v.SetDefault("rpc.retry_delay", retry.DefaultBaseDelay)
	v.SetDefault("rpc.rate_limit", 0)
	v.SetDefault("rpc.commitment", solana.CommitmentConfirmed)

	v.SetDefault("jupiter.url", "https://lite-api.jup.ag/swap/v1")
	v.SetDefault("jupiter.api_key", "")
	v.SetDefault("jupiter.timeout", 15*time.Second)
	v.SetDefault("jupiter.rate_limit", 0)

	v.SetDefault("rugcheck.url", "https://api.rugcheck.xyz")
	v.SetDefault("rugcheck.api_key", "")
	v.SetDefault("rugcheck.timeout", 10*time.Second)
	v.SetDefault("rugcheck.rate_limit", 0)
	v.SetDefault("rugcheck.max_retries", validation.DefaultMaxRetries)
	v.SetDefault("rugcheck.retry_delay", validation.DefaultRetryDelay)

	v.SetDefault("trade.buy_amount_sol", "0.01")
	v.SetDefault("trade.slippage_bps", 100)
	v.SetDefault("trade.fee_budget_lamports", 100_000)
	v.SetDefault("trade.priority_tier", string(domain.PriorityVeryHigh))
	v.SetDefault("trade.send_retries", 2)
	v.SetDefault("trade.base_fee_lamports", 5_000)
	v.SetDefault("trade.safety_buffer_lamports", 1_000_000)
	v.SetDefault("trade.recheck_timed_out", false)

	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.base_delay", 500*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("confirmation.poll_delay", 2*time.Second)
	v.SetDefault("confirmation.max_attempts", 3)

	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.allow_mint_authority", false)
	v.SetDefault("validation.allow_freeze_authority", false)
	v.SetDefault("validation.allow_not_initialized", false)
	v.SetDefault("validation.allow_mutable_metadata", false)
	v.SetDefault("validation.allow_rugged", false)
	v.SetDefault("validation.allow_insider_holders", false)
	v.SetDefault("validation.max_top_holder_pct", 30.0)
	v.SetDefault("validation.exclude_lp_from_top_holders", true)
	v.SetDefault("validation.min_markets", 3)
	v.SetDefault("validation.min_lp_providers", 0)
	v.SetDefault("validation.min_market_liquidity_usd", 10_000.0)
	v.SetDefault("validation.blocked_symbols", []string{})
	v.SetDefault("validation.blocked_names", []string{})
	v.SetDefault("validation.block_returning_names", false)
	v.SetDefault("validation.block_returning_creators", false)
	v.SetDefault("validation.max_score", 0)
	v.SetDefault("validation.disallowed_risks", []string{})

	v.SetDefault("wallets.private_keys", []string{})
	v.SetDefault("wallets.labels", []string{})

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 5)

	v.SetDefault("telegram.url", "https://api.telegram.org")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.default_chat", "")
	v.SetDefault("telegram.trades_chat", "")
	v.SetDefault("telegram.alerts_chat", "")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads path (if non-empty) and the environment, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error while validating config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RPC.URL == "" {
		errs = append(errs, errors.New("rpc.url is required"))
	}
	if c.Jupiter.URL == "" {
		errs = append(errs, errors.New("jupiter.url is required"))
	}
	if c.RugCheck.URL == "" {
		errs = append(errs, errors.New("rugcheck.url is required"))
	}
	if len(c.Wallets.PrivateKeys) == 0 {
		errs = append(errs, errors.New("wallets.private_keys must list at least one wallet"))
	}
	if c.Trade.SlippageBps <= 0 || c.Trade.SlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("trade.slippage_bps must be in (0, 10000], got %d", c.Trade.SlippageBps))
	}
	if _, err := domain.ParsePriorityTier(c.Trade.PriorityTier); err != nil {
		errs = append(errs, fmt.Errorf("trade.priority_tier: %w", err))
	}
	if _, err := c.BuyLamports(); err != nil {
		errs = append(errs, fmt.Errorf("trade.buy_amount_sol: %w", err))
	}
	if c.RPC.MaxRetries <= 0 {
		errs = append(errs, errors.New("rpc.max_retries must be positive"))
	}
	if c.RugCheck.MaxRetries <= 0 {
		errs = append(errs, errors.New("rugcheck.max_retries must be positive"))
	}
	if c.Retry.MaxRetries <= 0 {
		errs = append(errs, errors.New("retry.max_retries must be positive"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry.multiplier must be at least 1"))
	}
	if c.Confirmation.MaxAttempts <= 0 {
		errs = append(errs, errors.New("confirmation.max_attempts must be positive"))
	}
	if len(c.Wallets.PrivateKeys) > 0 {
		if _, err := c.ParseWallets(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuyLamports parses the configured buy amount.
func (c *Config) BuyLamports() (uint64, error) {
	amount, err := decimal.NewFromString(c.Trade.BuyAmountSOL)
	if err != nil {
		return 0, err
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("must be positive, got %s", amount)
	}
	return domain.SOLToLamports(amount)
}

// Tier returns the configured priority tier.
func (c *Config) Tier() domain.PriorityTier {
	return domain.PriorityTier(c.Trade.PriorityTier)
}

// ParseWallets decodes every configured secret key. The derived public key
// must be an on-curve ed25519 point.
func (c *Config) ParseWallets() ([]domain.Wallet, error) {
	wallets := make([]domain.Wallet, 0, len(c.Wallets.PrivateKeys))
	seen := make(map[string]bool, len(c.Wallets.PrivateKeys))
	for i, raw := range c.Wallets.PrivateKeys {
		key, err := solanago.PrivateKeyFromBase58(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("wallet %d: invalid private key", i)
		}
		if len(key) != 64 {
			return nil, fmt.Errorf("wallet %d: private key must be 64 bytes, got %d", i, len(key))
		}
		pub := key.PublicKey().String()
		if err := solana.ValidateWalletAddress(pub); err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}
		if seen[pub] {
			return nil, fmt.Errorf("wallet %d: duplicate wallet %s", i, domain.ShortAddress(pub))
		}
		seen[pub] = true

		label := fmt.Sprintf("wallet-%d", i+1)
		if i < len(c.Wallets.Labels) && c.Wallets.Labels[i] != "" {
			label = c.Wallets.Labels[i]
		}
		wallets = append(wallets, domain.Wallet{Label: label, PublicKey: pub, PrivateKey: []byte(key)})
	}
	return wallets, nil
}

// Rules maps the validation section onto validator rules.
func (c *Config) Rules() validation.Rules {
	v := c.Validation
	return validation.Rules{
		Enabled:                 v.Enabled,
		AllowMintAuthority:      v.AllowMintAuthority,
		AllowFreezeAuthority:    v.AllowFreezeAuthority,
		AllowNotInitialized:     v.AllowNotInitialized,
		AllowMutableMetadata:    v.AllowMutableMetadata,
		AllowRugged:             v.AllowRugged,
		AllowInsiderHolders:     v.AllowInsiderHolders,
		MaxTopHolderPct:         v.MaxTopHolderPct,
		ExcludeLPFromTopHolders: v.ExcludeLPFromTopHolders,
		MinMarkets:              v.MinMarkets,
		MinLPProviders:          v.MinLPProviders,
		MinMarketLiquidityUSD:   v.MinMarketLiquidityUSD,
		BlockedSymbols:          v.BlockedSymbols,
		BlockedNames:            v.BlockedNames,
		BlockReturningNames:     v.BlockReturningNames,
		BlockReturningCreators:  v.BlockReturningCreators,
		MaxScore:                v.MaxScore,
		DisallowedRisks:         v.DisallowedRisks,
	}
}

// AggregatorPolicy returns the exponential retry policy for aggregator calls.
func (c *Config) AggregatorPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
		Multiplier: c.Retry.Multiplier,
	}
}

// RiskReportPolicy returns the fixed retry policy for risk report fetches.
func (c *Config) RiskReportPolicy() retry.Policy {
	return retry.Fixed(c.RugCheck.MaxRetries, c.RugCheck.RetryDelay)
}
