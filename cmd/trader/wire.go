package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"solana-token-trader/internal/balance"
	"solana-token-trader/internal/config"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/rugcheck"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/storage/memory"
	"solana-token-trader/internal/storage/migrations"
	pgstore "solana-token-trader/internal/storage/postgres"
	"solana-token-trader/internal/swap"
	"solana-token-trader/internal/validation"
)

// trader holds the wired pipeline for one command invocation.
type trader struct {
	cfg          *config.Config
	logger       *log.Logger
	wallets      []domain.Wallet
	rpc          *solana.HTTPClient
	guard        *balance.Guard
	validator    *validation.Validator
	orchestrator *orchestrator.Orchestrator
	stores       stores

	closers []func()
}

type stores struct {
	tokens       storage.TokenStore
	holdings     storage.HoldingStore
	transactions storage.TransactionStore
}

// Close releases every resource opened by setup, in reverse order.
func (t *trader) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
}

// params are the per-invocation trade parameters from config.
func (t *trader) params() orchestrator.TradeParams {
	return orchestrator.TradeParams{
		SlippageBps:  t.cfg.Trade.SlippageBps,
		FeeBudget:    t.cfg.Trade.FeeBudgetLamports,
		PriorityTier: t.cfg.Tier(),
	}
}

func setup(c *cli.Context) (*trader, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if level := c.String(logLevelFlag.Name); level != "" {
		cfg.Log.Level = level
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	wallets, err := cfg.ParseWallets()
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}

	t := &trader{cfg: cfg, logger: logger, wallets: wallets}

	if cfg.Metrics.Addr != "" {
		t.closers = append(t.closers, serveMetrics(cfg.Metrics.Addr, logger))
	}

	t.stores, err = t.openStores(c.Context, c.Bool(memoryFlag.Name))
	if err != nil {
		t.Close()
		return nil, err
	}

	t.rpc = solana.NewHTTPClient(cfg.RPC.URL,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithRetryDelay(cfg.RPC.RetryDelay),
		solana.WithRateLimit(cfg.RPC.RateLimit),
		solana.WithCommitment(cfg.RPC.Commitment),
	)
	jup := jupiter.NewClient(cfg.Jupiter.URL,
		jupiter.WithTimeout(cfg.Jupiter.Timeout),
		jupiter.WithAPIKey(cfg.Jupiter.APIKey),
		jupiter.WithRateLimit(cfg.Jupiter.RateLimit),
	)
	rug := rugcheck.NewClient(cfg.RugCheck.URL,
		rugcheck.WithTimeout(cfg.RugCheck.Timeout),
		rugcheck.WithAPIKey(cfg.RugCheck.APIKey),
		rugcheck.WithRateLimit(cfg.RugCheck.RateLimit),
	)

	riskPolicy := cfg.RiskReportPolicy()
	t.validator = validation.New(validation.Options{
		Source: rug,
		Tokens: t.stores.tokens,
		Rules:  cfg.Rules(),
		Retry:  &riskPolicy,
		Logger: logger.WithField("component", "validation"),
	})
	t.guard = balance.NewGuard(t.rpc,
		balance.WithBaseFee(cfg.Trade.BaseFeeLamports),
		balance.WithSafetyBuffer(cfg.Trade.SafetyBufferLamports),
	)

	policy := cfg.AggregatorPolicy()
	swapLog := logger.WithField("component", "swap")
	t.orchestrator = orchestrator.New(orchestrator.Options{
		Validator: t.validator,
		Balance:   t.guard,
		Quotes:    swap.NewQuoteResolver(jup, swap.WithQuotePolicy(policy), swap.WithQuoteLogger(swapLog)),
		Submitter: swap.NewSubmitter(jup, t.rpc,
			swap.WithBuildPolicy(policy),
			swap.WithSendRetries(cfg.Trade.SendRetries),
			swap.WithSubmitterLogger(swapLog),
		),
		Tracker: swap.NewConfirmationTracker(t.rpc,
			swap.WithPollDelay(cfg.Confirmation.PollDelay),
			swap.WithMaxAttempts(cfg.Confirmation.MaxAttempts),
			swap.WithTrackerLogger(swapLog),
		),
		Exclusions: swap.NewExclusionResolver(t.rpc, jup,
			swap.WithResolverPolicy(policy),
			swap.WithResolverLogger(swapLog),
		),
		Wallets:         wallets,
		Transactions:    t.stores.transactions,
		Holdings:        t.stores.holdings,
		Notifier:        newNotifier(cfg.Telegram, logger),
		RecheckTimedOut: cfg.Trade.RecheckTimedOut,
		Logger:          logger.WithField("component", "orchestrator"),
	})

	return t, nil
}

func newLogger(cfg config.LogConfig) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.JSON {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func (t *trader) openStores(ctx context.Context, forceMemory bool) (stores, error) {
	if forceMemory || t.cfg.Postgres.DSN == "" {
		t.logger.Info("using in-memory stores")
		return stores{
			tokens:       memory.NewTokenStore(),
			holdings:     memory.NewHoldingStore(),
			transactions: memory.NewTransactionStore(),
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, t.cfg.Postgres.DSN, pgstore.WithMaxConns(t.cfg.Postgres.MaxConns))
	if err != nil {
		return stores{}, err
	}
	t.closers = append(t.closers, pool.Close)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return stores{}, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		t.logger.WithField("migrations", applied).Info("applied postgres migrations")
	}

	return stores{
		tokens:       pgstore.NewTokenStore(pool),
		holdings:     pgstore.NewHoldingStore(pool),
		transactions: pgstore.NewTransactionStore(pool),
	}, nil
}

func newNotifier(cfg config.TelegramConfig, logger *log.Logger) notify.Notifier {
	if cfg.Token == "" {
		return notify.Log{Logger: logger.WithField("component", "notify")}
	}
	chats := map[string]string{}
	if cfg.TradesChat != "" {
		chats[notify.ChannelTrades] = cfg.TradesChat
	}
	if cfg.AlertsChat != "" {
		chats[notify.ChannelAlerts] = cfg.AlertsChat
	}
	return notify.NewTelegram(notify.TelegramConfig{
		BaseURL:     cfg.URL,
		Token:       cfg.Token,
		DefaultChat: cfg.DefaultChat,
		Chats:       chats,
	}, notify.WithLogger(logger.WithField("component", "telegram")))
}

// serveMetrics exposes /metrics and /health until the returned func is called.
func serveMetrics(addr string, logger *log.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.WithField("addr", addr).Info("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server error")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
