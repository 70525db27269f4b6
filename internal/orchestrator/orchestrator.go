// Package orchestrator drives the trade pipeline across configured wallets.
// Per wallet: balance guard → quote → build/sign/submit → confirm, with one
// route-exclusion retry when the first confirmation does not succeed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/swap"
)

// maxSubmissions bounds submissions per wallet: the first attempt plus one exclusion retry.
const maxSubmissions = 2

// Validator decides whether a token may be traded.
type Validator interface {
	Validate(ctx context.Context, mint string) (*domain.ValidationDecision, error)
}

// BalanceGuard checks wallet funding before an attempt.
type BalanceGuard interface {
	CheckBalance(ctx context.Context, wallet, mint string, requiredTokenAmount, maxFeeBudget uint64) (*domain.BalanceCheck, error)
	CheckNative(ctx context.Context, wallet string, spendLamports, maxFeeBudget uint64) (*domain.BalanceCheck, error)
}

// QuoteResolver fetches routes.
type QuoteResolver interface {
	GetQuote(ctx context.Context, req swap.QuoteRequest) (*domain.Quote, error)
}

// Submitter builds, signs and broadcasts a swap.
type Submitter interface {
	BuildAndSubmit(ctx context.Context, quote *domain.Quote, wallet domain.Wallet, feeBudget uint64, tier domain.PriorityTier) (*domain.SubmissionResult, error)
}

// ConfirmationTracker polls a submission to a terminal state.
type ConfirmationTracker interface {
	Confirm(ctx context.Context, sub *domain.SubmissionResult) domain.ConfirmationOutcome
	Recheck(ctx context.Context, sub *domain.SubmissionResult) domain.ConfirmationOutcome
}

// ExclusionResolver names the venues implicated in a failed transaction.
type ExclusionResolver interface {
	ResolveExclusions(ctx context.Context, signature string) domain.ExclusionSet
}

// Options for creating Orchestrator.
type Options struct {
	// Pipeline stages
	Validator  Validator
	Balance    BalanceGuard
	Quotes     QuoteResolver
	Submitter  Submitter
	Tracker    ConfirmationTracker
	Exclusions ExclusionResolver

	// Wallets are traded in order, one at a time.
	Wallets []domain.Wallet

	// Optional collaborators
	Transactions storage.TransactionStore
	Holdings     storage.HoldingStore
	Notifier     notify.Notifier

	// RecheckTimedOut polls a timed-out submission once more before retrying.
	RecheckTimedOut bool

	Logger   logrus.FieldLogger
	Now      func() time.Time
	NewRunID func() string
}

// Orchestrator sequences the pipeline stages for every wallet.
type Orchestrator struct {
	validator  Validator
	balance    BalanceGuard
	quotes     QuoteResolver
	submitter  Submitter
	tracker    ConfirmationTracker
	exclusions ExclusionResolver

	wallets []domain.Wallet

	transactions storage.TransactionStore
	holdings     storage.HoldingStore
	notifier     notify.Notifier

	recheckTimedOut bool

	logger   logrus.FieldLogger
	now      func() time.Time
	newRunID func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		validator:       opts.Validator,
		balance:         opts.Balance,
		quotes:          opts.Quotes,
		submitter:       opts.Submitter,
		tracker:         opts.Tracker,
		exclusions:      opts.Exclusions,
		wallets:         opts.Wallets,
		transactions:    opts.Transactions,
		holdings:        opts.Holdings,
		notifier:        opts.Notifier,
		recheckTimedOut: opts.RecheckTimedOut,
		logger:          opts.Logger,
		now:             opts.Now,
		newRunID:        opts.NewRunID,
	}
	if o.notifier == nil {
		o.notifier = notify.Nop{}
	}
	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	return o
}

// Buy spends lamports of native SOL on mint from every wallet.
func (o *Orchestrator) Buy(ctx context.Context, mint string, lamports uint64, params TradeParams) (*domain.RunResult, error) {
	return o.Execute(ctx, params.request(mint, domain.SideBuy, lamports))
}

// Sell disposes of amount raw units of mint from every wallet; zero sells the full balance.
func (o *Orchestrator) Sell(ctx context.Context, mint string, amount uint64, params TradeParams) (*domain.RunResult, error) {
	return o.Execute(ctx, params.request(mint, domain.SideSell, amount))
}

// TradeParams are the per-invocation execution parameters shared by all wallets.
type TradeParams struct {
	SlippageBps  int
	FeeBudget    uint64
	PriorityTier domain.PriorityTier
}

func (p TradeParams) request(mint string, side domain.TradeSide, amount uint64) domain.TradeRequest {
	return domain.TradeRequest{
		Mint:         mint,
		Side:         side,
		Amount:       amount,
		SlippageBps:  p.SlippageBps,
		FeeBudget:    p.FeeBudget,
		PriorityTier: p.PriorityTier,
	}
}

// Execute validates the token once, then runs the pipeline for each wallet
// sequentially, continuing past per-wallet failures. Validation is not repeated
// per wallet because the decision depends only on the token. The returned error is
// reserved for invalid requests and cancellation; trade failures are reported
// through the per-wallet outcomes.
func (o *Orchestrator) Execute(ctx context.Context, req domain.TradeRequest) (*domain.RunResult, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	start := o.now()
	result := &domain.RunResult{RunID: o.newRunID(), Mint: req.Mint, Side: req.Side}
	log := o.logger.WithFields(logrus.Fields{"run_id": result.RunID, "mint": req.Mint, "side": req.Side})

	// Phase 1: validation
	log.Info("validating token")
	decision, err := o.validator.Validate(ctx, req.Mint)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", req.Mint, err)
	}
	result.Decision = decision
	if err := result.Err(); err != nil {
		log.WithError(err).WithField("kind", domain.KindOf(err)).Warn("token rejected, no wallet attempted")
		o.notify(ctx, log, notify.ChannelAlerts, fmt.Sprintf("%s %s rejected: %s", req.Side, domain.ShortAddress(req.Mint), decision.Summary()))
		observability.RecordTradeRun(string(req.Side), "rejected", o.now().Sub(start).Seconds())
		return result, nil
	}

	// Phase 2: wallets, one at a time
	for _, wallet := range o.wallets {
		if ctx.Err() != nil {
			break
		}
		outcome := o.runWalletSafe(ctx, log, wallet, req)
		observability.RecordWalletOutcome(string(req.Side), string(outcome.Kind))
		result.Outcomes = append(result.Outcomes, outcome)
	}
	result.Tally()

	status := "failed"
	if result.Success() {
		status = "succeeded"
		observability.MarkTradeSucceeded(o.now().Unix())
	}
	observability.RecordTradeRun(string(req.Side), status, o.now().Sub(start).Seconds())
	log.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"attempted": result.Attempted,
	}).Info("run completed")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// RunWallet runs the pipeline for a single wallet. The token is assumed validated.
func (o *Orchestrator) RunWallet(ctx context.Context, wallet domain.Wallet, req domain.TradeRequest) domain.WalletOutcome {
	return o.runWalletSafe(ctx, o.logger, wallet, req)
}

// runWalletSafe converts a panic in any stage into an Unexpected failure for this wallet.
func (o *Orchestrator) runWalletSafe(ctx context.Context, log logrus.FieldLogger, wallet domain.Wallet, req domain.TradeRequest) (outcome domain.WalletOutcome) {
	log = log.WithField("wallet", wallet.String())
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("wallet pipeline panicked")
			outcome.Success = false
			outcome.Kind = domain.KindUnexpected
			outcome.Reason = fmt.Sprintf("unexpected failure: %v", r)
		}
	}()
	outcome = domain.WalletOutcome{Wallet: wallet.String()}
	o.runWallet(ctx, log, wallet, req, &outcome)
	return outcome
}

func (o *Orchestrator) runWallet(ctx context.Context, log logrus.FieldLogger, wallet domain.Wallet, req domain.TradeRequest, outcome *domain.WalletOutcome) {
	amount, decimals, ok := o.guard(ctx, log, wallet, req, outcome)
	if !ok {
		return
	}

	exclusions := domain.NewExclusionSet()
	for outcome.Attempts < maxSubmissions {
		retrying := outcome.Attempts > 0
		alog := log.WithField("attempt", outcome.Attempts+1)

		quote, err := o.quotes.GetQuote(ctx, swap.QuoteRequest{
			InputMint:   req.InputMint(),
			OutputMint:  req.OutputMint(),
			Amount:      amount,
			SlippageBps: req.SlippageBps,
			Exclusions:  exclusions,
		})
		if err != nil {
			o.fail(alog, outcome, "quote", err)
			return
		}

		sub, err := o.submitter.BuildAndSubmit(ctx, quote, wallet, req.FeeBudget, req.PriorityTier)
		if err != nil {
			o.fail(alog, outcome, "submit", err)
			return
		}
		outcome.Attempts++
		outcome.Signature = sub.TransactionID
		alog = alog.WithField("signature", sub.TransactionID)

		conf := o.tracker.Confirm(ctx, sub)
		if conf.State == domain.ConfirmationTimedOut && o.recheckTimedOut {
			alog.Warn("confirmation timed out, rechecking before retry")
			conf = o.tracker.Recheck(ctx, sub)
		}
		if conf.Confirmed() {
			outcome.Success = true
			outcome.Reason = ""
			outcome.Kind = ""
			outcome.InAmount = quote.InAmount
			outcome.OutAmount = quote.OutAmount
			alog.WithField("route", quote.Venues()).Info("trade confirmed")
			o.record(ctx, alog, wallet, req, quote, sub, decimals)
			return
		}

		o.fail(alog, outcome, "confirm", conf.Err())
		if retrying || ctx.Err() != nil {
			return
		}

		// a timed-out transaction is usually not yet fetchable, which resolves to no exclusions
		exclusions = exclusions.Union(o.exclusions.ResolveExclusions(ctx, sub.TransactionID))
		outcome.Excluded = exclusions.List()
		alog.WithField("excluded", outcome.Excluded).Warn("retrying with route exclusions")
	}
}

// guard applies the balance precondition and returns the amount to trade.
func (o *Orchestrator) guard(ctx context.Context, log logrus.FieldLogger, wallet domain.Wallet, req domain.TradeRequest, outcome *domain.WalletOutcome) (uint64, uint8, bool) {
	if req.Side == domain.SideBuy {
		check, err := o.balance.CheckNative(ctx, wallet.PublicKey, req.Amount, req.FeeBudget)
		if err != nil {
			o.fail(log, outcome, "balance", err)
			return 0, 0, false
		}
		if !check.OK {
			o.fail(log, outcome, "balance", domain.NewTradeError(domain.KindInsufficientFunds, "balance", errors.New(check.Reason)))
			return 0, 0, false
		}
		return req.Amount, 0, true
	}

	check, err := o.balance.CheckBalance(ctx, wallet.PublicKey, req.Mint, req.Amount, req.FeeBudget)
	if err != nil {
		o.fail(log, outcome, "balance", err)
		return 0, 0, false
	}
	if !check.OK {
		o.fail(log, outcome, "balance", domain.NewTradeError(domain.KindInsufficientFunds, "balance", errors.New(check.Reason)))
		return 0, 0, false
	}
	amount := req.Amount
	if amount == 0 {
		amount = check.Snapshot.TokenRaw
	}
	return amount, check.Snapshot.TokenDecimals, true
}

func (o *Orchestrator) fail(log logrus.FieldLogger, outcome *domain.WalletOutcome, stage string, err error) {
	outcome.Success = false
	outcome.Kind = domain.KindOf(err)
	outcome.Reason = err.Error()
	var te *domain.TradeError
	if !errors.As(err, &te) {
		outcome.Reason = fmt.Sprintf("%s: %v", stage, err)
	}

	entry := log.WithError(err).WithFields(logrus.Fields{"stage": stage, "kind": outcome.Kind})
	switch outcome.Kind {
	case domain.KindConfirmationTimedOut:
		entry.WithField("outcome", "timed_out").Warn("wallet attempt failed")
	case domain.KindConfirmationFailed:
		entry.WithField("outcome", "failed").Error("wallet attempt failed")
	default:
		if outcome.Kind.Fatal() {
			entry.Error("wallet attempt failed")
		} else {
			entry.Warn("wallet attempt failed")
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, log logrus.FieldLogger, channel, message string) {
	if err := o.notifier.Notify(ctx, channel, message); err != nil {
		log.WithError(err).WithField("channel", channel).Warn("notification failed")
	}
}

func checkRequest(req domain.TradeRequest) error {
	if err := solana.ValidateMint(req.Mint); err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	switch req.Side {
	case domain.SideBuy:
		if req.Amount == 0 {
			return errors.New("buy amount must be positive")
		}
	case domain.SideSell:
	default:
		return fmt.Errorf("unknown trade side %q", req.Side)
	}
	if req.SlippageBps <= 0 || req.SlippageBps > 10_000 {
		return fmt.Errorf("slippage must be in (0, 10000] bps, got %d", req.SlippageBps)
	}
	if req.Mint == domain.WSOLMint {
		return errors.New("cannot trade the native mint against itself")
	}
	return nil
}
