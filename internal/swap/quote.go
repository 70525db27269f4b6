package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/retry"
)

// ErrExcludedVenue is returned when a quote still routes through an excluded venue.
var ErrExcludedVenue = errors.New("route traverses an excluded venue")

// QuoteRequest is one quote lookup.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
	Exclusions  domain.ExclusionSet // may be nil
}

// QuoteResolver fetches quotes with bounded exponential retry.
// It holds no per-call state and is safe for concurrent use.
type QuoteResolver struct {
	source QuoteSource
	policy retry.Policy
	logger logrus.FieldLogger
}

// QuoteOption configures QuoteResolver.
type QuoteOption func(*QuoteResolver)

// WithQuotePolicy overrides the retry policy.
func WithQuotePolicy(p retry.Policy) QuoteOption {
	return func(r *QuoteResolver) {
		r.policy = p
	}
}

// WithQuoteLogger sets the logger.
func WithQuoteLogger(l logrus.FieldLogger) QuoteOption {
	return func(r *QuoteResolver) {
		r.logger = l
	}
}

// NewQuoteResolver creates a new QuoteResolver.
func NewQuoteResolver(source QuoteSource, opts ...QuoteOption) *QuoteResolver {
	r := &QuoteResolver{
		source: source,
		policy: DefaultPolicy(),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetQuote returns a route for the request. Every failure kind, including no
// route and untradable token, consumes the retry budget. On exhaustion the
// last failure is returned and stays detectable with errors.Is.
func (r *QuoteResolver) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if req.Amount == 0 {
		return nil, domain.NewTradeError(domain.KindDomainRejected, "get quote", errors.New("amount must be positive"))
	}

	log := r.logger.WithFields(logrus.Fields{
		"input_mint":  req.InputMint,
		"output_mint": req.OutputMint,
		"amount":      req.Amount,
	})
	excluded := req.Exclusions.List()
	if len(excluded) > 0 {
		log = log.WithField("excluded", strings.Join(excluded, ","))
	}

	params := jupiter.QuoteParams{
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		Amount:       req.Amount,
		SlippageBps:  req.SlippageBps,
		ExcludeDexes: excluded,
	}

	policy := r.policy
	policy.OnRetry = func(n int, delay time.Duration, err error) {
		log.WithError(err).WithFields(logrus.Fields{"retry": n, "delay": delay}).Warn("quote failed, retrying")
	}

	quote, err := retry.Do(ctx, policy, retry.Always, func(ctx context.Context, attempt int) (*domain.Quote, error) {
		q, err := r.source.Quote(ctx, params)
		if err == nil && q.Traverses(req.Exclusions) {
			err = fmt.Errorf("%w: %s", ErrExcludedVenue, strings.Join(q.Venues(), " -> "))
		}
		observability.RecordQuoteAttempt(err)
		return q, err
	})
	if err != nil {
		kind := aggregatorKind(err)
		if errors.Is(err, ErrExcludedVenue) {
			kind = domain.KindDomainRejected
		}
		log.WithError(err).Warn("quote unavailable")
		return nil, domain.NewTradeError(kind, "get quote", err)
	}

	log.WithFields(logrus.Fields{
		"out_amount": quote.OutAmount,
		"route":      strings.Join(quote.Venues(), " -> "),
	}).Info("quote received")
	return quote, nil
}
