// Package validation decides whether a token is safe to trade from its risk report.
package validation

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/rugcheck"
	"solana-token-trader/internal/storage"
)

// Default report fetch policy.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// RuleReportAvailable is the informational entry of a pass-through decision.
const RuleReportAvailable = "report_available"

// RiskSource fetches risk reports.
type RiskSource interface {
	Report(ctx context.Context, mint string) (*domain.RiskReport, error)
}

// Options configures Validator.
type Options struct {
	Source RiskSource
	Tokens storage.TokenStore // optional; enables returning-token rules and the audit record
	Rules  Rules
	Retry  *retry.Policy // nil uses a fixed DefaultRetryDelay policy
	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Validator evaluates the ordered rule set against a fresh risk report.
type Validator struct {
	source RiskSource
	tokens storage.TokenStore
	rules  Rules
	policy retry.Policy
	logger logrus.FieldLogger
	now    func() time.Time
}

// New creates a new Validator.
func New(opts Options) *Validator {
	v := &Validator{
		source: opts.Source,
		tokens: opts.Tokens,
		rules:  opts.Rules,
		policy: retry.Fixed(DefaultMaxRetries, DefaultRetryDelay),
		logger: opts.Logger,
		now:    opts.Now,
	}
	if opts.Retry != nil {
		v.policy = *opts.Retry
	}
	if v.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		v.logger = l
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Validate fetches the report for mint and evaluates every enabled rule.
// A missing or unreachable report yields a passing, Unavailable decision.
// Only context cancellation is returned as an error.
func (v *Validator) Validate(ctx context.Context, mint string) (*domain.ValidationDecision, error) {
	log := v.logger.WithField("mint", mint)
	decision := &domain.ValidationDecision{Mint: mint, Advisory: !v.rules.Enabled}

	report, err := retry.Do(ctx, v.policy, rugcheck.IsTransport, func(ctx context.Context, attempt int) (*domain.RiskReport, error) {
		report, err := v.source.Report(ctx, mint)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Debug("risk report fetch failed")
		}
		return report, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		decision.Unavailable = true
		decision.Results = []domain.RuleResult{{
			Rule:    RuleReportAvailable,
			Message: "risk report unavailable, trading allowed: " + err.Error(),
		}}
		log.WithError(err).Warn("risk report unavailable, passing token through")
		observability.RecordValidation("unavailable", nil)
		return decision, nil
	}
	if report.Mint == "" {
		report.Mint = mint
	}

	for _, r := range ruleSet {
		violated, msg, ok := r.eval(ctx, v, report)
		if !ok {
			continue
		}
		decision.Results = append(decision.Results, domain.RuleResult{Rule: r.name, Violated: violated, Message: msg})
		entry := log.WithField("rule", r.name)
		if violated {
			entry.Info(msg)
		} else {
			entry.Debug(msg)
		}
	}

	violated := ruleNames(decision.Violations())
	outcome := "pass"
	switch {
	case len(violated) > 0 && decision.Advisory:
		outcome = "advisory"
		log.WithField("violations", violated).Warn("validation disabled, violations ignored")
	case len(violated) > 0:
		outcome = "reject"
		log.WithField("violations", violated).Info("token rejected")
	default:
		log.Info("token passed validation")
	}
	observability.RecordValidation(outcome, violated)

	v.record(ctx, report, decision, violated)
	return decision, nil
}

// record persists the token for audit and duplicate detection. Failures are logged only.
func (v *Validator) record(ctx context.Context, report *domain.RiskReport, decision *domain.ValidationDecision, violated []string) {
	if v.tokens == nil {
		return
	}
	err := v.tokens.Insert(ctx, &domain.TokenRecord{
		Mint:       report.Mint,
		Name:       report.Name,
		Symbol:     report.Symbol,
		Creator:    report.Creator,
		Passed:     decision.Passed(),
		Violations: violated,
		CreatedAt:  v.now().UnixMilli(),
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		v.logger.WithError(err).WithField("mint", report.Mint).Warn("persist token record failed")
	}
}

func ruleNames(results []domain.RuleResult) []string {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Rule
	}
	return names
}
