// Package swap turns a trade intent into a confirmed on-chain swap: quote
// resolution, transaction assembly and broadcast, confirmation tracking and
// failed-route inspection.
package swap

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/retry"
)

// Aggregator retry defaults shared by quote, build and label lookups.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultMultiplier = 2.0
)

// DefaultPolicy returns the exponential aggregator retry policy.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
	}
}

// QuoteSource requests aggregator quotes.
type QuoteSource interface {
	Quote(ctx context.Context, p jupiter.QuoteParams) (*domain.Quote, error)
}

// SwapBuilder builds unsigned swap transactions for a quote.
type SwapBuilder interface {
	SwapTransaction(ctx context.Context, p jupiter.SwapParams) (*jupiter.SwapResult, error)
}

// VenueLabeler maps on-chain program ids to venue labels.
type VenueLabeler interface {
	ProgramIDToLabel(ctx context.Context) (map[string]string, error)
}

var _ interface {
	QuoteSource
	SwapBuilder
	VenueLabeler
} = (*jupiter.Client)(nil)

// aggregatorKind classifies an aggregator failure.
func aggregatorKind(err error) domain.ErrorKind {
	switch {
	case jupiter.IsTransport(err), errors.Is(err, jupiter.ErrMalformedResponse):
		return domain.KindTransientNetwork
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.KindTransientNetwork
	default:
		return domain.KindDomainRejected
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
