package swap

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/solana"
)

var errTransactionUnavailable = errors.New("transaction not available")

// ExclusionResolver inspects a failed transaction and names the venues
// implicated in the failure.
type ExclusionResolver struct {
	fetcher solana.TransactionFetcher
	labeler VenueLabeler
	policy  retry.Policy
	logger  logrus.FieldLogger

	mu     sync.Mutex
	labels map[string]string
}

// ResolverOption configures ExclusionResolver.
type ResolverOption func(*ExclusionResolver)

// WithResolverPolicy overrides the retry policy for fetches and label lookups.
func WithResolverPolicy(p retry.Policy) ResolverOption {
	return func(r *ExclusionResolver) {
		r.policy = p
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l logrus.FieldLogger) ResolverOption {
	return func(r *ExclusionResolver) {
		r.logger = l
	}
}

// NewExclusionResolver creates a new ExclusionResolver.
func NewExclusionResolver(fetcher solana.TransactionFetcher, labeler VenueLabeler, opts ...ResolverOption) *ExclusionResolver {
	r := &ExclusionResolver{
		fetcher: fetcher,
		labeler: labeler,
		policy:  DefaultPolicy(),
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveExclusions returns the venue labels of the programs implicated in
// the failure of signature. Any lookup failure yields an empty set.
func (r *ExclusionResolver) ResolveExclusions(ctx context.Context, signature string) domain.ExclusionSet {
	set := domain.NewExclusionSet()
	log := r.logger.WithField("signature", signature)

	tx, err := retry.Do(ctx, r.policy, retry.Always, func(ctx context.Context, _ int) (*solana.Transaction, error) {
		tx, err := r.fetcher.GetTransaction(ctx, signature)
		if err == nil && (tx == nil || tx.Message == nil) {
			err = errTransactionUnavailable
		}
		return tx, err
	})
	if err != nil {
		log.WithError(err).Warn("failed transaction unavailable, no venues excluded")
		return set
	}

	programs := ImplicatedPrograms(tx)
	if len(programs) == 0 {
		log.Warn("no programs found in failed transaction")
		return set
	}

	labels, err := r.venueLabels(ctx)
	if err != nil {
		log.WithError(err).Warn("venue labels unavailable, no venues excluded")
		return set
	}

	for _, program := range programs {
		set.Add(labels[program])
	}

	venues := set.List()
	observability.RecordExcludedVenues(venues)
	log.WithFields(logrus.Fields{
		"programs": strings.Join(programs, ","),
		"venues":   strings.Join(venues, ","),
	}).Info("resolved failed venues")
	return set
}

// venueLabels returns the cached program-id map, fetching it on first use.
func (r *ExclusionResolver) venueLabels(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	cached := r.labels
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	labels, err := retry.Do(ctx, r.policy, jupiter.IsTransport, func(ctx context.Context, _ int) (map[string]string, error) {
		return r.labeler.ProgramIDToLabel(ctx)
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.labels = labels
	r.mu.Unlock()
	return labels, nil
}

// ImplicatedPrograms returns the program ids to blame for a failed
// transaction, in first-seen order. The instruction named by the
// InstructionError and its inner instructions come first, then programs
// whose log line reports a failure. When neither can be determined every
// invoked program is returned.
func ImplicatedPrograms(tx *solana.Transaction) []string {
	var out orderedSet
	if tx == nil || tx.Message == nil {
		return nil
	}

	if idx, ok := failedInstruction(tx); ok {
		if idx < len(tx.Message.Instructions) {
			out.add(tx.ProgramID(tx.Message.Instructions[idx]))
		}
		for _, inner := range tx.Meta.InnerInstructions {
			if inner.Index != idx {
				continue
			}
			for _, ix := range inner.Instructions {
				out.add(tx.ProgramID(ix))
			}
		}
	}
	if tx.Meta != nil {
		for _, line := range tx.Meta.LogMessages {
			if program, ok := failedProgramLog(line); ok {
				out.add(program)
			}
		}
	}
	if len(out.items) > 0 {
		return out.items
	}

	for _, ix := range tx.Message.Instructions {
		out.add(tx.ProgramID(ix))
	}
	if tx.Meta != nil {
		for _, inner := range tx.Meta.InnerInstructions {
			for _, ix := range inner.Instructions {
				out.add(tx.ProgramID(ix))
			}
		}
	}
	return out.items
}

// failedInstruction extracts the index from {"InstructionError":[idx, detail]}.
func failedInstruction(tx *solana.Transaction) (int, bool) {
	if tx.Meta == nil || tx.Message == nil {
		return 0, false
	}
	m, ok := tx.Meta.Err.(map[string]interface{})
	if !ok {
		return 0, false
	}
	pair, ok := m["InstructionError"].([]interface{})
	if !ok || len(pair) == 0 {
		return 0, false
	}
	switch idx := pair[0].(type) {
	case float64:
		if idx >= 0 {
			return int(idx), true
		}
	case int:
		if idx >= 0 {
			return idx, true
		}
	}
	return 0, false
}

// failedProgramLog matches "Program <id> failed: <reason>".
func failedProgramLog(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "Program" || !strings.HasPrefix(fields[2], "failed") {
		return "", false
	}
	return fields[1], true
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}
