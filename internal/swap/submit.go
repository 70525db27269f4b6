package swap

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/jupiter"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/solana"
)

// DefaultSendRetries is the node-side rebroadcast budget requested on send.
const DefaultSendRetries = 2

// Submitter builds a swap transaction through the aggregator, signs it
// locally and broadcasts it without preflight simulation.
type Submitter struct {
	builder     SwapBuilder
	broadcaster solana.Broadcaster
	policy      retry.Policy
	sendRetries uint
	logger      logrus.FieldLogger
}

// SubmitterOption configures Submitter.
type SubmitterOption func(*Submitter)

// WithBuildPolicy overrides the build retry policy.
func WithBuildPolicy(p retry.Policy) SubmitterOption {
	return func(s *Submitter) {
		s.policy = p
	}
}

// WithSendRetries sets the node-side send retry count.
func WithSendRetries(n uint) SubmitterOption {
	return func(s *Submitter) {
		s.sendRetries = n
	}
}

// WithSubmitterLogger sets the logger.
func WithSubmitterLogger(l logrus.FieldLogger) SubmitterOption {
	return func(s *Submitter) {
		s.logger = l
	}
}

// NewSubmitter creates a new Submitter.
func NewSubmitter(builder SwapBuilder, broadcaster solana.Broadcaster, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		builder:     builder,
		broadcaster: broadcaster,
		policy:      DefaultPolicy(),
		sendRetries: DefaultSendRetries,
		logger:      discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildAndSubmit converts quote into a signed transaction for wallet and broadcasts it.
func (s *Submitter) BuildAndSubmit(ctx context.Context, quote *domain.Quote, wallet domain.Wallet, feeBudget uint64, tier domain.PriorityTier) (*domain.SubmissionResult, error) {
	log := s.logger.WithFields(logrus.Fields{"wallet": wallet.String(), "fee_budget": feeBudget, "tier": tier})

	policy := s.policy
	policy.OnRetry = func(n int, delay time.Duration, err error) {
		log.WithError(err).WithFields(logrus.Fields{"retry": n, "delay": delay}).Warn("swap build failed, retrying")
	}
	built, err := retry.Do(ctx, policy, jupiter.IsTransport, func(ctx context.Context, _ int) (*jupiter.SwapResult, error) {
		return s.builder.SwapTransaction(ctx, jupiter.SwapParams{
			Quote:                  quote,
			UserPublicKey:          wallet.PublicKey,
			MaxPriorityFeeLamports: feeBudget,
			PriorityLevel:          tier,
		})
	})
	if err != nil {
		return nil, domain.NewTradeError(aggregatorKind(err), "build swap", err)
	}

	signed, err := Sign(built.Transaction, wallet)
	if err != nil {
		return nil, domain.NewTradeError(domain.KindSigningFailure, "sign swap", err)
	}
	signed.LastValidBlockHeight = built.LastValidBlockHeight
	signed.FeeBudget = feeBudget
	signed.PriorityTier = tier

	sig, err := s.broadcaster.SendTransaction(ctx, signed.Raw, solana.SendOptions{
		SkipPreflight: true,
		MaxRetries:    s.sendRetries,
	})
	if err != nil {
		kind := domain.KindTransientNetwork
		if solana.IsRPCError(err) {
			kind = domain.KindDomainRejected
		}
		return nil, domain.NewTradeError(kind, "broadcast", err)
	}
	if sig != signed.Signature {
		log.WithFields(logrus.Fields{"local": signed.Signature, "node": sig}).Warn("node returned a different signature")
	}

	log.WithFields(logrus.Fields{
		"signature":               sig,
		"last_valid_block_height": signed.LastValidBlockHeight,
		"prioritization_fee":      built.PrioritizationFeeLamports,
	}).Info("swap submitted")

	return &domain.SubmissionResult{
		TransactionID:        sig,
		RecentBlockhash:      signed.RecentBlockhash,
		LastValidBlockHeight: signed.LastValidBlockHeight,
		FeeBudget:            feeBudget,
		PriorityTier:         tier,
	}, nil
}

// Sign decodes an aggregator-prepared transaction and signs it with the
// wallet key. The wallet must be the only required signer.
func Sign(raw []byte, wallet domain.Wallet) (*domain.SignedTransaction, error) {
	if len(wallet.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(wallet.PrivateKey))
	}
	key := solanago.PrivateKey(wallet.PrivateKey)
	pub := key.PublicKey()
	if wallet.PublicKey != "" && pub.String() != wallet.PublicKey {
		return nil, errors.New("private key does not match wallet public key")
	}

	tx, err := solanago.TransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if _, err := tx.Sign(func(k solanago.PublicKey) *solanago.PrivateKey {
		if k.Equals(pub) {
			return &key
		}
		return nil
	}); err != nil {
		return nil, err
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	return &domain.SignedTransaction{
		Raw:             wire,
		Signature:       tx.Signatures[0].String(),
		RecentBlockhash: tx.Message.RecentBlockhash.String(),
	}, nil
}
