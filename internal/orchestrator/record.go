package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/idhash"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/storage"
)

const explorerTxURL = "https://solscan.io/tx/"

// record persists a confirmed swap and announces it. Failures here never
// change the wallet outcome; they are logged and dropped.
func (o *Orchestrator) record(
	ctx context.Context,
	log logrus.FieldLogger,
	wallet domain.Wallet,
	req domain.TradeRequest,
	quote *domain.Quote,
	sub *domain.SubmissionResult,
	decimals uint8,
) {
	confirmedAt := o.now().UnixMilli()

	if o.transactions != nil {
		rec := &domain.TransactionRecord{
			TradeID:     idhash.ComputeTradeID(wallet.PublicKey, req.Mint, req.Side, sub.TransactionID),
			Signature:   sub.TransactionID,
			Wallet:      wallet.PublicKey,
			Mint:        req.Mint,
			Side:        req.Side,
			InputMint:   quote.InputMint,
			OutputMint:  quote.OutputMint,
			InAmount:    quote.InAmount,
			OutAmount:   quote.OutAmount,
			Venues:      quote.Venues(),
			ConfirmedAt: confirmedAt,
		}
		if err := o.transactions.Insert(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.WithError(err).Error("failed to persist transaction")
		}
	}

	if o.holdings != nil {
		var err error
		if req.Side == domain.SideBuy {
			err = o.holdings.Insert(ctx, &domain.HoldingRecord{
				Wallet:     wallet.PublicKey,
				Mint:       req.Mint,
				Amount:     quote.OutAmount,
				SolPaid:    quote.InAmount,
				Signature:  sub.TransactionID,
				FeeBudget:  sub.FeeBudget,
				AcquiredAt: confirmedAt,
			})
		} else {
			err = o.reduceHolding(ctx, wallet.PublicKey, req.Mint, quote.InAmount)
		}
		if err != nil {
			log.WithError(err).Error("failed to update holding")
		}
	}

	o.notify(ctx, log, notify.ChannelTrades, tradeMessage(wallet, req, quote, sub, decimals))
}

// reduceHolding removes sold tokens from the position. A sell without a
// recorded position leaves nothing to reduce.
func (o *Orchestrator) reduceHolding(ctx context.Context, wallet, mint string, sold uint64) error {
	err := o.holdings.Reduce(ctx, wallet, mint, sold)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reduce holding: %w", err)
	}
	return nil
}

func tradeMessage(wallet domain.Wallet, req domain.TradeRequest, quote *domain.Quote, sub *domain.SubmissionResult, decimals uint8) string {
	var what string
	if req.Side == domain.SideBuy {
		what = fmt.Sprintf("bought %d raw %s for %s SOL",
			quote.OutAmount, domain.ShortAddress(req.Mint), domain.LamportsToSOL(quote.InAmount).String())
	} else {
		what = fmt.Sprintf("sold %s %s for %s SOL",
			domain.RawToUI(quote.InAmount, decimals).String(), domain.ShortAddress(req.Mint), domain.LamportsToSOL(quote.OutAmount).String())
	}
	return fmt.Sprintf("%s %s via %v\n%s%s", wallet.String(), what, quote.Venues(), explorerTxURL, sub.TransactionID)
}
