package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"solana-token-trader/internal/domain"
)

var sell = cli.Command{
	Name:  "sell",
	Usage: "sell a token from every configured wallet",
	Flags: []cli.Flag{
		mintFlag,
		&cli.StringFlag{
			Name:  "amount",
			Usage: "UI token amount to sell per wallet; omit to sell the full balance",
		},
	},
	Action: sellAction,
}

func sellAction(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	defer t.Close()

	mint := c.String(mintFlag.Name)
	params := t.params()

	s := c.String("amount")
	if s == "" {
		result, err := t.orchestrator.Sell(c.Context, mint, 0, params)
		if err != nil {
			return err
		}
		return report(result)
	}

	ui, err := decimal.NewFromString(s)
	if err != nil || !ui.IsPositive() {
		return cli.Exit(fmt.Sprintf("invalid --amount %q", s), 2)
	}

	// UI amounts depend on the mint's decimals, which only a funded wallet reveals.
	decimals, err := t.mintDecimals(c, mint)
	if err != nil {
		return err
	}
	raw, err := domain.UIToRaw(ui, decimals)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if raw == 0 {
		return cli.Exit(fmt.Sprintf("--amount %s is below the token's precision", s), 2)
	}

	result, err := t.orchestrator.Sell(c.Context, mint, raw, params)
	if err != nil {
		return err
	}
	return report(result)
}

// mintDecimals reads the token precision from the first wallet holding the mint.
func (t *trader) mintDecimals(c *cli.Context, mint string) (uint8, error) {
	for _, w := range t.wallets {
		snap, err := t.guard.Snapshot(c.Context, w.PublicKey, mint)
		if err != nil {
			t.logger.WithError(err).WithField("wallet", w.String()).Warn("balance snapshot failed")
			continue
		}
		if snap.TokenRaw > 0 {
			return snap.TokenDecimals, nil
		}
	}
	return 0, cli.Exit(fmt.Sprintf("no wallet holds %s", mint), 1)
}
