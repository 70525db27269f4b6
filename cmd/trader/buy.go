package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"solana-token-trader/internal/domain"
)

var buy = cli.Command{
	Name:  "buy",
	Usage: "validate a token and buy it from every configured wallet",
	Flags: []cli.Flag{
		mintFlag,
		&cli.StringFlag{
			Name:  "amount-sol",
			Usage: "SOL to spend per wallet (defaults to trade.buy_amount_sol)",
		},
	},
	Action: buyAction,
}

func buyAction(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	defer t.Close()

	lamports, err := t.cfg.BuyLamports()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if s := c.String("amount-sol"); s != "" {
		sol, err := decimal.NewFromString(s)
		if err != nil || !sol.IsPositive() {
			return cli.Exit(fmt.Sprintf("invalid --amount-sol %q", s), 2)
		}
		if lamports, err = domain.SOLToLamports(sol); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	result, err := t.orchestrator.Buy(c.Context, c.String(mintFlag.Name), lamports, t.params())
	if err != nil {
		return err
	}
	return report(result)
}
