// Package main provides the trader CLI: validate a token, then buy or sell it
// across every configured wallet.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a YAML/JSON/TOML config file; TRADER_* env vars override it",
		EnvVars: []string{"TRADER_CONFIG"},
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "serve Prometheus metrics on this address while the command runs (overrides metrics.addr)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "trace, debug, info, warn or error (overrides log.level)",
	}
	memoryFlag = &cli.BoolFlag{
		Name:  "memory",
		Usage: "use in-memory stores even when postgres.dsn is set",
	}
	mintFlag = &cli.StringFlag{
		Name:     "mint",
		Usage:    "token mint address",
		Required: true,
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fatal(fmt.Errorf("load .env: %w", err))
	}

	app := cli.NewApp()
	app.Name = "trader"
	app.Usage = "validate Solana tokens and swap them across a set of wallets"
	app.Flags = []cli.Flag{configFlag, metricsAddrFlag, logLevelFlag, memoryFlag}
	app.Commands = append(
		app.Commands,
		&buy,
		&sell,
		&validate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		if msg := exit.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "[trader] %s\n", msg)
		}
		os.Exit(exit.ExitCode())
	}
	log.WithError(err).Error("trader failed")
	os.Exit(1)
}
