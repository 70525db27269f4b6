package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"solana-token-trader/internal/domain"
)

// report prints the run summary and fails the command when no wallet confirmed.
func report(r *domain.RunResult) error {
	fmt.Printf("Run %s: %s %s\n", r.RunID, r.Side, r.Mint)
	if err := r.Err(); err != nil {
		return cli.Exit("rejected: "+err.Error(), 1)
	}

	for _, o := range r.Outcomes {
		if o.Success {
			fmt.Printf("  %-16s confirmed  %s (attempts: %d)\n", o.Wallet, o.Signature, o.Attempts)
			continue
		}
		fmt.Printf("  %-16s failed     %s: %s\n", o.Wallet, o.Kind, o.Reason)
		if len(o.Excluded) > 0 {
			fmt.Printf("  %-16s excluded   %v\n", "", o.Excluded)
		}
	}
	fmt.Printf("  %d/%d wallets succeeded\n", r.Succeeded, r.Attempted)

	if !r.Success() {
		return cli.Exit("", 1)
	}
	return nil
}
