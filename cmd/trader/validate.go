package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var validate = cli.Command{
	Name:   "validate",
	Usage:  "evaluate the pre-trade rules for a token without trading",
	Flags:  []cli.Flag{mintFlag},
	Action: validateAction,
}

func validateAction(c *cli.Context) error {
	t, err := setup(c)
	if err != nil {
		return err
	}
	defer t.Close()

	decision, err := t.validator.Validate(c.Context, c.String(mintFlag.Name))
	if err != nil {
		return err
	}

	fmt.Printf("Token %s\n", decision.Mint)
	if decision.Unavailable {
		fmt.Println("  risk report unavailable, trading would proceed")
	}
	for _, r := range decision.Results {
		mark := "ok  "
		if r.Violated {
			mark = "FAIL"
		}
		fmt.Printf("  [%s] %-26s %s\n", mark, r.Rule, r.Message)
	}
	if decision.Advisory {
		fmt.Println("  validation disabled: advisory only")
	}

	if !decision.Passed() {
		return cli.Exit("rejected: "+decision.Summary(), 1)
	}
	fmt.Println("  passed")
	return nil
}
