package domain

import "strings"

// RuleResult is the outcome of one validation rule.
type RuleResult struct {
	Rule     string
	Violated bool
	Message  string // always set, pass or fail
}

// ValidationDecision is the ordered rule evaluation for one token.
type ValidationDecision struct {
	Mint        string
	Results     []RuleResult
	Advisory    bool // validation globally disabled; violations are logged only
	Unavailable bool // no report could be obtained; trading allowed
}

// Passed reports whether trading is approved.
func (d *ValidationDecision) Passed() bool {
	return d.Advisory || len(d.Violations()) == 0
}

// Violations returns the violated rules in evaluation order.
func (d *ValidationDecision) Violations() []RuleResult {
	var out []RuleResult
	for _, r := range d.Results {
		if r.Violated {
			out = append(out, r)
		}
	}
	return out
}

// Summary joins the messages of violated rules.
func (d *ValidationDecision) Summary() string {
	v := d.Violations()
	if len(v) == 0 {
		return "all rules passed"
	}
	msgs := make([]string, len(v))
	for i, r := range v {
		msgs[i] = r.Message
	}
	return strings.Join(msgs, "; ")
}
