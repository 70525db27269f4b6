package domain

import "encoding/json"

// Quote is an aggregator price quote for a single swap.
// Immutable once returned; consumed by exactly one assembly attempt.
type Quote struct {
	InputMint            string     // asset sold
	OutputMint           string     // asset bought
	InAmount             uint64     // raw input amount
	OutAmount            uint64     // raw quoted output amount
	OtherAmountThreshold uint64     // minimum output after slippage
	SlippageBps          int        // slippage tolerance in basis points
	PriceImpactPct       string     // as reported by the aggregator
	Route                []RouteHop // ordered venue hops
	ContextSlot          uint64     // slot the quote was computed against
	Raw                  json.RawMessage
}

// RouteHop is one venue traversal in a quoted route.
type RouteHop struct {
	AmmKey     string // pool address
	Label      string // venue label, e.g. "Raydium"
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	Percent    int // share of the input routed through this hop
}

// Venues returns the distinct venue labels traversed by the route, in route order.
func (q *Quote) Venues() []string {
	seen := make(map[string]bool, len(q.Route))
	venues := make([]string, 0, len(q.Route))
	for _, hop := range q.Route {
		if hop.Label == "" || seen[hop.Label] {
			continue
		}
		seen[hop.Label] = true
		venues = append(venues, hop.Label)
	}
	return venues
}

// Traverses reports whether any hop of the route uses a venue in the set.
func (q *Quote) Traverses(set ExclusionSet) bool {
	for _, hop := range q.Route {
		if set.Contains(hop.Label) {
			return true
		}
	}
	return false
}
