package jupiter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"solana-token-trader/internal/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// quoteResponse is the raw /quote body. Amounts are decimal strings.
type quoteResponse struct {
	errorResponse
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []routePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
}

type routePlanStep struct {
	SwapInfo struct {
		AmmKey     string `json:"ammKey"`
		Label      string `json:"label"`
		InputMint  string `json:"inputMint"`
		OutputMint string `json:"outputMint"`
		InAmount   string `json:"inAmount"`
		OutAmount  string `json:"outAmount"`
	} `json:"swapInfo"`
	Percent int `json:"percent"`
}

func (r *quoteResponse) toDomain(raw []byte) (*domain.Quote, error) {
	in, err := parseAmount("inAmount", r.InAmount)
	if err != nil {
		return nil, err
	}
	out, err := parseAmount("outAmount", r.OutAmount)
	if err != nil {
		return nil, err
	}
	threshold, err := parseAmount("otherAmountThreshold", r.OtherAmountThreshold)
	if err != nil {
		return nil, err
	}
	if len(r.RoutePlan) == 0 {
		return nil, fmt.Errorf("%w: quote has an empty route plan", ErrMalformedResponse)
	}

	q := &domain.Quote{
		InputMint:            r.InputMint,
		OutputMint:           r.OutputMint,
		InAmount:             in,
		OutAmount:            out,
		OtherAmountThreshold: threshold,
		SlippageBps:          r.SlippageBps,
		PriceImpactPct:       r.PriceImpactPct,
		ContextSlot:          r.ContextSlot,
		Raw:                  json.RawMessage(append([]byte(nil), raw...)),
	}
	for _, step := range r.RoutePlan {
		hopIn, _ := strconv.ParseUint(step.SwapInfo.InAmount, 10, 64)
		hopOut, _ := strconv.ParseUint(step.SwapInfo.OutAmount, 10, 64)
		q.Route = append(q.Route, domain.RouteHop{
			AmmKey:     step.SwapInfo.AmmKey,
			Label:      step.SwapInfo.Label,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
			InAmount:   hopIn,
			OutAmount:  hopOut,
			Percent:    step.Percent,
		})
	}
	return q, nil
}

func parseAmount(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedResponse, field, s)
	}
	return v, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	DynamicSlippage           bool            `json:"dynamicSlippage"`
	PrioritizationFeeLamports struct {
		PriorityLevelWithMaxLamports struct {
			MaxLamports   uint64 `json:"maxLamports"`
			PriorityLevel string `json:"priorityLevel"`
		} `json:"priorityLevelWithMaxLamports"`
	} `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	errorResponse
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}
