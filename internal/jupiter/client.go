// Package jupiter is an HTTP client for the Jupiter swap aggregator.
//
// Each method performs exactly one request. Failures are tagged so callers
// can decide what to retry: ErrNoRoute and ErrNotTradable for the
// aggregator's own verdicts, *TransportError for network and server faults,
// *APIError for any other rejection, ErrMalformedResponse for bodies that do
// not decode.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/ratelimit"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"
	DefaultTimeout = 15 * time.Second
)

// Tagged failure classes.
var (
	ErrNoRoute           = errors.New("no route found")
	ErrNotTradable       = errors.New("token not tradable")
	ErrMalformedResponse = errors.New("malformed aggregator response")
)

// TransportError is a network failure, a 429 or a 5xx.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jupiter %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("jupiter %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a 4xx rejection that is neither a missing route nor an untradable token.
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter %s: status %d: %s %s", e.Op, e.StatusCode, e.Code, e.Message)
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client talks to the aggregator REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter ratelimit.Limiter
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.client.Timeout = d
	}
}

// WithAPIKey sends the key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(cl *Client) {
		cl.apiKey = key
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables pacing.
func WithRateLimit(rps int) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = ratelimit.New(rps)
		} else {
			cl.limiter = ratelimit.NewUnlimited()
		}
	}
}

// NewClient creates a new aggregator client.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuoteParams are the inputs of a quote request.
type QuoteParams struct {
	InputMint    string
	OutputMint   string
	Amount       uint64
	SlippageBps  int
	ExcludeDexes []string
}

// Quote requests an ExactIn route.
func (c *Client) Quote(ctx context.Context, p QuoteParams) (*domain.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", p.InputMint)
	q.Set("outputMint", p.OutputMint)
	q.Set("amount", strconv.FormatUint(p.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(p.SlippageBps))
	q.Set("swapMode", "ExactIn")
	if len(p.ExcludeDexes) > 0 {
		q.Set("excludeDexes", strings.Join(p.ExcludeDexes, ","))
	}

	body, err := c.do(ctx, "quote", http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: quote: %v", ErrMalformedResponse, err)
	}
	if resp.ErrorCode != "" || resp.Error != "" {
		return nil, classify("quote", http.StatusOK, resp.ErrorCode, resp.Error)
	}
	return resp.toDomain(body)
}

// SwapParams are the inputs of a swap-transaction build.
type SwapParams struct {
	Quote                  *domain.Quote
	UserPublicKey          string
	MaxPriorityFeeLamports uint64
	PriorityLevel          domain.PriorityTier
}

// SwapResult is an unsigned transaction ready for local signing.
type SwapResult struct {
	Transaction               []byte
	LastValidBlockHeight      uint64
	PrioritizationFeeLamports uint64
}

// SwapTransaction builds the swap transaction for a previously fetched quote.
func (c *Client) SwapTransaction(ctx context.Context, p SwapParams) (*SwapResult, error) {
	if p.Quote == nil || len(p.Quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: swap requires the raw quote", ErrMalformedResponse)
	}

	req := swapRequest{
		QuoteResponse:           p.Quote.Raw,
		UserPublicKey:           p.UserPublicKey,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
		DynamicSlippage:         false,
	}
	req.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.MaxLamports = p.MaxPriorityFeeLamports
	req.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.PriorityLevel = string(p.PriorityLevel)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	body, err := c.do(ctx, "swap", http.MethodPost, c.baseURL+"/swap", payload)
	if err != nil {
		return nil, err
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: swap: %v", ErrMalformedResponse, err)
	}
	if resp.ErrorCode != "" || resp.Error != "" {
		return nil, classify("swap", http.StatusOK, resp.ErrorCode, resp.Error)
	}
	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: swap: empty swapTransaction", ErrMalformedResponse)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: swap: decode transaction: %v", ErrMalformedResponse, err)
	}

	return &SwapResult{
		Transaction:               raw,
		LastValidBlockHeight:      resp.LastValidBlockHeight,
		PrioritizationFeeLamports: resp.PrioritizationFeeLamports,
	}, nil
}

// ProgramIDToLabel returns the aggregator's program-id to venue-label map.
func (c *Client) ProgramIDToLabel(ctx context.Context) (map[string]string, error) {
	body, err := c.do(ctx, "program-id-to-label", http.MethodGet, c.baseURL+"/program-id-to-label", nil)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string)
	if err := json.Unmarshal(body, &labels); err != nil {
		return nil, fmt.Errorf("%w: program-id-to-label: %v", ErrMalformedResponse, err)
	}
	return labels, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	c.limiter.Take()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.RecordHTTPLatency("jupiter", op, time.Since(start).Seconds())
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(truncate(string(body), 200))}
	}

	var e errorResponse
	_ = json.Unmarshal(body, &e)
	if e.Error == "" {
		e.Error = truncate(string(body), 200)
	}
	return nil, classify(op, resp.StatusCode, e.ErrorCode, e.Error)
}

// classify maps aggregator error codes onto tagged errors.
func classify(op string, status int, code, message string) error {
	switch strings.ToUpper(code) {
	case "COULD_NOT_FIND_ANY_ROUTE", "NO_ROUTES_FOUND", "NO_ROUTE":
		return fmt.Errorf("jupiter %s: %w: %s", op, ErrNoRoute, message)
	case "TOKEN_NOT_TRADABLE", "NOT_TRADABLE":
		return fmt.Errorf("jupiter %s: %w: %s", op, ErrNotTradable, message)
	}
	return &APIError{Op: op, StatusCode: status, Code: code, Message: message}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
