// Package rugcheck fetches token risk reports from the RugCheck API.
package rugcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.rugcheck.xyz"
	DefaultTimeout = 10 * time.Second
)

// ErrUnknownToken is returned when the service has no report for the mint.
var ErrUnknownToken = errors.New("token unknown to risk service")

// TransportError is a network failure or an unexpected status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rugcheck: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rugcheck: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client fetches token reports.
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

// WithAPIKey sends a bearer token.
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

// NewClient creates a new RugCheck client.
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

// Report fetches the full risk report for mint.
func (c *Client) Report(ctx context.Context, mint string) (*domain.RiskReport, error) {
	c.limiter.Take()

	target := fmt.Sprintf("%s/v1/tokens/%s/report", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.RecordHTTPLatency("rugcheck", "report", time.Since(start).Seconds())
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, mint)
	default:
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var raw reportResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode report: %w", err)}
	}
	report := raw.toDomain()
	if report.Mint == "" {
		report.Mint = mint
	}
	return report, nil
}
