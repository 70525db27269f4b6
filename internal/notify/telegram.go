package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"solana-token-trader/internal/observability"
)

// Telegram defaults.
const (
	DefaultTelegramURL = "https://api.telegram.org"
	DefaultTimeout     = 10 * time.Second
)

// Breaker trip thresholds.
var (
	MaxNumOfFailingRequests = 5
	FailingRatio            = 0.6
)

// ErrNoChat is returned when neither the channel nor the default has a chat id.
var ErrNoChat = errors.New("no chat configured for channel")

// TelegramConfig configures the bot sender.
type TelegramConfig struct {
	BaseURL     string
	Token       string
	DefaultChat string
	Chats       map[string]string // channel -> chat id
}

// Telegram sends messages through the Bot API behind a circuit breaker.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	logger logrus.FieldLogger
}

// TelegramOption configures Telegram.
type TelegramOption func(*Telegram)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) {
		t.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) TelegramOption {
	return func(t *Telegram) {
		t.logger = l
	}
}

// NewTelegram creates a new Telegram notifier.
func NewTelegram(cfg TelegramConfig, opts ...TelegramOption) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramURL
	}
	t := &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cb = newCircuitBreaker(t.logger)
	return t
}

func newCircuitBreaker(logger logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "telegram",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) >= MaxNumOfFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("telegram seems down, notifications suspended")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				logger.Info("telegram seems ok, notifications resumed")
			}
		},
	})
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends message to the chat of channel.
func (t *Telegram) Notify(ctx context.Context, channel, message string) error {
	chat := t.cfg.Chats[channel]
	if chat == "" {
		chat = t.cfg.DefaultChat
	}
	if chat == "" {
		return fmt.Errorf("%w: %s", ErrNoChat, channel)
	}

	_, err := t.cb.Execute(func() (interface{}, error) {
		return nil, t.send(ctx, chat, message)
	})
	observability.RecordNotification(channel, err)
	return err
}

func (t *Telegram) send(ctx context.Context, chat, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chat, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	target := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	observability.RecordHTTPLatency("telegram", "sendMessage", time.Since(start).Seconds())
	if err != nil {
		// the request URL embeds the bot token
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("telegram: %w", ctxErr)
		}
		return errors.New("telegram: request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out sendMessageResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}
