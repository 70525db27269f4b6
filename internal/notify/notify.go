// Package notify delivers operator notifications about trades and rejections.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notification channels.
const (
	ChannelTrades = "trades"
	ChannelAlerts = "alerts"
)

// Notifier delivers a message to a named channel.
type Notifier interface {
	Notify(ctx context.Context, channel, message string) error
}

// Nop discards every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string) error { return nil }

// Log writes messages to a logger instead of an external service.
type Log struct {
	Logger logrus.FieldLogger
}

// Notify implements Notifier.
func (l Log) Notify(_ context.Context, channel, message string) error {
	l.Logger.WithField("channel", channel).Info(message)
	return nil
}

var (
	_ Notifier = Nop{}
	_ Notifier = Log{}
	_ Notifier = (*Telegram)(nil)
)
