// Package notify delivers order and low-stock notices to email, Slack, and
// Discord.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Message is a notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

func (m *Multi) Name() string { return "multi" }

// Notify implements Notifier. Every notifier is attempted even if an earlier
// one fails.
func (m *Multi) Notify(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			logger.Warn("notification failed", "notifier", n.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Debug("notification sent", "notifier", n.Name(), "subject", msg.Subject)
	}
	return errors.Join(errs...)
}

// Len reports the number of configured notifiers.
func (m *Multi) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Notifiers)
}
