// Package notify provides notification delivery for tracker events.
// Delivery is fire-and-forget: a failed send is logged by the caller
// and never blocks or fails trading logic.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendEvent(ctx context.Context, event models.Event, signal models.Signal) error
	SendError(ctx context.Context, err error, context string) error
	SendDailyReport(ctx context.Context, date string, results []models.DailyResult) error
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message. Photo is optional;
// channels without image support send the caption as text.
type Notification struct {
	Type      Type
	Title     string
	Message   string
	Photo     []byte
	Caption   string
	Timestamp time.Time
}

// Type represents the kind of notification.
type Type string

const (
	TypeEvent   Type = "event"
	TypeError   Type = "error"
	TypeSummary Type = "summary"
	TypeInfo    Type = "info"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []Channel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a notifier with the channels enabled in cfg.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{}

	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendEvent sends a trade state-change notification.
func (mn *MultiNotifier) SendEvent(ctx context.Context, event models.Event, signal models.Signal) error {
	var emoji, label string
	switch event.Kind {
	case models.EventEntry:
		emoji, label = "📢", "STOCK TRIGGERED"
	case models.EventTargetHit:
		emoji, label = "🎯", "TARGET HIT"
	case models.EventStoplossHit:
		emoji, label = "🛑", "STOPLOSS HIT"
	default:
		emoji, label = "ℹ️", string(event.Kind)
	}

	title := fmt.Sprintf("%s %s: %s", emoji, label, event.Symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nSide: %s\n\nOpen: %s\nLTP: %s\nEntry: %s\nTarget: %s\nSL: %s",
		event.Symbol,
		event.Side,
		utils.FormatIndianCurrency(signal.Open),
		utils.FormatIndianCurrency(event.Price),
		utils.FormatIndianCurrency(signal.Entry),
		utils.FormatIndianCurrency(signal.Target),
		utils.FormatIndianCurrency(signal.Stoploss),
	)

	return mn.Send(ctx, Notification{
		Type:    TypeEvent,
		Title:   title,
		Message: message,
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	title := "⚠️ Tracker error"
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().In(utils.IndiaLocation).Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    TypeError,
		Title:   title,
		Message: message,
	})
}

// SendDailyReport sends the end-of-day summary.
func (mn *MultiNotifier) SendDailyReport(ctx context.Context, date string, results []models.DailyResult) error {
	profits := 0
	for _, r := range results {
		if r.Profit {
			profits++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Triggered: %d\nIn profit at close: %d\n", len(results), profits))
	for _, r := range results {
		flag := "-"
		if r.Profit {
			flag = "✅"
		}
		sb.WriteString(fmt.Sprintf("\n%s %s %s → %s %s",
			flag, r.Symbol, r.Phase,
			utils.FormatIndianCurrency(r.FinalPrice), r.ExitReason))
	}

	return mn.Send(ctx, Notification{
		Type:    TypeSummary,
		Title:   fmt.Sprintf("📊 Daily Report - %s", date),
		Message: sb.String(),
	})
}

// NoOpNotifier is a notifier that does nothing (for tests or disabled
// notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error { return nil }

// SendEvent does nothing.
func (n *NoOpNotifier) SendEvent(ctx context.Context, event models.Event, signal models.Signal) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error { return nil }

// SendDailyReport does nothing.
func (n *NoOpNotifier) SendDailyReport(ctx context.Context, date string, results []models.DailyResult) error {
	return nil
}
