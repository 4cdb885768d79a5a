// Package notify delivers alerts to chat channels (Telegram, Discord).
// Every sender receives every alert at or above the configured severity.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a message with the given title and body.
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans alerts out to its senders. Alerts less severe than the
// minimum are skipped.
type Notifier struct {
	senders     []Sender
	minSeverity domain.Severity
	logger      *slog.Logger
}

// NewNotifier creates a Notifier. An empty minSeverity lets every alert
// through.
func NewNotifier(senders []Sender, minSeverity domain.Severity, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders:     senders,
		minSeverity: minSeverity,
		logger:      logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Wants reports whether an alert passes the severity filter.
func (n *Notifier) Wants(a domain.Alert) bool {
	if n.minSeverity == "" {
		return true
	}
	return a.Severity.Precedence() <= n.minSeverity.Precedence()
}

// NotifyAlert formats an alert and sends it to every sender. Filtered alerts
// return nil without sending.
func (n *Notifier) NotifyAlert(ctx context.Context, a domain.Alert) error {
	if !n.Wants(a) {
		n.logger.DebugContext(ctx, "alert below minimum severity",
			slog.String("severity", string(a.Severity)),
			slog.String("market", a.Market.Key().String()),
		)
		return nil
	}
	title, message := FormatAlert(a)
	return n.dispatch(ctx, title, message)
}

// dispatch sends to all senders; one failing sender does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
