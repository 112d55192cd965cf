package sink

import "context"

// NotificationKind enumerates the user-facing events billing emits.
type NotificationKind string

const (
	NotifyPaymentSuccess  NotificationKind = "payment_success"
	NotifyPaymentFailure  NotificationKind = "payment_failure"
	NotifyPaymentRefund   NotificationKind = "payment_refund"
	NotifyDisputeCreated  NotificationKind = "dispute_created"
	NotifyDisputeUpdated  NotificationKind = "dispute_updated"
	NotifyRenewalReminder NotificationKind = "renewal_reminder"
)

// Notifier delivers user notifications. Calls are fire-and-forget: a failed
// delivery must never roll back or fail the billing state change that
// triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind NotificationKind, payload map[string]string)
}

// Analytics records product events. Best-effort, never blocking the caller.
type Analytics interface {
	LogEvent(name string, properties map[string]string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, int64, NotificationKind, map[string]string) {}

// NopAnalytics discards events.
type NopAnalytics struct{}

func (NopAnalytics) LogEvent(string, map[string]string) {}
