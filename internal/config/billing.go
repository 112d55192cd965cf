package config

import "time"

// BillingConfig holds the knobs of the subscription lifecycle.
type BillingConfig struct {
	// TrialPeriod is how long a withTrial subscription runs before the first
	// charge. Source of truth for trialEndDate.
	TrialPeriod time.Duration `yaml:"trial_period"`

	// GracePeriod is how long past a missed renewal charge a subscription
	// stays ACTIVE before demotion to PAST_DUE.
	GracePeriod time.Duration `yaml:"grace_period"`

	// RenewalSpec is the cron spec for the renewal job.
	RenewalSpec string `yaml:"renewal_spec"`

	// RenewalConcurrency bounds parallel per-subscription renewal attempts
	// within one tick.
	RenewalConcurrency int `yaml:"renewal_concurrency"`

	// PendingTransactionTTL is how long a PENDING transaction may sit before
	// the expiry sweep marks it EXPIRED.
	PendingTransactionTTL time.Duration `yaml:"pending_transaction_ttl"`

	// ReminderLeadTime is how far ahead of the next billing date the reminder
	// job notifies users of an upcoming renewal.
	ReminderLeadTime time.Duration `yaml:"reminder_lead_time"`

	// DefaultCurrency is applied when a request does not carry one.
	DefaultCurrency string `yaml:"default_currency"`
}

func (b *BillingConfig) applyDefaults() {
	if b.TrialPeriod == 0 {
		b.TrialPeriod = 7 * 24 * time.Hour
	}
	if b.GracePeriod == 0 {
		b.GracePeriod = 3 * 24 * time.Hour
	}
	if b.RenewalSpec == "" {
		b.RenewalSpec = "@hourly"
	}
	if b.RenewalConcurrency <= 0 {
		b.RenewalConcurrency = 8
	}
	if b.PendingTransactionTTL == 0 {
		b.PendingTransactionTTL = 24 * time.Hour
	}
	if b.ReminderLeadTime == 0 {
		b.ReminderLeadTime = 3 * 24 * time.Hour
	}
	if b.DefaultCurrency == "" {
		b.DefaultCurrency = "USD"
	}
}
