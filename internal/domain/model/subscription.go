package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlanType enumerates the billing cadences a course can be sold on.
type SubscriptionPlanType string

const (
	PlanTypeMonthly   SubscriptionPlanType = "MONTHLY"
	PlanTypeQuarterly SubscriptionPlanType = "QUARTERLY"
	PlanTypeYearly    SubscriptionPlanType = "YEARLY"
	PlanTypeLifetime  SubscriptionPlanType = "LIFETIME"
)

// Scan implements sql.Scanner interface
func (p *SubscriptionPlanType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = SubscriptionPlanType(v)
	case []byte:
		*p = SubscriptionPlanType(v)
	default:
		*p = PlanTypeMonthly
	}
	return nil
}

// Value implements driver.Valuer interface
func (p SubscriptionPlanType) Value() (driver.Value, error) {
	return string(p), nil
}

// SubscriptionStatus represents the lifecycle state of a subscription.
// CANCELED and EXPIRED are terminal.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	SubscriptionStatusExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusTrialing SubscriptionStatus = "TRIALING"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusExpired
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled || s == SubscriptionStatusExpired
}

// Subscription represents recurring access to one course for one user. A
// partial unique index enforces at most one ACTIVE/TRIALING row per
// (user, course) pair; see database.Migrate.
type Subscription struct {
	ID              int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64                `gorm:"not null;index" json:"user_id"`
	CourseID        int64                `gorm:"not null;index" json:"course_id"`
	PaymentMethodID *int64               `gorm:"index" json:"payment_method_id,omitempty"`
	PlanType        SubscriptionPlanType `gorm:"size:20;not null" json:"plan_type"`
	Status          SubscriptionStatus   `gorm:"size:20;not null;index" json:"status"`
	Amount          decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string               `gorm:"size:3;default:'USD'" json:"currency"`
	StartDate       time.Time            `gorm:"not null" json:"start_date"`
	EndDate         *time.Time           `json:"end_date,omitempty"`
	NextBillingDate time.Time            `gorm:"not null;index" json:"next_billing_date"`
	LastBillingDate *time.Time           `json:"last_billing_date,omitempty"`
	CanceledAt      *time.Time           `json:"canceled_at,omitempty"`
	TrialEndDate    *time.Time           `json:"trial_end_date,omitempty"`
	CreatedAt       time.Time            `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
