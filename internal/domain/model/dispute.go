package model

import (
	"database/sql/driver"
	"time"
)

// DisputeStatus represents where a chargeback sits in its review flow.
type DisputeStatus string

const (
	DisputeStatusPending             DisputeStatus = "PENDING"
	DisputeStatusUnderReview         DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolvedMerchantWin DisputeStatus = "RESOLVED_MERCHANT_WIN"
	DisputeStatusResolvedCustomerWin DisputeStatus = "RESOLVED_CUSTOMER_WIN"
	DisputeStatusCancelled           DisputeStatus = "CANCELLED"
)

// Scan implements sql.Scanner interface
func (s *DisputeStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = DisputeStatus(v)
	case []byte:
		*s = DisputeStatus(v)
	default:
		*s = DisputeStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s DisputeStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsResolved reports whether the dispute reached a win/lose outcome.
func (s DisputeStatus) IsResolved() bool {
	return s == DisputeStatusResolvedMerchantWin || s == DisputeStatusResolvedCustomerWin
}

// IsTerminal reports whether the dispute can no longer change status.
func (s DisputeStatus) IsTerminal() bool {
	return s.IsResolved() || s == DisputeStatusCancelled
}

// Dispute tracks a chargeback against a completed transaction. ResolvedAt is
// written exactly once, on the transition into a terminal status.
type Dispute struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64         `gorm:"not null;index" json:"transaction_id"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	Reason        string        `gorm:"not null;size:255" json:"reason"`
	Evidence      string        `gorm:"type:text" json:"evidence"`
	Status        DisputeStatus `gorm:"size:30;not null;index" json:"status"`
	Resolution    *string       `gorm:"type:text" json:"resolution,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:now()" json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Dispute) TableName() string {
	return "disputes"
}
