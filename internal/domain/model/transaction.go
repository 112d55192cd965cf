package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the state of a payment transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusRefunded   TransactionStatus = "REFUNDED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
	TransactionStatusDisputed   TransactionStatus = "DISPUTED"
	TransactionStatusExpired    TransactionStatus = "EXPIRED"
	TransactionStatusAuthorized TransactionStatus = "AUTHORIZED"
	TransactionStatusCaptured   TransactionStatus = "CAPTURED"
)

// Scan implements sql.Scanner interface
func (s *TransactionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransactionStatus(v)
	case []byte:
		*s = TransactionStatus(v)
	default:
		*s = TransactionStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s TransactionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Metadata is a free-form string map persisted as JSONB.
type Metadata map[string]string

// Value implements driver.Valuer interface
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		*m = make(Metadata)
		return nil
	}
}

// Transaction is an append-only payment record. Rows transition PENDING to a
// terminal status exactly once; refunds are recorded as new negative-amount
// rows rather than edits to the original.
type Transaction struct {
	ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64             `gorm:"not null;index" json:"user_id"`
	CourseID        int64             `gorm:"not null;index" json:"course_id"`
	Amount          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string            `gorm:"size:3;default:'USD'" json:"currency"`
	Status          TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	PaymentMethodID *int64            `gorm:"index" json:"payment_method_id,omitempty"`
	Reference       string            `gorm:"uniqueIndex;not null;size:100" json:"reference"`
	Metadata        Metadata          `gorm:"type:jsonb" json:"metadata,omitempty"`
	Timestamp       time.Time         `gorm:"not null;index;default:now()" json:"timestamp"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}
