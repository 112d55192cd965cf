package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a stored webhook event.
// A completed row is the idempotency marker: redeliveries of the same event
// id short-circuit once the status reaches completed.
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is the audit row for every gateway callback, stored before any
// side-effecting logic runs. EventID is the gateway-assigned idempotency key.
type WebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID            string        `gorm:"uniqueIndex;not null;size:255" json:"event_id"`
	EventType          string        `gorm:"not null;size:100;index" json:"event_type"`
	Payload            string        `gorm:"type:text;not null" json:"payload"`
	Status             WebhookStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ProcessingAttempts int           `gorm:"default:0" json:"processing_attempts"`
	LastError          *string       `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt        *time.Time    `json:"next_retry_at,omitempty"`
	ReceivedAt         time.Time     `gorm:"not null;default:now()" json:"received_at"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
}

// Processed reports whether all derived state transitions for the event have
// been applied.
func (e *WebhookEvent) Processed() bool {
	return e.Status == WebhookStatusCompleted
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
