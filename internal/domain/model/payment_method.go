package model

import (
	"database/sql/driver"
	"time"
)

// PaymentMethodType enumerates the instrument kinds a user can register.
type PaymentMethodType string

const (
	PaymentMethodTypeCreditCard   PaymentMethodType = "CREDIT_CARD"
	PaymentMethodTypeDebitCard    PaymentMethodType = "DEBIT_CARD"
	PaymentMethodTypePaypal       PaymentMethodType = "PAYPAL"
	PaymentMethodTypeBankTransfer PaymentMethodType = "BANK_TRANSFER"
	PaymentMethodTypeGooglePay    PaymentMethodType = "GOOGLE_PAY"
	PaymentMethodTypeApplePay     PaymentMethodType = "APPLE_PAY"
)

// Scan implements sql.Scanner interface
func (t *PaymentMethodType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = PaymentMethodType(v)
	case []byte:
		*t = PaymentMethodType(v)
	default:
		*t = PaymentMethodTypeCreditCard
	}
	return nil
}

// Value implements driver.Valuer interface
func (t PaymentMethodType) Value() (driver.Value, error) {
	return string(t), nil
}

// IsCard reports whether the instrument carries card metadata (expiry, brand).
func (t PaymentMethodType) IsCard() bool {
	return t == PaymentMethodTypeCreditCard || t == PaymentMethodTypeDebitCard
}

// PaymentMethod stores a tokenized payment instrument. The raw instrument
// never touches this service; EncryptedToken holds the gateway-side token
// encrypted at rest. At most one row per user carries IsDefault=true.
type PaymentMethod struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64             `gorm:"not null;index" json:"user_id"`
	Type           PaymentMethodType `gorm:"size:30;not null" json:"type"`
	Provider       string            `gorm:"size:30;not null" json:"provider"`
	LastFourDigits *string           `gorm:"size:4" json:"last_four_digits,omitempty"`
	ExpiryMonth    *int              `json:"expiry_month,omitempty"`
	ExpiryYear     *int              `json:"expiry_year,omitempty"`
	CardBrand      *string           `gorm:"size:30" json:"card_brand,omitempty"`
	IsDefault      bool              `gorm:"not null;default:false" json:"is_default"`
	EncryptedToken string            `gorm:"not null;size:512" json:"-"`
	CreatedAt      time.Time         `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
